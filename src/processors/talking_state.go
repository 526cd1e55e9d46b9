package processors

import (
	"context"
	"sync/atomic"

	"github.com/altavoz-labs/avatarflow/src/frames"
)

// TalkingState tracks whether the avatar or the user is currently speaking.
// The turn router consults it before dispatching a new turn and the speech
// controller consults it before restarting recognition.
type TalkingState struct {
	avatarTalking atomic.Bool
	userTalking   atomic.Bool
}

func NewTalkingState() *TalkingState {
	return &TalkingState{}
}

func (s *TalkingState) AvatarTalking() bool {
	return s.avatarTalking.Load()
}

func (s *TalkingState) UserTalking() bool {
	return s.userTalking.Load()
}

// SetAvatarTalking is also called directly by the speech controller on
// barge-in, so recognition is not suppressed while an interrupt propagates.
func (s *TalkingState) SetAvatarTalking(v bool) {
	s.avatarTalking.Store(v)
}

func (s *TalkingState) SetUserTalking(v bool) {
	s.userTalking.Store(v)
}

// TalkingStateProcessor updates a TalkingState from speaking-state frames and
// passes everything through.
type TalkingStateProcessor struct {
	*BaseProcessor
	state *TalkingState
}

func NewTalkingStateProcessor(state *TalkingState) *TalkingStateProcessor {
	p := &TalkingStateProcessor{state: state}
	p.BaseProcessor = NewBaseProcessor("TalkingState", p)
	return p
}

func (p *TalkingStateProcessor) HandleFrame(ctx context.Context, frame frames.Frame, direction frames.FrameDirection) error {
	switch frame.(type) {
	case *frames.AvatarStartedSpeakingFrame:
		p.state.SetAvatarTalking(true)
	case *frames.AvatarStoppedSpeakingFrame:
		p.state.SetAvatarTalking(false)
	case *frames.UserStartedSpeakingFrame:
		p.state.SetUserTalking(true)
	case *frames.UserStoppedSpeakingFrame:
		p.state.SetUserTalking(false)
	case *frames.InterruptionFrame:
		p.state.SetAvatarTalking(false)
	case *frames.StreamDisconnectedFrame:
		p.state.SetAvatarTalking(false)
		p.state.SetUserTalking(false)
	}
	return p.PushFrame(frame, direction)
}
