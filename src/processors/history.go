package processors

import (
	"context"

	"github.com/altavoz-labs/avatarflow/src/frames"
	"github.com/altavoz-labs/avatarflow/src/history"
)

// HistoryProcessor feeds transcript frames emitted by the avatar SDK into
// the message history tracker.
type HistoryProcessor struct {
	*BaseProcessor
	tracker *history.Tracker
}

func NewHistoryProcessor(tracker *history.Tracker) *HistoryProcessor {
	p := &HistoryProcessor{tracker: tracker}
	p.BaseProcessor = NewBaseProcessor("HistoryProcessor", p)
	return p
}

func (p *HistoryProcessor) HandleFrame(ctx context.Context, frame frames.Frame, direction frames.FrameDirection) error {
	switch f := frame.(type) {
	case *frames.UserTranscriptFrame:
		if f.Text != "" {
			p.tracker.AppendFragment(history.SenderUser, f.Text)
		}
	case *frames.AvatarTranscriptFrame:
		if f.Text != "" {
			p.tracker.AppendFragment(history.SenderAvatar, f.Text)
		}
	case *frames.EndOfTurnFrame:
		p.tracker.EndTurn()
	}
	return p.PushFrame(frame, direction)
}
