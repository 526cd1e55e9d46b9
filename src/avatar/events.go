package avatar

import (
	"encoding/json"
	"fmt"

	"github.com/altavoz-labs/avatarflow/src/frames"
)

// Wire event types emitted by the streaming-avatar service.
const (
	eventStreamReady        = "stream_ready"
	eventStreamDisconnected = "stream_disconnected"
	eventAvatarStartTalking = "avatar_start_talking"
	eventAvatarStopTalking  = "avatar_stop_talking"
	eventUserStart          = "user_start"
	eventUserStop           = "user_stop"
	eventUserMessage        = "user_talking_message"
	eventAvatarMessage      = "avatar_talking_message"
	eventUserEndMessage     = "user_end_message"
	eventAvatarEndMessage   = "avatar_end_message"
	eventTaskFinished       = "task_finished"
)

// wireEvent is the envelope of every message received on the event stream.
type wireEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	TaskID  string `json:"task_id,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// decodeEvent translates a raw event-stream message into the module's typed
// frame set. Frames not relevant to the dispatcher return (nil, nil).
func decodeEvent(data []byte) (frames.Frame, *wireEvent, error) {
	var ev wireEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, nil, fmt.Errorf("malformed avatar event: %w", err)
	}

	switch ev.Type {
	case eventStreamReady:
		return frames.NewStreamReadyFrame(), &ev, nil
	case eventStreamDisconnected:
		return frames.NewStreamDisconnectedFrame(ev.Reason), &ev, nil
	case eventAvatarStartTalking:
		return frames.NewAvatarStartedSpeakingFrame(), &ev, nil
	case eventAvatarStopTalking:
		return frames.NewAvatarStoppedSpeakingFrame(), &ev, nil
	case eventUserStart:
		return frames.NewUserStartedSpeakingFrame(), &ev, nil
	case eventUserStop:
		return frames.NewUserStoppedSpeakingFrame(), &ev, nil
	case eventUserMessage:
		return frames.NewUserTranscriptFrame(ev.Message), &ev, nil
	case eventAvatarMessage:
		return frames.NewAvatarTranscriptFrame(ev.Message), &ev, nil
	case eventUserEndMessage, eventAvatarEndMessage:
		return frames.NewEndOfTurnFrame(), &ev, nil
	case eventTaskFinished:
		// Consumed by the client's pending-task tracking, not dispatched.
		return nil, &ev, nil
	default:
		return nil, &ev, nil
	}
}
