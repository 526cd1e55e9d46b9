package avatar

import "context"

// TaskType selects how the SDK treats speak text.
type TaskType int

const (
	// TaskTypeTalk lets the SDK's own knowledge base interpret the input
	// and formulate the reply.
	TaskTypeTalk TaskType = iota

	// TaskTypeRepeat makes the SDK vocalize the supplied text verbatim.
	TaskTypeRepeat
)

func (t TaskType) String() string {
	switch t {
	case TaskTypeTalk:
		return "talk"
	case TaskTypeRepeat:
		return "repeat"
	default:
		return "unknown"
	}
}

// TaskMode selects whether Speak blocks until playback finishes.
type TaskMode int

const (
	TaskModeAsync TaskMode = iota
	TaskModeSync
)

func (m TaskMode) String() string {
	switch m {
	case TaskModeAsync:
		return "async"
	case TaskModeSync:
		return "sync"
	default:
		return "unknown"
	}
}

// SpeakRequest is one speech task handed to the SDK.
type SpeakRequest struct {
	Text string
	Type TaskType
	Mode TaskMode
}

// VoiceChatOptions configures the SDK-managed microphone capture used by
// knowledge-driven personas.
type VoiceChatOptions struct {
	InputAudioMuted bool
}

// Quality selects the rendered stream quality.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// StartRequest is the session configuration sent when a stream starts.
type StartRequest struct {
	AvatarID    string
	KnowledgeID string // empty for API-driven personas
	Quality     Quality
	Language    string
	VoiceRate   float64
	Emotion     string
}

// Controller is the avatar SDK boundary consumed by the turn router, speech
// controller and session bootstrap. The production implementation is the
// websocket Client; tests substitute fakes.
type Controller interface {
	Speak(ctx context.Context, req SpeakRequest) error
	Interrupt(ctx context.Context) error
	StartVoiceChat(ctx context.Context, opts VoiceChatOptions) error
	CloseVoiceChat() error
	MuteInputAudio() error
	UnmuteInputAudio() error
	Stop() error
}
