package frames

// SystemFrame is the base for all system-level frames.
type SystemFrame struct {
	*BaseFrame
}

func (f *SystemFrame) Category() FrameCategory {
	return SystemCategory
}

// StartFrame signals the beginning of dispatcher execution for a persona
// session.
type StartFrame struct {
	*SystemFrame
	PersonaID string
}

func NewStartFrame(personaID string) *StartFrame {
	return &StartFrame{
		SystemFrame: &SystemFrame{BaseFrame: NewBaseFrame("StartFrame")},
		PersonaID:   personaID,
	}
}

// EndFrame signals graceful shutdown after flushing queued frames.
type EndFrame struct {
	*SystemFrame
}

func NewEndFrame() *EndFrame {
	return &EndFrame{
		SystemFrame: &SystemFrame{BaseFrame: NewBaseFrame("EndFrame")},
	}
}

// InterruptionFrame signals the user barged in while the avatar was talking.
type InterruptionFrame struct {
	*SystemFrame
}

func NewInterruptionFrame() *InterruptionFrame {
	return &InterruptionFrame{
		SystemFrame: &SystemFrame{BaseFrame: NewBaseFrame("InterruptionFrame")},
	}
}

// ErrorFrame carries error information through the dispatcher.
type ErrorFrame struct {
	*SystemFrame
	Error error
}

func NewErrorFrame(err error) *ErrorFrame {
	return &ErrorFrame{
		SystemFrame: &SystemFrame{BaseFrame: NewBaseFrame("ErrorFrame")},
		Error:       err,
	}
}

// StreamReadyFrame signals that the avatar media stream is ready. The
// bootstrap speaks the persona greeting when it sees this frame.
type StreamReadyFrame struct {
	*SystemFrame
}

func NewStreamReadyFrame() *StreamReadyFrame {
	return &StreamReadyFrame{
		SystemFrame: &SystemFrame{BaseFrame: NewBaseFrame("StreamReadyFrame")},
	}
}

// StreamDisconnectedFrame signals that the avatar media stream dropped.
type StreamDisconnectedFrame struct {
	*SystemFrame
	Reason string
}

func NewStreamDisconnectedFrame(reason string) *StreamDisconnectedFrame {
	return &StreamDisconnectedFrame{
		SystemFrame: &SystemFrame{BaseFrame: NewBaseFrame("StreamDisconnectedFrame")},
		Reason:      reason,
	}
}

// UserStartedSpeakingFrame signals the SDK detected user speech.
type UserStartedSpeakingFrame struct {
	*SystemFrame
}

func NewUserStartedSpeakingFrame() *UserStartedSpeakingFrame {
	return &UserStartedSpeakingFrame{
		SystemFrame: &SystemFrame{BaseFrame: NewBaseFrame("UserStartedSpeakingFrame")},
	}
}

// UserStoppedSpeakingFrame signals the SDK detected end of user speech.
type UserStoppedSpeakingFrame struct {
	*SystemFrame
}

func NewUserStoppedSpeakingFrame() *UserStoppedSpeakingFrame {
	return &UserStoppedSpeakingFrame{
		SystemFrame: &SystemFrame{BaseFrame: NewBaseFrame("UserStoppedSpeakingFrame")},
	}
}
