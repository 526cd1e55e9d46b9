package frames

// ControlFrame is the base for speaking-state control frames.
type ControlFrame struct {
	*BaseFrame
}

func (f *ControlFrame) Category() FrameCategory {
	return ControlCategory
}

// AvatarStartedSpeakingFrame marks the beginning of avatar speech.
type AvatarStartedSpeakingFrame struct {
	*ControlFrame
}

func NewAvatarStartedSpeakingFrame() *AvatarStartedSpeakingFrame {
	return &AvatarStartedSpeakingFrame{
		ControlFrame: &ControlFrame{BaseFrame: NewBaseFrame("AvatarStartedSpeakingFrame")},
	}
}

// AvatarStoppedSpeakingFrame marks the end of avatar speech.
type AvatarStoppedSpeakingFrame struct {
	*ControlFrame
}

func NewAvatarStoppedSpeakingFrame() *AvatarStoppedSpeakingFrame {
	return &AvatarStoppedSpeakingFrame{
		ControlFrame: &ControlFrame{BaseFrame: NewBaseFrame("AvatarStoppedSpeakingFrame")},
	}
}
