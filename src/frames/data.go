package frames

// DataFrame is the base for ordered, normal-priority frames.
type DataFrame struct {
	*BaseFrame
}

func (f *DataFrame) Category() FrameCategory {
	return DataCategory
}

// UserTranscriptFrame is a transcript fragment the SDK attributes to the user.
type UserTranscriptFrame struct {
	*DataFrame
	Text string
}

func NewUserTranscriptFrame(text string) *UserTranscriptFrame {
	return &UserTranscriptFrame{
		DataFrame: &DataFrame{BaseFrame: NewBaseFrame("UserTranscriptFrame")},
		Text:      text,
	}
}

// AvatarTranscriptFrame is a transcript fragment of what the avatar is saying.
type AvatarTranscriptFrame struct {
	*DataFrame
	Text string
}

func NewAvatarTranscriptFrame(text string) *AvatarTranscriptFrame {
	return &AvatarTranscriptFrame{
		DataFrame: &DataFrame{BaseFrame: NewBaseFrame("AvatarTranscriptFrame")},
		Text:      text,
	}
}

// EndOfTurnFrame marks the end of a message from either speaker. The history
// tracker resets its coalescing state when it sees one.
type EndOfTurnFrame struct {
	*DataFrame
}

func NewEndOfTurnFrame() *EndOfTurnFrame {
	return &EndOfTurnFrame{
		DataFrame: &DataFrame{BaseFrame: NewBaseFrame("EndOfTurnFrame")},
	}
}
