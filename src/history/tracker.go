package history

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/altavoz-labs/avatarflow/src/logger"
)

// Sender identifies who produced a conversation message.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderAvatar Sender = "avatar"
)

// Message is one entry of the on-screen transcript.
type Message struct {
	ID       string
	Sender   Sender
	Content  string
	ImageB64 string
	At       time.Time
}

// Tracker accumulates the turn-by-turn transcript. Consecutive fragments from
// the same speaker are coalesced into one entry until an end-of-turn signal
// or a fragment from the other speaker arrives.
type Tracker struct {
	mu       sync.Mutex
	messages []Message
	current  Sender // "" when no coalescing target

	// Backend menu prompts the SDK sometimes echoes back on the user
	// channel; fragments containing one of these are dropped.
	echoPatterns []string

	log *logger.Logger
}

func NewTracker() *Tracker {
	return &Tracker{log: logger.WithComponent("History")}
}

// SetUserEchoFilter installs substring patterns that disqualify a fragment
// from being recorded as a user message.
func (t *Tracker) SetUserEchoFilter(patterns []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.echoPatterns = patterns
}

// AddUserMessage records a complete user utterance (typed input or a final
// speech-recognition result) as a new entry and makes it the coalescing
// target for subsequent user fragments.
func (t *Tracker) AddUserMessage(content string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.current = SenderUser
	t.messages = append(t.messages, Message{
		ID:      uuid.NewString(),
		Sender:  SenderUser,
		Content: content,
		At:      time.Now(),
	})
}

// AppendFragment records a streaming transcript fragment, coalescing it onto
// the previous entry when the speaker is unchanged.
func (t *Tracker) AppendFragment(sender Sender, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if sender == SenderUser {
		for _, pat := range t.echoPatterns {
			if strings.Contains(text, pat) {
				t.log.Debug("dropping echoed backend prompt from user transcript: %.50q", text)
				return
			}
		}
	}

	if t.current == sender && len(t.messages) > 0 {
		last := &t.messages[len(t.messages)-1]
		last.Content += text
		return
	}

	t.current = sender
	t.messages = append(t.messages, Message{
		ID:      uuid.NewString(),
		Sender:  sender,
		Content: text,
		At:      time.Now(),
	})
}

// AttachImage attaches a base64 image to the most recent avatar entry, or
// creates a bare entry when the transcript is empty.
func (t *Tracker) AttachImage(b64 string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].Sender == SenderAvatar {
			t.messages[i].ImageB64 = b64
			return
		}
	}
	t.messages = append(t.messages, Message{
		ID:       uuid.NewString(),
		Sender:   SenderAvatar,
		ImageB64: b64,
		At:       time.Now(),
	})
}

// EndTurn resets the coalescing target so the next fragment from either
// speaker starts a fresh entry.
func (t *Tracker) EndTurn() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = ""
}

// Clear drops the whole transcript.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = nil
	t.current = ""
}

// Messages returns a copy of the transcript in arrival order.
func (t *Tracker) Messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of transcript entries.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}
