package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/altavoz-labs/avatarflow/src/logger"
	"github.com/altavoz-labs/avatarflow/src/personas"
)

// Session is the per-persona record created when a backend session is
// initiated. Fields that do not apply to a given persona stay zero.
type Session struct {
	// SessionID is the opaque identifier issued by the collections backend.
	SessionID string

	// ConversationID scopes portfolio-analysis turns; generated client-side.
	ConversationID string

	// SelectedProduct is the product chosen in the portfolio pre-chat form.
	SelectedProduct string

	// Message is the last bot message associated with the session (the
	// backend-issued greeting, for the collections persona).
	Message string

	// FormData is the raw pre-chat form payload, if any.
	FormData map[string]interface{}

	CreatedAt time.Time
}

// SwitchObserver is notified whenever the active persona changes. The speech
// controller registers one so stale recognition engines are torn down the
// moment the persona switches.
type SwitchObserver func(oldID, newID string)

// Store holds all per-persona session state plus the active-persona pointer.
// It is the only authorized mutation point for that state.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	current  string

	// Generated images for the portfolio persona (append-only, in
	// insertion order) plus the modal-display selection.
	images         []string
	selectedImage  string
	imageModalOpen bool

	observers []SwitchObserver
	log       *logger.Logger
}

func New() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		log:      logger.WithComponent("Store"),
	}
}

// SetSession replaces the stored session for a persona. Total replacement,
// never a merge.
func (s *Store) SetSession(personaID string, session Session) {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[personaID] = &session
	s.log.Debug("session set for %q", personaID)
}

// GetSession returns a copy of the persona's session, or nil when none
// exists. Mutating the copy never affects stored state.
func (s *Store) GetSession(personaID string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[personaID]
	if !ok {
		return nil
	}
	cp := *sess
	return &cp
}

// AppendImage appends a generated image for the portfolio persona and marks
// it selected for modal display. Other personas never carry images.
func (s *Store) AppendImage(personaID, imageB64 string) error {
	if personaID != personas.BCGProduct {
		return fmt.Errorf("persona %q does not support generated images", personaID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = append(s.images, imageB64)
	s.selectedImage = imageB64
	s.imageModalOpen = true
	return nil
}

// Images returns the generated image list in insertion order.
func (s *Store) Images() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.images))
	copy(out, s.images)
	return out
}

// SelectedImage returns the image currently marked for modal display and
// whether the modal is open.
func (s *Store) SelectedImage() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedImage, s.imageModalOpen
}

// SetImageModalOpen opens or closes the image modal.
func (s *Store) SetImageModalOpen(open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imageModalOpen = open
	if !open {
		s.selectedImage = ""
	}
}

// OnPersonaSwitch registers an observer for active-persona changes.
func (s *Store) OnPersonaSwitch(obs SwitchObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, obs)
}

// SetCurrentPersona switches the active persona ("" for none). Observers run
// after the pointer is updated, outside the lock, so they can re-check the
// store without deadlocking. At most one persona drives the speech
// controller and turn router at any instant.
func (s *Store) SetCurrentPersona(id string) {
	s.mu.Lock()
	old := s.current
	if old == id {
		s.mu.Unlock()
		return
	}
	s.current = id
	observers := make([]SwitchObserver, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	s.log.Info("active persona: %q -> %q", old, id)
	for _, obs := range observers {
		obs(old, id)
	}
}

// CurrentPersona returns the active persona id, or "" when none is active.
func (s *Store) CurrentPersona() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// ClearSession drops one persona's session. Clearing the active persona also
// resets the active pointer.
func (s *Store) ClearSession(personaID string) {
	s.mu.Lock()
	delete(s.sessions, personaID)
	wasCurrent := s.current == personaID
	s.mu.Unlock()

	if wasCurrent {
		s.SetCurrentPersona("")
	}
}

// ClearAll resets every persona session, the image list and the
// active-persona pointer.
func (s *Store) ClearAll() {
	s.mu.Lock()
	s.sessions = make(map[string]*Session)
	s.images = nil
	s.selectedImage = ""
	s.imageModalOpen = false
	s.mu.Unlock()

	s.SetCurrentPersona("")
}
