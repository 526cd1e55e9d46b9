package session

import (
	"context"
	"errors"
	"sync"

	"github.com/altavoz-labs/avatarflow/src/avatar"
)

// ErrNoActiveSession is returned when speech or routing operations run
// without a live avatar session.
var ErrNoActiveSession = errors.New("session: no active avatar session")

// AvatarHandle is a stable indirection to the avatar controller of the
// currently active session. The router and speech controller hold the
// handle; the manager swaps the concrete client underneath on persona
// switches.
type AvatarHandle struct {
	mu   sync.RWMutex
	ctrl avatar.Controller
}

func NewAvatarHandle() *AvatarHandle {
	return &AvatarHandle{}
}

// Set points the handle at a new controller. Passing nil clears it.
func (h *AvatarHandle) Set(ctrl avatar.Controller) {
	h.mu.Lock()
	h.ctrl = ctrl
	h.mu.Unlock()
}

func (h *AvatarHandle) current() (avatar.Controller, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.ctrl == nil {
		return nil, ErrNoActiveSession
	}
	return h.ctrl, nil
}

func (h *AvatarHandle) Speak(ctx context.Context, req avatar.SpeakRequest) error {
	ctrl, err := h.current()
	if err != nil {
		return err
	}
	return ctrl.Speak(ctx, req)
}

func (h *AvatarHandle) Interrupt(ctx context.Context) error {
	ctrl, err := h.current()
	if err != nil {
		return err
	}
	return ctrl.Interrupt(ctx)
}

func (h *AvatarHandle) MuteInputAudio() error {
	ctrl, err := h.current()
	if err != nil {
		return err
	}
	return ctrl.MuteInputAudio()
}

func (h *AvatarHandle) UnmuteInputAudio() error {
	ctrl, err := h.current()
	if err != nil {
		return err
	}
	return ctrl.UnmuteInputAudio()
}
