// Package router decides, per persona, how a user utterance becomes avatar
// speech: knowledge-driven personas talk through the SDK's own knowledge
// base, API-driven personas call their backend and repeat the reply
// verbatim.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/altavoz-labs/avatarflow/src/avatar"
	"github.com/altavoz-labs/avatarflow/src/history"
	"github.com/altavoz-labs/avatarflow/src/logger"
	"github.com/altavoz-labs/avatarflow/src/personas"
	"github.com/altavoz-labs/avatarflow/src/processors"
	"github.com/altavoz-labs/avatarflow/src/store"
)

// ErrNoSession marks a turn dispatched before the persona's backend session
// exists. It is a recoverable no-op, never fatal.
var ErrNoSession = errors.New("no backend session for persona")

// Speaker is the slice of the avatar controller the router needs.
type Speaker interface {
	Speak(ctx context.Context, req avatar.SpeakRequest) error
	Interrupt(ctx context.Context) error
}

// Reply is the extracted outcome of a backend turn.
type Reply struct {
	Text     string
	ImageB64 string
}

// Extractor interprets a persona-specific backend response shape.
type Extractor func(raw json.RawMessage) (Reply, error)

// Backend sends one turn to a persona's backend. Implementations return
// ErrNoSession when the stored session lacks the identifier they need.
type Backend interface {
	SendTurn(ctx context.Context, sess *store.Session, utterance string) (json.RawMessage, error)
}

// Route binds an API-driven persona to its backend and response shape.
type Route struct {
	Backend Backend
	Extract Extractor
}

// Router is the conversation turn router.
type Router struct {
	registry *personas.Registry
	store    *store.Store
	speaker  Speaker
	history  *history.Tracker
	talking  *processors.TalkingState

	routes map[string]Route

	// Per-persona turn serialization. Two rapid submissions for the same
	// persona run one after the other instead of racing.
	flightMu sync.Mutex
	flights  map[string]*sync.Mutex

	log *logger.Logger
}

func New(registry *personas.Registry, st *store.Store, speaker Speaker, hist *history.Tracker, talking *processors.TalkingState) *Router {
	return &Router{
		registry: registry,
		store:    st,
		speaker:  speaker,
		history:  hist,
		talking:  talking,
		routes:   make(map[string]Route),
		flights:  make(map[string]*sync.Mutex),
		log:      logger.WithComponent("Router"),
	}
}

// Register binds an API-driven persona id to its route.
func (r *Router) Register(personaID string, route Route) {
	r.routes[personaID] = route
}

// Dispatch routes one user utterance. The user message is recorded in
// history before any backend call so the transcript always shows the prompt
// ahead of its eventual answer. All failures are contained: logged,
// returned, never panicking, never tearing down the session.
func (r *Router) Dispatch(ctx context.Context, personaID, utterance string) error {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return nil
	}

	desc, ok := r.registry.Lookup(personaID)
	if !ok {
		r.log.Warn("dispatch for unknown persona %q ignored", personaID)
		return nil
	}

	lock := r.flightLock(personaID)
	lock.Lock()
	defer lock.Unlock()

	r.history.AddUserMessage(utterance)

	// Barge-in for typed and spoken turns alike: a new turn always cuts
	// off in-progress avatar speech. Interrupt failures never block the
	// new turn.
	if r.talking != nil && r.talking.AvatarTalking() {
		if err := r.speaker.Interrupt(ctx); err != nil {
			r.log.Warn("interrupt before turn failed: %v", err)
		}
	}

	if desc.Mode() == personas.KnowledgeDriven {
		return r.dispatchKnowledge(ctx, personaID, utterance)
	}
	return r.dispatchAPI(ctx, personaID, utterance)
}

func (r *Router) dispatchKnowledge(ctx context.Context, personaID, utterance string) error {
	r.log.Debug("knowledge dispatch for %q", personaID)
	err := r.speaker.Speak(ctx, avatar.SpeakRequest{
		Text: utterance,
		Type: avatar.TaskTypeTalk,
		Mode: avatar.TaskModeAsync,
	})
	if err != nil {
		r.log.Error("talk failed for %q: %v", personaID, err)
		return fmt.Errorf("talk: %w", err)
	}
	return nil
}

func (r *Router) dispatchAPI(ctx context.Context, personaID, utterance string) error {
	route, ok := r.routes[personaID]
	if !ok {
		r.log.Warn("no backend route registered for %q, turn abandoned", personaID)
		return nil
	}

	sess := r.store.GetSession(personaID)

	raw, err := route.Backend.SendTurn(ctx, sess, utterance)
	if errors.Is(err, ErrNoSession) {
		// Recoverable: abandon the turn without a backend call or speech.
		r.log.Debug("turn for %q abandoned: %v", personaID, err)
		return nil
	}
	if err != nil {
		r.log.Error("backend turn for %q failed: %v", personaID, err)
		return fmt.Errorf("backend turn: %w", err)
	}

	reply, err := route.Extract(raw)
	if err != nil {
		r.log.Error("extracting reply for %q: %v", personaID, err)
		return fmt.Errorf("extract reply: %w", err)
	}

	if reply.ImageB64 != "" {
		if err := r.store.AppendImage(personaID, reply.ImageB64); err != nil {
			r.log.Warn("storing generated image: %v", err)
		} else {
			r.history.AttachImage(reply.ImageB64)
		}
	}

	if reply.Text == "" {
		// Nothing to vocalize; never hand the SDK an empty utterance.
		return nil
	}

	err = r.speaker.Speak(ctx, avatar.SpeakRequest{
		Text: reply.Text,
		Type: avatar.TaskTypeRepeat,
		Mode: avatar.TaskModeAsync,
	})
	if err != nil {
		r.log.Error("repeat failed for %q: %v", personaID, err)
		return fmt.Errorf("repeat: %w", err)
	}
	return nil
}

func (r *Router) flightLock(personaID string) *sync.Mutex {
	r.flightMu.Lock()
	defer r.flightMu.Unlock()
	lock, ok := r.flights[personaID]
	if !ok {
		lock = &sync.Mutex{}
		r.flights[personaID] = lock
	}
	return lock
}
