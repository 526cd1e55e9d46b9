package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/altavoz-labs/avatarflow/src/avatar"
	"github.com/altavoz-labs/avatarflow/src/config"
	"github.com/altavoz-labs/avatarflow/src/frames"
	"github.com/altavoz-labs/avatarflow/src/history"
	"github.com/altavoz-labs/avatarflow/src/logger"
	"github.com/altavoz-labs/avatarflow/src/personas"
	"github.com/altavoz-labs/avatarflow/src/pipeline"
	"github.com/altavoz-labs/avatarflow/src/processors"
	"github.com/altavoz-labs/avatarflow/src/services/portfolio"
	"github.com/altavoz-labs/avatarflow/src/speech"
	"github.com/altavoz-labs/avatarflow/src/store"
)

const streamReadyTimeout = 20 * time.Second

// SpeechController is the lifecycle surface the manager needs from a
// speech controller.
type SpeechController interface {
	Start() error
	Close() error
	Mute() error
	Unmute() error
}

// ControllerFactory builds the speech controller for a new session.
// It exists so tests can substitute a fake recognizer.
type ControllerFactory func(personaID string, av speech.AvatarControl, talking *processors.TalkingState) SpeechController

// ClientFactory builds the avatar client for a new session, again an
// injection point for tests.
type ClientFactory func(cfg avatar.ClientConfig, publish avatar.FramePublisher) avatar.Controller

// Active is one live avatar session.
type Active struct {
	PersonaID string

	client     avatar.Controller
	task       *pipeline.Task
	controller SpeechController
	voiceChat  bool
}

// Manager owns session lifecycle: it boots a persona's avatar session
// end to end and tears the previous one down on switch.
type Manager struct {
	cfg       *config.Config
	registry  *personas.Registry
	store     *store.Store
	history   *history.Tracker
	talking   *processors.TalkingState
	handle    *AvatarHandle
	tokens    avatar.TokenProvider
	portfolio *portfolio.Client

	newClient     ClientFactory
	newController ControllerFactory

	mu     sync.Mutex
	active *Active

	log *logger.Logger
}

// ManagerDeps bundles the manager's collaborators.
type ManagerDeps struct {
	Config    *config.Config
	Registry  *personas.Registry
	Store     *store.Store
	History   *history.Tracker
	Talking   *processors.TalkingState
	Handle    *AvatarHandle
	Tokens    avatar.TokenProvider
	Portfolio *portfolio.Client

	// Optional factories; nil selects the production implementations.
	NewClient     ClientFactory
	NewController ControllerFactory
}

func NewManager(deps ManagerDeps) *Manager {
	m := &Manager{
		cfg:           deps.Config,
		registry:      deps.Registry,
		store:         deps.Store,
		history:       deps.History,
		talking:       deps.Talking,
		handle:        deps.Handle,
		tokens:        deps.Tokens,
		portfolio:     deps.Portfolio,
		newClient:     deps.NewClient,
		newController: deps.NewController,
		log:           logger.WithComponent("SessionManager"),
	}
	if m.newClient == nil {
		m.newClient = func(cfg avatar.ClientConfig, publish avatar.FramePublisher) avatar.Controller {
			return avatar.NewClient(cfg, publish)
		}
	}
	return m
}

// Start boots a session for the given persona. Any previous session is
// stopped first; on failure everything already started is rolled back
// and no session is active.
func (m *Manager) Start(ctx context.Context, personaID string) (*Active, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	desc, ok := m.registry.Lookup(personaID)
	if !ok {
		return nil, fmt.Errorf("unknown persona %q", personaID)
	}
	if desc.Status == personas.StatusComingSoon {
		return nil, fmt.Errorf("persona %q is not available yet", personaID)
	}

	if m.active != nil {
		m.stopActiveLocked()
	}

	if err := m.prepareBackend(ctx, desc); err != nil {
		return nil, err
	}

	token, err := m.tokens.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching session token: %w", err)
	}

	procs := []processors.FrameProcessor{
		processors.NewTalkingStateProcessor(m.talking),
		processors.NewHistoryProcessor(m.history),
		processors.NewFrameLogger(processors.FrameLoggerConfig{Prefix: "session"}),
	}
	p := pipeline.NewPipeline(procs)
	task := pipeline.NewTask(p, personaID)

	ready := make(chan struct{})
	var readyOnce sync.Once
	task.OnSinkFrame(func(f frames.Frame) {
		if _, ok := f.(*frames.StreamReadyFrame); ok {
			readyOnce.Do(func() { close(ready) })
		}
	})

	if err := task.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting frame pipeline: %w", err)
	}

	client := m.newClient(avatar.ClientConfig{URL: m.cfg.AvatarWSURL, Token: token}, task.QueueFrame)

	fail := func(err error) (*Active, error) {
		client.Stop()
		task.Stop()
		return nil, err
	}

	type connector interface {
		Connect(ctx context.Context) error
		StartSession(ctx context.Context, req avatar.StartRequest) error
	}
	if c, ok := client.(connector); ok {
		if err := c.Connect(ctx); err != nil {
			return fail(fmt.Errorf("connecting to avatar stream: %w", err))
		}
		if err := c.StartSession(ctx, avatar.StartRequest{
			AvatarID:    desc.AvatarID,
			KnowledgeID: desc.KnowledgeID,
			Language:    m.cfg.Language,
		}); err != nil {
			return fail(fmt.Errorf("starting avatar session: %w", err))
		}

		select {
		case <-ready:
		case <-time.After(streamReadyTimeout):
			return fail(fmt.Errorf("avatar stream did not become ready"))
		case <-ctx.Done():
			return fail(ctx.Err())
		}
	}

	m.talking.SetAvatarTalking(false)
	m.talking.SetUserTalking(false)
	m.store.SetCurrentPersona(personaID)
	m.handle.Set(client)

	active := &Active{PersonaID: personaID, client: client, task: task}
	m.active = active
	m.log.Info("[%s] Session started", personaID)

	m.speakGreeting(ctx, desc)

	if desc.SessionType == personas.SessionVoice {
		if err := client.StartVoiceChat(ctx, avatar.VoiceChatOptions{
			InputAudioMuted: !desc.AutoStartMic,
		}); err != nil {
			m.log.Warn("[%s] Voice chat start failed: %v", personaID, err)
		}
		active.voiceChat = true
		// Knowledge-driven personas answer spoken input through the SDK's
		// own capture; the local recognizer only serves API-driven turns.
		if m.newController != nil && desc.Mode() == personas.APIDriven {
			ctrl := m.newController(personaID, m.handle, m.talking)
			active.controller = ctrl
			if desc.AutoStartMic {
				if err := ctrl.Start(); err != nil {
					m.log.Warn("[%s] Recognition start failed: %v", personaID, err)
				}
			}
		}
	}

	return active, nil
}

// Stop tears down the active session, if any.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return
	}
	personaID := m.active.PersonaID
	m.stopActiveLocked()
	m.store.SetCurrentPersona("")
	m.log.Info("[%s] Session stopped", personaID)
}

// Switch stops the current session, clears the conversation history
// and boots the new persona.
func (m *Manager) Switch(ctx context.Context, personaID string) (*Active, error) {
	m.Stop()
	m.history.Clear()
	return m.Start(ctx, personaID)
}

// Active returns the live session, or nil.
func (m *Manager) Active() *Active {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Mute mutes the active session's microphone.
func (m *Manager) Mute() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil || m.active.controller == nil {
		return ErrNoActiveSession
	}
	return m.active.controller.Mute()
}

// Unmute resumes the active session's microphone.
func (m *Manager) Unmute() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil || m.active.controller == nil {
		return ErrNoActiveSession
	}
	return m.active.controller.Unmute()
}

func (m *Manager) stopActiveLocked() {
	a := m.active
	m.active = nil
	m.handle.Set(nil)
	if a.controller != nil {
		a.controller.Close()
	}
	if a.voiceChat {
		if err := a.client.CloseVoiceChat(); err != nil {
			m.log.Warn("[%s] Close voice chat: %v", a.PersonaID, err)
		}
	}
	if err := a.client.Stop(); err != nil {
		m.log.Warn("[%s] Avatar stop: %v", a.PersonaID, err)
	}
	a.task.Stop()
}

// prepareBackend runs the persona-specific work that must happen
// before the avatar session exists.
func (m *Manager) prepareBackend(ctx context.Context, desc personas.Descriptor) error {
	switch desc.ID {
	case personas.GestorCobranza:
		// The collections backend session is created from the pre-chat
		// form; the session must already be stored.
		if sess := m.store.GetSession(desc.ID); sess == nil || sess.SessionID == "" {
			return fmt.Errorf("persona %q requires a backend session before starting", desc.ID)
		}
	case personas.BCGProduct:
		sess := m.store.GetSession(desc.ID)
		if sess == nil || sess.SelectedProduct == "" {
			return fmt.Errorf("persona %q requires a selected product before starting", desc.ID)
		}
		if sess.ConversationID == "" {
			sess.ConversationID = uuid.NewString()
			m.store.SetSession(desc.ID, *sess)
		}
		if m.portfolio != nil {
			if _, err := m.portfolio.InitializeConversation(ctx, sess.ConversationID, sess.SelectedProduct); err != nil {
				return fmt.Errorf("initializing portfolio conversation: %w", err)
			}
		}
	}
	return nil
}

// speakGreeting delivers the opening line exactly once per session:
// the backend-provided message when the form flow produced one,
// otherwise the persona's canned greeting.
func (m *Manager) speakGreeting(ctx context.Context, desc personas.Descriptor) {
	text := desc.Greeting
	if sess := m.store.GetSession(desc.ID); sess != nil && sess.Message != "" {
		text = sess.Message
	}
	if text == "" {
		return
	}

	// The transcript entry arrives through the avatar talking events,
	// so nothing is appended to history here.
	if err := m.handle.Speak(ctx, avatar.SpeakRequest{
		Text: text,
		Type: avatar.TaskTypeRepeat,
		Mode: avatar.TaskModeAsync,
	}); err != nil {
		m.log.Warn("[%s] Greeting failed: %v", desc.ID, err)
	}
}
