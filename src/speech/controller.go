package speech

import (
	"context"
	"sync"
	"time"

	"github.com/altavoz-labs/avatarflow/src/logger"
	"github.com/altavoz-labs/avatarflow/src/processors"
	"github.com/altavoz-labs/avatarflow/src/store"
)

// Restart and cooldown timings, matching the product's turn cadence.
const (
	resumeCooldown    = 2 * time.Second
	resumeStartDelay  = 1 * time.Second
	errorRestartDelay = 1500 * time.Millisecond
	endedRestartDelay = 1 * time.Second
	dispatchTimeout   = 45 * time.Second
)

// State is the controller's lifecycle phase.
type State int

const (
	// Idle means recognition is off and will not restart on its own.
	Idle State = iota
	// Listening means the engine is running and transcripts are handled.
	Listening
	// Suspended means recognition is paused for a turn in flight and
	// will resume after the cooldown.
	Suspended
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	case Suspended:
		return "suspended"
	default:
		return "unknown"
	}
}

// Dispatcher routes a validated user utterance to the active persona.
type Dispatcher interface {
	Dispatch(ctx context.Context, personaID, utterance string) error
}

// AvatarControl is the slice of the avatar session the controller
// needs for barge-in and microphone control.
type AvatarControl interface {
	Interrupt(ctx context.Context) error
	MuteInputAudio() error
	UnmuteInputAudio() error
}

// Controller drives a recognition engine for one persona's session:
// it filters transcripts, interrupts the avatar on barge-in, hands
// final utterances to the dispatcher, and manages restart timing.
type Controller struct {
	personaID string
	engine    Engine
	router    Dispatcher
	avatar    AvatarControl
	talking   *processors.TalkingState
	store     *store.Store
	log       *logger.Logger

	mu          sync.Mutex
	state       State
	muted       bool
	voiceActive bool
	interrupted bool // barge-in already fired for the current avatar turn
	timer       *time.Timer
	closed      bool
}

// NewController wires a controller. The engine's handlers are taken
// over; callers must not reset them afterwards.
func NewController(personaID string, engine Engine, router Dispatcher, avatar AvatarControl, talking *processors.TalkingState, st *store.Store) *Controller {
	c := &Controller{
		personaID: personaID,
		engine:    engine,
		router:    router,
		avatar:    avatar,
		talking:   talking,
		store:     st,
		log:       logger.WithComponent("SpeechController"),
	}
	engine.SetHandlers(Handlers{
		OnResult: c.handleResult,
		OnError:  c.handleError,
		OnEnd:    c.handleEnd,
	})
	return c
}

// Start begins listening. It is a no-op if the controller is muted.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.closed || c.muted {
		c.mu.Unlock()
		return nil
	}
	c.voiceActive = true
	c.state = Listening
	c.mu.Unlock()

	c.log.Info("[%s] Recognition started", c.personaID)
	return c.engine.Start()
}

// Stop ends listening and cancels any pending restart.
func (c *Controller) Stop() error {
	c.mu.Lock()
	c.voiceActive = false
	c.state = Idle
	c.cancelTimerLocked()
	c.mu.Unlock()

	c.log.Info("[%s] Recognition stopped", c.personaID)
	return c.engine.Abort()
}

// Close stops the controller permanently. Used on persona switch.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return c.Stop()
}

// Mute stops the engine and mutes the avatar session's input audio.
func (c *Controller) Mute() error {
	c.mu.Lock()
	c.muted = true
	c.state = Idle
	c.cancelTimerLocked()
	c.mu.Unlock()

	if err := c.engine.Abort(); err != nil {
		c.log.Warn("[%s] Engine abort on mute: %v", c.personaID, err)
	}
	return c.avatar.MuteInputAudio()
}

// Unmute re-enables input audio and resumes listening if voice mode
// is active.
func (c *Controller) Unmute() error {
	c.mu.Lock()
	c.muted = false
	active := c.voiceActive && !c.closed
	if active {
		c.state = Listening
	}
	c.mu.Unlock()

	if err := c.avatar.UnmuteInputAudio(); err != nil {
		return err
	}
	if active {
		return c.engine.Start()
	}
	return nil
}

// State returns the current lifecycle phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) handleResult(text string, isFinal bool) {
	if !c.active() {
		return
	}

	if !isFinal {
		c.handleInterim(text)
		return
	}
	c.handleFinal(text)
}

// handleInterim implements barge-in: the first non-empty interim
// transcript while the avatar is talking interrupts it. Interim
// results never dispatch.
func (c *Controller) handleInterim(text string) {
	if text == "" {
		return
	}
	if !c.talking.AvatarTalking() {
		return
	}

	c.mu.Lock()
	if c.interrupted {
		c.mu.Unlock()
		return
	}
	c.interrupted = true
	c.mu.Unlock()

	c.log.Info("[%s] Barge-in detected, interrupting avatar", c.personaID)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.avatar.Interrupt(ctx); err != nil {
		c.log.Warn("[%s] Interrupt failed: %v", c.personaID, err)
	}
	c.talking.SetAvatarTalking(false)
}

func (c *Controller) handleFinal(text string) {
	c.mu.Lock()
	c.interrupted = false
	c.mu.Unlock()

	if !ValidTranscript(text) {
		c.log.Debug("[%s] Dropped transcript: %q", c.personaID, text)
		return
	}

	// Suspend recognition while the turn is in flight, so the avatar's
	// own voice is not transcribed back at us.
	c.mu.Lock()
	c.state = Suspended
	c.cancelTimerLocked()
	c.mu.Unlock()
	if err := c.engine.Abort(); err != nil {
		c.log.Warn("[%s] Engine abort before dispatch: %v", c.personaID, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()
	if err := c.router.Dispatch(ctx, c.personaID, text); err != nil {
		c.log.Error("[%s] Dispatch failed: %v", c.personaID, err)
	}

	c.scheduleResume()
}

// scheduleResume restarts recognition after the post-turn cooldown.
// The engine start itself is delayed a further beat so the avatar's
// opening audio does not trigger an immediate barge-in.
func (c *Controller) scheduleResume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelTimerLocked()
	c.timer = time.AfterFunc(resumeCooldown, func() {
		c.mu.Lock()
		c.cancelTimerLocked()
		c.timer = time.AfterFunc(resumeStartDelay, c.resume)
		c.mu.Unlock()
	})
}

func (c *Controller) resume() {
	c.mu.Lock()
	ok := c.voiceActive && !c.muted && !c.closed && c.store.CurrentPersona() == c.personaID
	if ok {
		c.state = Listening
	}
	c.mu.Unlock()
	if !ok {
		return
	}

	c.log.Debug("[%s] Resuming recognition", c.personaID)
	if err := c.engine.Start(); err != nil {
		c.log.Warn("[%s] Engine restart failed: %v", c.personaID, err)
	}
}

func (c *Controller) handleError(err error) {
	if !c.active() {
		return
	}
	c.log.Warn("[%s] Recognition error: %v", c.personaID, err)
	c.restartAfter(errorRestartDelay)
}

func (c *Controller) handleEnd() {
	if !c.active() {
		return
	}
	c.log.Debug("[%s] Recognition ended, scheduling restart", c.personaID)
	c.restartAfter(endedRestartDelay)
}

func (c *Controller) restartAfter(delay time.Duration) {
	c.mu.Lock()
	if c.state == Suspended {
		// A resume is already scheduled for the turn in flight.
		c.mu.Unlock()
		return
	}
	c.cancelTimerLocked()
	c.timer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		ok := c.voiceActive && !c.muted && !c.closed && !c.talking.AvatarTalking()
		c.mu.Unlock()
		if !ok {
			return
		}
		c.resume()
	})
	c.mu.Unlock()
}

// active reports whether callbacks for this controller should still be
// honored. Transcripts arriving after a persona switch are dropped.
func (c *Controller) active() bool {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return false
	}
	return c.store.CurrentPersona() == c.personaID
}

func (c *Controller) cancelTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
