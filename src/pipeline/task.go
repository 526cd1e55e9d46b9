package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/altavoz-labs/avatarflow/src/frames"
	"github.com/altavoz-labs/avatarflow/src/logger"
)

// Task orchestrates the execution of a pipeline for one persona session.
type Task struct {
	pipeline *Pipeline
	ctx      context.Context
	cancel   context.CancelFunc

	personaID string

	started  bool
	finished bool
	mu       sync.RWMutex

	onStarted   func()
	onFinished  func()
	onError     func(error)
	onSinkFrame func(frames.Frame)

	done chan struct{}
	log  *logger.Logger
}

// NewTask creates a task driving the pipeline for the given persona.
func NewTask(p *Pipeline, personaID string) *Task {
	t := &Task{
		pipeline:  p,
		personaID: personaID,
		done:      make(chan struct{}),
		log:       logger.WithComponent("PipelineTask"),
	}
	p.initialize(t)
	return t
}

// OnStarted sets a callback for when the pipeline starts.
func (t *Task) OnStarted(callback func()) {
	t.onStarted = callback
}

// OnFinished sets a callback for when the pipeline finishes.
func (t *Task) OnFinished(callback func()) {
	t.onFinished = callback
}

// OnError sets a callback for errors surfaced by the pipeline.
func (t *Task) OnError(callback func(error)) {
	t.onError = callback
}

// OnSinkFrame sets a callback invoked for every frame that reaches the sink.
// The session bootstrap uses it to react to StreamReadyFrame.
func (t *Task) OnSinkFrame(callback func(frames.Frame)) {
	t.onSinkFrame = callback
}

// Start launches the pipeline and sends the StartFrame. It returns once the
// pipeline is running; frames are processed until Stop or an EndFrame.
func (t *Task) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return fmt.Errorf("pipeline already started")
	}
	t.started = true
	t.ctx, t.cancel = context.WithCancel(ctx)
	t.mu.Unlock()

	if err := t.pipeline.Start(t.ctx); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}

	if err := t.pipeline.QueueFrame(frames.NewStartFrame(t.personaID)); err != nil {
		return fmt.Errorf("failed to queue start frame: %w", err)
	}

	t.log.Info("pipeline running for persona %q", t.personaID)
	return nil
}

// QueueFrame feeds a frame into the running pipeline.
func (t *Task) QueueFrame(frame frames.Frame) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.started {
		return fmt.Errorf("pipeline not started")
	}
	if t.finished {
		return fmt.Errorf("pipeline already finished")
	}
	return t.pipeline.QueueFrame(frame)
}

// Stop cancels the pipeline and stops all processors.
func (t *Task) Stop() {
	t.mu.Lock()
	cancel := t.cancel
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if err := t.pipeline.Stop(); err != nil {
		t.log.Error("stopping pipeline: %v", err)
	}
	t.markFinished()
}

// Done is closed once the pipeline has finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

func (t *Task) handleSinkFrame(frame frames.Frame) error {
	if t.onSinkFrame != nil {
		t.onSinkFrame(frame)
	}

	switch f := frame.(type) {
	case *frames.StartFrame:
		if t.onStarted != nil {
			t.onStarted()
		}
	case *frames.EndFrame:
		t.log.Debug("end frame reached sink, finishing")
		t.markFinished()
		if t.cancel != nil {
			t.cancel()
		}
	case *frames.ErrorFrame:
		if t.onError != nil {
			t.onError(f.Error)
		}
	}
	return nil
}

func (t *Task) handleUpstreamFrame(frame frames.Frame) error {
	if errorFrame, ok := frame.(*frames.ErrorFrame); ok {
		t.log.Warn("upstream error frame: %v", errorFrame.Error)
		if t.onError != nil {
			t.onError(errorFrame.Error)
		}
	}
	return nil
}

func (t *Task) markFinished() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.finished {
		t.finished = true
		close(t.done)
		if t.onFinished != nil {
			t.onFinished()
		}
	}
}
