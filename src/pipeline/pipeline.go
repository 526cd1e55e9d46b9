package pipeline

import (
	"context"
	"fmt"

	"github.com/altavoz-labs/avatarflow/src/frames"
	"github.com/altavoz-labs/avatarflow/src/logger"
	"github.com/altavoz-labs/avatarflow/src/processors"
)

// PipelineSource is the entry point for frames into the pipeline.
type PipelineSource struct {
	*processors.BaseProcessor
	task *Task
}

func newPipelineSource(task *Task) *PipelineSource {
	ps := &PipelineSource{task: task}
	ps.BaseProcessor = processors.NewBaseProcessor("PipelineSource", ps)
	return ps
}

func (p *PipelineSource) HandleFrame(ctx context.Context, frame frames.Frame, direction frames.FrameDirection) error {
	if direction == frames.Upstream {
		if p.task != nil {
			return p.task.handleUpstreamFrame(frame)
		}
		return nil
	}
	return p.PushFrame(frame, direction)
}

// PipelineSink is the exit point for frames from the pipeline.
type PipelineSink struct {
	*processors.BaseProcessor
	task *Task
}

func newPipelineSink(task *Task) *PipelineSink {
	ps := &PipelineSink{task: task}
	ps.BaseProcessor = processors.NewBaseProcessor("PipelineSink", ps)
	return ps
}

func (p *PipelineSink) HandleFrame(ctx context.Context, frame frames.Frame, direction frames.FrameDirection) error {
	if direction == frames.Downstream {
		if p.task != nil {
			return p.task.handleSinkFrame(frame)
		}
		return nil
	}
	return p.PushFrame(frame, direction)
}

// Pipeline connects multiple processors in a linear chain.
type Pipeline struct {
	procs  []processors.FrameProcessor
	source *PipelineSource
	sink   *PipelineSink
	log    *logger.Logger
}

// NewPipeline creates a pipeline from the given processors.
func NewPipeline(procs []processors.FrameProcessor) *Pipeline {
	return &Pipeline{
		procs: procs,
		log:   logger.WithComponent("Pipeline"),
	}
}

func (p *Pipeline) initialize(task *Task) {
	p.source = newPipelineSource(task)
	p.sink = newPipelineSink(task)

	chain := []processors.FrameProcessor{p.source}
	chain = append(chain, p.procs...)
	chain = append(chain, p.sink)

	for i := 0; i < len(chain)-1; i++ {
		chain[i].Link(chain[i+1])
	}

	p.log.Debug("initialized with %d processors", len(p.procs))
}

// Start begins processing in all processors.
func (p *Pipeline) Start(ctx context.Context) error {
	if err := p.source.Start(ctx); err != nil {
		return fmt.Errorf("failed to start source: %w", err)
	}
	for _, proc := range p.procs {
		if err := proc.Start(ctx); err != nil {
			return fmt.Errorf("failed to start processor %s: %w", proc.Name(), err)
		}
	}
	if err := p.sink.Start(ctx); err != nil {
		return fmt.Errorf("failed to start sink: %w", err)
	}
	p.log.Debug("started all processors")
	return nil
}

// Stop gracefully stops all processors in reverse order.
func (p *Pipeline) Stop() error {
	if err := p.sink.Stop(); err != nil {
		p.log.Error("stopping sink: %v", err)
	}
	for i := len(p.procs) - 1; i >= 0; i-- {
		if err := p.procs[i].Stop(); err != nil {
			p.log.Error("stopping processor %s: %v", p.procs[i].Name(), err)
		}
	}
	if err := p.source.Stop(); err != nil {
		p.log.Error("stopping source: %v", err)
	}
	p.log.Debug("stopped all processors")
	return nil
}

// QueueFrame queues a frame at the source of the pipeline.
func (p *Pipeline) QueueFrame(frame frames.Frame) error {
	return p.source.QueueFrame(frame, frames.Downstream)
}
