package processors

import (
	"context"
	"reflect"

	"github.com/altavoz-labs/avatarflow/src/frames"
	"github.com/altavoz-labs/avatarflow/src/logger"
)

// FrameLogger is a passthrough processor that logs frames at debug level.
type FrameLogger struct {
	*BaseProcessor
	log     *logger.Logger
	ignored map[reflect.Type]bool
}

// FrameLoggerConfig configures the frame logger.
type FrameLoggerConfig struct {
	// Prefix for log messages (e.g., "Session", "Speech")
	Prefix string

	// IgnoredFrameTypes are frame types to skip (e.g., high-frequency
	// transcript fragments)
	IgnoredFrameTypes []frames.Frame
}

func NewFrameLogger(config FrameLoggerConfig) *FrameLogger {
	if config.Prefix == "" {
		config.Prefix = "Frame"
	}

	fl := &FrameLogger{
		log:     logger.WithComponent("FrameLogger:" + config.Prefix),
		ignored: make(map[reflect.Type]bool),
	}
	for _, f := range config.IgnoredFrameTypes {
		fl.ignored[reflect.TypeOf(f)] = true
	}

	fl.BaseProcessor = NewBaseProcessor("FrameLogger:"+config.Prefix, fl)
	return fl
}

func (fl *FrameLogger) HandleFrame(ctx context.Context, frame frames.Frame, direction frames.FrameDirection) error {
	if frame == nil || reflect.ValueOf(frame).IsNil() {
		fl.log.Warn("received nil frame, skipping")
		return nil
	}

	if !fl.ignored[reflect.TypeOf(frame)] {
		fl.log.Debug("%s %s", direction, frame.String())
	}

	return fl.PushFrame(frame, direction)
}
