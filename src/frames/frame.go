package frames

import (
	"fmt"
	"sync/atomic"
	"time"
)

var frameCounter uint64

// FrameDirection indicates the direction a frame is traveling through the
// dispatcher chain.
type FrameDirection int

const (
	Downstream FrameDirection = iota // Normal flow: avatar event source -> sinks
	Upstream                         // Reverse flow: sinks -> source
)

func (d FrameDirection) String() string {
	switch d {
	case Downstream:
		return "downstream"
	case Upstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// Frame is the base interface for all events flowing through the dispatcher.
type Frame interface {
	ID() uint64
	Name() string
	At() time.Time
	String() string
}

// BaseFrame provides common frame functionality.
type BaseFrame struct {
	id   uint64
	name string
	at   time.Time
}

func NewBaseFrame(name string) *BaseFrame {
	return &BaseFrame{
		id:   atomic.AddUint64(&frameCounter, 1),
		name: name,
		at:   time.Now(),
	}
}

func (f *BaseFrame) ID() uint64 {
	return f.id
}

func (f *BaseFrame) Name() string {
	return f.name
}

func (f *BaseFrame) At() time.Time {
	return f.at
}

func (f *BaseFrame) String() string {
	return fmt.Sprintf("%s[id=%d, at=%v]", f.name, f.id, f.at.Format("15:04:05.000"))
}

// FrameCategory partitions frames for priority handling.
type FrameCategory int

const (
	SystemCategory  FrameCategory = iota // Highest priority, processed immediately
	DataCategory                         // Normal priority, ordered processing
	ControlCategory                      // Ordered processing, speaking-state changes
)

func (c FrameCategory) String() string {
	switch c {
	case SystemCategory:
		return "system"
	case DataCategory:
		return "data"
	case ControlCategory:
		return "control"
	default:
		return "unknown"
	}
}

// Categorizable frames can report their category.
type Categorizable interface {
	Category() FrameCategory
}
