// Package diagnostics holds the error taxonomy shared by the transfer, resource and compositor
// packages, plus the observable reporting channel those packages publish to. Errors never
// interrupt the frame loop; they are returned to the immediate caller and mirrored here so an
// integrator can decide policy.
package diagnostics

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

var (
	// ErrShapeMismatch is returned when a bulk buffer length does not match its declared
	// element count or grid size. The update is rejected and previous state is retained.
	ErrShapeMismatch = errors.New("buffer shape mismatch")

	// ErrNotInitialized is returned when an operation runs before its required predecessor,
	// such as a data message arriving before init.
	ErrNotInitialized = errors.New("not initialized")

	// ErrBufferDetached is returned when a buffer handle is used after its contents were
	// transferred to another owner.
	ErrBufferDetached = errors.New("buffer detached")

	// ErrQueueFull is returned when the transfer queue cannot accept another message without
	// blocking the sender.
	ErrQueueFull = errors.New("transfer queue full")
)

// Kind classifies a reported event.
type Kind int

const (
	// KindShapeMismatch marks a rejected bulk update.
	KindShapeMismatch Kind = iota
	// KindUninitialized marks an operation that was skipped because a predecessor had not run.
	KindUninitialized
	// KindTransport marks a failure to enqueue or decode a transfer message.
	KindTransport
	// KindResource marks a GPU resource creation or write failure.
	KindResource
	// KindRender marks a layer or pass failure during a frame.
	KindRender
)

func (k Kind) String() string {
	switch k {
	case KindShapeMismatch:
		return "shape-mismatch"
	case KindUninitialized:
		return "uninitialized"
	case KindTransport:
		return "transport"
	case KindResource:
		return "resource"
	case KindRender:
		return "render"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// KindOf maps an error onto the taxonomy using errors.Is against the package sentinels.
// Errors that match no sentinel are classified with the fallback kind.
//
// Parameters:
//   - err: the error to classify
//   - fallback: kind to use when err matches no sentinel
//
// Returns:
//   - Kind: the classified kind
func KindOf(err error, fallback Kind) Kind {
	switch {
	case errors.Is(err, ErrShapeMismatch):
		return KindShapeMismatch
	case errors.Is(err, ErrNotInitialized):
		return KindUninitialized
	case errors.Is(err, ErrBufferDetached), errors.Is(err, ErrQueueFull):
		return KindTransport
	default:
		return fallback
	}
}

// Event is a single diagnostic record.
type Event struct {
	Kind   Kind
	Source string
	Err    error
	Time   time.Time
}

func (e Event) String() string {
	return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Source, e.Err)
}

// Reporter receives diagnostic events. Implementations must not block.
type Reporter interface {
	// Report publishes an event.
	//
	// Parameters:
	//   - e: the event to publish
	Report(e Event)
}

// Report is a convenience that builds an Event from err, logs it at warn level, and publishes it
// to r. A nil reporter only logs.
//
// Parameters:
//   - r: the destination reporter (nil safe)
//   - source: the component reporting the error
//   - err: the error to report (nil is ignored)
//   - fallback: kind used when err matches no sentinel
func Report(r Reporter, source string, err error, fallback Kind) {
	if err == nil {
		return
	}
	e := Event{
		Kind:   KindOf(err, fallback),
		Source: source,
		Err:    err,
		Time:   time.Now(),
	}
	Logger().Warn("diagnostic", "kind", e.Kind.String(), "source", source, "err", err)
	if r != nil {
		r.Report(e)
	}
}

// Channel is a Reporter backed by a buffered Go channel. Publishing never blocks: when the
// buffer is full the event is counted as dropped.
type Channel struct {
	events  chan Event
	dropped atomic.Uint64
}

var _ Reporter = &Channel{}

// NewChannel creates a diagnostics channel with the given buffer capacity.
// Capacities <= 0 default to 128.
//
// Parameters:
//   - capacity: the number of events buffered before new ones are dropped
//
// Returns:
//   - *Channel: the new channel
func NewChannel(capacity int) *Channel {
	if capacity <= 0 {
		capacity = 128
	}
	return &Channel{events: make(chan Event, capacity)}
}

func (c *Channel) Report(e Event) {
	select {
	case c.events <- e:
	default:
		c.dropped.Add(1)
	}
}

// Events returns the receive side of the channel for the integrator to consume.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// Dropped returns how many events were discarded because the buffer was full.
func (c *Channel) Dropped() uint64 {
	return c.dropped.Load()
}

// Pending drains and returns every event currently buffered without blocking.
func (c *Channel) Pending() []Event {
	var out []Event
	for {
		select {
		case e := <-c.events:
			out = append(out, e)
		default:
			return out
		}
	}
}
