package transfer

import (
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-tiles/engine/diagnostics"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer"
	"github.com/Carmen-Shannon/oxy-tiles/engine/shared_state"
)

// DefaultCapacity is the number of messages an Endpoint queues before sends fail.
const DefaultCapacity = 64

// endpoint is the implementation of the Endpoint interface.
type endpoint struct {
	queue    chan Message
	reporter diagnostics.Reporter

	sent     atomic.Uint64
	received atomic.Uint64
	rejected atomic.Uint64
	dropped  atomic.Uint64
}

// Stats counts endpoint traffic since creation.
type Stats struct {
	Sent     uint64
	Received uint64
	Rejected uint64
	Dropped  uint64
}

// Endpoint is the one-way bulk channel from the input thread to the render thread. Send
// methods are called by the input thread only and never block. Receive and Drain are called
// by the render thread only.
type Endpoint interface {
	// SendInit delivers the surface and shared state channel the render thread needs to start.
	//
	// Parameters:
	//   - surface: the platform surface handle and initial size
	//   - shared: the shared state channel
	//
	// Returns:
	//   - error: diagnostics.ErrQueueFull if the queue is full
	SendInit(surface renderer.Surface, shared *shared_state.Channel) error

	// SendResize delivers a new framebuffer size.
	//
	// Returns:
	//   - error: diagnostics.ErrQueueFull if the queue is full
	SendResize(width, height int) error

	// SendGrid moves a tile grid to the render thread. buf is detached even when the queue is
	// full.
	//
	// Parameters:
	//   - buf: the grid, row-major
	//   - size: grid edge length, or <= 0 to infer it from the element count
	//
	// Returns:
	//   - error: diagnostics.ErrBufferDetached if buf was already sent, diagnostics.ErrQueueFull
	//     if the queue is full
	SendGrid(buf *Buffer[uint32], size int) error

	// SendEntities moves an entity table to the render thread. buf is detached even when the
	// queue is full.
	//
	// Parameters:
	//   - buf: the records, RecordWidth values each
	//   - count: number of records
	//
	// Returns:
	//   - error: diagnostics.ErrBufferDetached if buf was already sent, diagnostics.ErrQueueFull
	//     if the queue is full
	SendEntities(buf *Buffer[float32], count int) error

	// Receive pops one message without blocking and validates its shape. A message that fails
	// validation is discarded and returned as an error wrapping diagnostics.ErrShapeMismatch.
	//
	// Returns:
	//   - Message: the validated message
	//   - bool: false when the queue is empty
	//   - error: the validation error for a discarded message
	Receive() (Message, bool, error)

	// Drain receives every queued message, invoking fn for each valid one and reporting each
	// rejected one.
	//
	// Parameters:
	//   - fn: the handler for valid messages
	//
	// Returns:
	//   - int: the number of messages handed to fn
	Drain(fn func(Message)) int

	// Stats returns the traffic counters.
	Stats() Stats
}

var _ Endpoint = &endpoint{}

// NewEndpoint creates an Endpoint configured by options.
//
// Parameters:
//   - options: variadic list of EndpointOption functions
//
// Returns:
//   - Endpoint: the endpoint
func NewEndpoint(options ...EndpointOption) Endpoint {
	cfg := endpointConfig{capacity: DefaultCapacity}
	for _, opt := range options {
		opt(&cfg)
	}
	if cfg.capacity <= 0 {
		cfg.capacity = DefaultCapacity
	}
	return &endpoint{
		queue:    make(chan Message, cfg.capacity),
		reporter: cfg.reporter,
	}
}

func (e *endpoint) push(m Message) error {
	select {
	case e.queue <- m:
		e.sent.Add(1)
		return nil
	default:
		e.dropped.Add(1)
		return diagnostics.ErrQueueFull
	}
}

func (e *endpoint) SendInit(surface renderer.Surface, shared *shared_state.Channel) error {
	return e.push(Message{Kind: KindInit, Surface: surface, Shared: shared})
}

func (e *endpoint) SendResize(width, height int) error {
	return e.push(Message{Kind: KindResize, Width: width, Height: height})
}

func (e *endpoint) SendGrid(buf *Buffer[uint32], size int) error {
	tiles, err := buf.take()
	if err != nil {
		return err
	}
	return e.push(Message{Kind: KindUpdateGrid, Tiles: tiles, Size: size})
}

func (e *endpoint) SendEntities(buf *Buffer[float32], count int) error {
	records, err := buf.take()
	if err != nil {
		return err
	}
	return e.push(Message{Kind: KindUpdateEntities, Records: records, Count: count})
}

func (e *endpoint) Receive() (Message, bool, error) {
	select {
	case m := <-e.queue:
		if err := m.validate(); err != nil {
			e.rejected.Add(1)
			return Message{}, true, err
		}
		e.received.Add(1)
		return m, true, nil
	default:
		return Message{}, false, nil
	}
}

func (e *endpoint) Drain(fn func(Message)) int {
	handled := 0
	for {
		m, ok, err := e.Receive()
		if !ok {
			return handled
		}
		if err != nil {
			diagnostics.Report(e.reporter, "transfer", err, diagnostics.KindShapeMismatch)
			continue
		}
		fn(m)
		handled++
	}
}

func (e *endpoint) Stats() Stats {
	return Stats{
		Sent:     e.sent.Load(),
		Received: e.received.Load(),
		Rejected: e.rejected.Load(),
		Dropped:  e.dropped.Load(),
	}
}
