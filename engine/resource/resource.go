// Package resource owns the GPU-resident buffers built from bulk data received by the render
// thread. Each manager is the sole owner of its buffer; layers read the handle and watch the
// version counter, which increments only when the buffer is recreated.
package resource

import (
	"time"

	"github.com/Carmen-Shannon/oxy-tiles/engine/diagnostics"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer"
)

// DefaultMoveDuration is how long an entity takes to glide from its displayed position to a
// new target.
const DefaultMoveDuration = 300 * time.Millisecond

// BufferAllocator is the subset of renderer.Renderer the managers need.
type BufferAllocator interface {
	CreateBuffer(label string, size uint64, usage renderer.BufferUsage) (renderer.Buffer, error)
	WriteBuffer(buf renderer.Buffer, offset uint64, data []byte) error
}

var _ BufferAllocator = renderer.Renderer(nil)

type managerConfig struct {
	label        string
	reporter     diagnostics.Reporter
	moveDuration time.Duration
	clock        func() time.Time
}

func newManagerConfig(label string, options ...ManagerOption) managerConfig {
	cfg := managerConfig{
		label:        label,
		moveDuration: DefaultMoveDuration,
		clock:        time.Now,
	}
	for _, opt := range options {
		opt(&cfg)
	}
	if cfg.moveDuration <= 0 {
		cfg.moveDuration = DefaultMoveDuration
	}
	if cfg.clock == nil {
		cfg.clock = time.Now
	}
	return cfg
}

func (c *managerConfig) fail(err error, fallback diagnostics.Kind) error {
	diagnostics.Report(c.reporter, c.label, err, fallback)
	return err
}
