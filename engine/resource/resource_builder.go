package resource

import (
	"time"

	"github.com/Carmen-Shannon/oxy-tiles/engine/diagnostics"
)

// ManagerOption is a functional option applied to a MapManager or EntityManager during construction.
type ManagerOption func(*managerConfig)

// WithLabel sets the debug label used for the GPU buffer and diagnostics.
//
// Parameters:
//   - label: the label
//
// Returns:
//   - ManagerOption: a function that applies the label option
func WithLabel(label string) ManagerOption {
	return func(c *managerConfig) {
		c.label = label
	}
}

// WithReporter sets where rejected updates and allocation failures are reported.
//
// Parameters:
//   - r: the diagnostics reporter
//
// Returns:
//   - ManagerOption: a function that applies the reporter option
func WithReporter(r diagnostics.Reporter) ManagerOption {
	return func(c *managerConfig) {
		c.reporter = r
	}
}

// WithMoveDuration sets the entity interpolation duration. Ignored by MapManager.
//
// Parameters:
//   - d: the duration, values <= 0 select DefaultMoveDuration
//
// Returns:
//   - ManagerOption: a function that applies the move duration option
func WithMoveDuration(d time.Duration) ManagerOption {
	return func(c *managerConfig) {
		c.moveDuration = d
	}
}

// WithClock sets the monotonic time source read when an entity update arrives.
//
// Parameters:
//   - clock: the time source, defaults to time.Now
//
// Returns:
//   - ManagerOption: a function that applies the clock option
func WithClock(clock func() time.Time) ManagerOption {
	return func(c *managerConfig) {
		c.clock = clock
	}
}
