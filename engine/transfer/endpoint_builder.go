package transfer

import "github.com/Carmen-Shannon/oxy-tiles/engine/diagnostics"

type endpointConfig struct {
	capacity int
	reporter diagnostics.Reporter
}

// EndpointOption is a functional option applied to an Endpoint during construction via NewEndpoint.
type EndpointOption func(*endpointConfig)

// WithCapacity sets how many messages may be queued before sends fail with ErrQueueFull.
//
// Parameters:
//   - capacity: queue length, values <= 0 select DefaultCapacity
//
// Returns:
//   - EndpointOption: a function that applies the capacity option
func WithCapacity(capacity int) EndpointOption {
	return func(c *endpointConfig) {
		c.capacity = capacity
	}
}

// WithReporter sets where Drain reports rejected messages.
//
// Parameters:
//   - r: the diagnostics reporter
//
// Returns:
//   - EndpointOption: a function that applies the reporter option
func WithReporter(r diagnostics.Reporter) EndpointOption {
	return func(c *endpointConfig) {
		c.reporter = r
	}
}
