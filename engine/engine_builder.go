package engine

import (
	"github.com/Carmen-Shannon/oxy-tiles/engine/camera"
	"github.com/Carmen-Shannon/oxy-tiles/engine/diagnostics"
	"github.com/Carmen-Shannon/oxy-tiles/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled.Store(enabled)
	}
}

// WithTickRate sets the pacing tick rate in ticks per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.engineTickRate = tickInterval(fps)
	}
}

// WithWindow sets the window the engine runs its input loop on.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit.Store(int64(frameLimit(fps)))
	}
}

// WithReporter sets the reporter that receives diagnostics from both threads.
//
// Parameters:
//   - r: the reporter, typically a *diagnostics.Channel
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithReporter(r diagnostics.Reporter) EngineBuilderOption {
	return func(e *engine) {
		e.reporter = r
	}
}

// WithCameraOptions configures the camera controller driven by input.
//
// Parameters:
//   - options: camera controller options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithCameraOptions(options ...camera.CameraControllerOption) EngineBuilderOption {
	return func(e *engine) {
		e.cameraOptions = append(e.cameraOptions, options...)
	}
}

// WithRenderContextOptions configures the render context built on the render goroutine.
//
// Parameters:
//   - options: render context options, such as WithRendererFactory or WithLayers
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderContextOptions(options ...RenderContextOption) EngineBuilderOption {
	return func(e *engine) {
		e.renderOptions = append(e.renderOptions, options...)
	}
}

// WithTransferCapacity sets how many messages the transfer queue buffers.
//
// Parameters:
//   - n: queue capacity (defaults to transfer.DefaultCapacity if <= 0)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTransferCapacity(n int) EngineBuilderOption {
	return func(e *engine) {
		if n > 0 {
			e.transferCapacity = n
		}
	}
}
