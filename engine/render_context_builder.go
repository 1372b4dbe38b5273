package engine

import (
	"github.com/Carmen-Shannon/oxy-tiles/engine/diagnostics"
	"github.com/Carmen-Shannon/oxy-tiles/engine/resource"
)

// RenderContextOption is a functional option for configuring a RenderContext.
type RenderContextOption func(*renderContext)

// WithRendererFactory replaces the default WebGPU renderer construction.
//
// Parameters:
//   - f: the factory called with the surface from the init message
//
// Returns:
//   - RenderContextOption: option function to apply
func WithRendererFactory(f RendererFactory) RenderContextOption {
	return func(rc *renderContext) {
		if f != nil {
			rc.rendererFactory = f
		}
	}
}

// WithLayers sets the factory for the layer stack built at init.
//
// Parameters:
//   - f: the layer factory
//
// Returns:
//   - RenderContextOption: option function to apply
func WithLayers(f LayerFactory) RenderContextOption {
	return func(rc *renderContext) {
		if f != nil {
			rc.layerFactory = f
		}
	}
}

// WithDiagnostics sets the reporter that receives render-thread diagnostics.
//
// Parameters:
//   - r: the reporter
//
// Returns:
//   - RenderContextOption: option function to apply
func WithDiagnostics(r diagnostics.Reporter) RenderContextOption {
	return func(rc *renderContext) {
		rc.reporter = r
	}
}

// WithManagerOptions appends options applied to both resource managers.
//
// Parameters:
//   - options: the manager options, such as resource.WithMoveDuration
//
// Returns:
//   - RenderContextOption: option function to apply
func WithManagerOptions(options ...resource.ManagerOption) RenderContextOption {
	return func(rc *renderContext) {
		rc.managerOptions = append(rc.managerOptions, options...)
	}
}
