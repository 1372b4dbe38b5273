package compositor

import "github.com/Carmen-Shannon/oxy-tiles/common"

// LayerOption is a functional option applied to a layer during construction.
type LayerOption func(*layerBase)

// WithName sets the debug name used for GPU labels and diagnostics.
//
// Parameters:
//   - name: the name
//
// Returns:
//   - LayerOption: a function that applies the name option
func WithName(name string) LayerOption {
	return func(b *layerBase) {
		b.name = name
	}
}

// WithVisible sets the initial visibility. Layers start visible.
//
// Parameters:
//   - visible: the initial visibility
//
// Returns:
//   - LayerOption: a function that applies the visibility option
func WithVisible(visible bool) LayerOption {
	return func(b *layerBase) {
		b.visible = visible
	}
}

// WithViewport pins the layer to a screen rectangle. Layers without a viewport cover the whole
// surface.
//
// Parameters:
//   - r: the rectangle in pixels
//
// Returns:
//   - LayerOption: a function that applies the viewport option
func WithViewport(r common.Rect) LayerOption {
	return func(b *layerBase) {
		b.viewport = &r
	}
}
