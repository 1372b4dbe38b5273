package compositor

import (
	_ "embed"
	"time"

	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/pipeline"
)

//go:embed assets/map.wgsl
var mapShaderSource string

const mapPipelineKey = "layer.map"

// MapLayer draws the tile grid across the whole surface. It is the usual bottom layer and,
// having no viewport, the default capture owner.
type MapLayer struct {
	layerBase
}

var _ Layer = &MapLayer{}

// NewMapLayer creates a MapLayer.
//
// Parameters:
//   - options: variadic list of LayerOption functions
//
// Returns:
//   - *MapLayer: the layer, ready for Compositor.Add
func NewMapLayer(options ...LayerOption) *MapLayer {
	return &MapLayer{layerBase: newLayerBase("map", options...)}
}

func (l *MapLayer) Init(ctx *Context) error {
	return l.setup(ctx, mapPipelineKey, mapShaderSource, false,
		[]pipeline.BindingLayout{uniformBinding, storageBinding}, nil)
}

func (l *MapLayer) Update(_ time.Time) {
	if l.ctx.Map == nil || !l.ctx.Map.Ready() {
		return
	}
	l.writeCamera(l.view(), float32(l.ctx.Map.Size()))
}

func (l *MapLayer) Render(pass renderer.RenderPass) error {
	m := l.ctx.Map
	if m == nil || !m.Ready() {
		return nil
	}
	l.provider.SetBuffer(1, m.ResourceHandle())
	if err := l.bind(pass, m.Version()); err != nil {
		return err
	}
	pass.SetScissorRect(l.surfaceRect())
	pass.Draw(quadVertices, uint32(m.Size()*m.Size()))
	return nil
}
