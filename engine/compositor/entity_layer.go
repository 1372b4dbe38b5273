package compositor

import (
	_ "embed"
	"time"

	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/pipeline"
)

//go:embed assets/entity.wgsl
var entityShaderSource string

const entityPipelineKey = "layer.entities"

// EntityLayer draws one marker per entity at its displayed, possibly interpolated, position.
type EntityLayer struct {
	layerBase
}

var _ Layer = &EntityLayer{}

// NewEntityLayer creates an EntityLayer.
//
// Parameters:
//   - options: variadic list of LayerOption functions
//
// Returns:
//   - *EntityLayer: the layer, ready for Compositor.Add
func NewEntityLayer(options ...LayerOption) *EntityLayer {
	return &EntityLayer{layerBase: newLayerBase("entities", options...)}
}

func (l *EntityLayer) Init(ctx *Context) error {
	return l.setup(ctx, entityPipelineKey, entityShaderSource, true,
		[]pipeline.BindingLayout{uniformBinding, storageBinding}, nil)
}

func (l *EntityLayer) Update(_ time.Time) {
	if l.ctx.Entities == nil || !l.ctx.Entities.Ready() {
		return
	}
	var mapSize float32
	if l.ctx.Map != nil {
		mapSize = float32(l.ctx.Map.Size())
	}
	l.writeCamera(l.view(), mapSize)
}

func (l *EntityLayer) Render(pass renderer.RenderPass) error {
	e := l.ctx.Entities
	if e == nil || !e.Ready() || e.Count() == 0 {
		return nil
	}
	l.provider.SetBuffer(1, e.ResourceHandle())
	if err := l.bind(pass, e.Version()); err != nil {
		return err
	}
	pass.SetScissorRect(l.surfaceRect())
	pass.Draw(quadVertices, uint32(e.Count()))
	return nil
}
