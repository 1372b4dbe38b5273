package compositor

import (
	_ "embed"
	"encoding/binary"
	"math"
	"time"

	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-tiles/engine/shared_state"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/hover.wgsl
var hoverShaderSource string

const (
	hoverPipelineKey  = "layer.hover"
	hoverUniformBytes = 16
)

// HoverLayer highlights the tile under the pointer, as resolved by the render thread into the
// hovered-tile fields.
type HoverLayer struct {
	layerBase
	tileX, tileY int
}

var _ Layer = &HoverLayer{}

// NewHoverLayer creates a HoverLayer.
//
// Parameters:
//   - options: variadic list of LayerOption functions
//
// Returns:
//   - *HoverLayer: the layer, ready for Compositor.Add
func NewHoverLayer(options ...LayerOption) *HoverLayer {
	return &HoverLayer{
		layerBase: newLayerBase("hover", options...),
		tileX:     shared_state.NoTile,
		tileY:     shared_state.NoTile,
	}
}

func (l *HoverLayer) Init(ctx *Context) error {
	hoverBinding := pipeline.BindingLayout{
		Binding:    1,
		Type:       pipeline.BindingTypeUniform,
		Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
	}
	return l.setup(ctx, hoverPipelineKey, hoverShaderSource, true,
		[]pipeline.BindingLayout{uniformBinding, hoverBinding}, map[int]uint64{1: hoverUniformBytes})
}

func (l *HoverLayer) Update(_ time.Time) {
	l.tileX, l.tileY = l.ctx.Shared.Reader().HoveredTile()
	if l.ctx.Map == nil || !l.ctx.Map.Ready() {
		return
	}
	l.writeCamera(l.view(), float32(l.ctx.Map.Size()))

	active := float32(0)
	if l.tileX != shared_state.NoTile {
		active = 1
	}
	data := make([]byte, hoverUniformBytes)
	binary.LittleEndian.PutUint32(data[0:], math.Float32bits(float32(l.tileX)))
	binary.LittleEndian.PutUint32(data[4:], math.Float32bits(float32(l.tileY)))
	binary.LittleEndian.PutUint32(data[8:], math.Float32bits(active))
	if err := l.provider.WriteBuffers(l.ctx.Renderer, bind_group_provider.BufferWrite{Binding: 1, Data: data}); err != nil {
		l.report(err)
	}
}

// Tile returns the tile highlighted this frame, or -1, -1.
func (l *HoverLayer) Tile() (x, y int) {
	return l.tileX, l.tileY
}

func (l *HoverLayer) Render(pass renderer.RenderPass) error {
	if l.ctx.Map == nil || !l.ctx.Map.Ready() || l.tileX == shared_state.NoTile {
		return nil
	}
	if err := l.bind(pass); err != nil {
		return err
	}
	pass.SetScissorRect(l.surfaceRect())
	pass.Draw(quadVertices, 1)
	return nil
}
