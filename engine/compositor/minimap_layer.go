package compositor

import (
	_ "embed"
	"time"

	"github.com/Carmen-Shannon/oxy-tiles/common"
	"github.com/Carmen-Shannon/oxy-tiles/engine/camera"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/pipeline"
	"github.com/go-gl/mathgl/mgl32"
)

//go:embed assets/minimap.wgsl
var minimapShaderSource string

const (
	minimapPipelineKey = "layer.minimap"

	// DefaultMinimapSize is the default minimap edge length in pixels.
	DefaultMinimapSize = 192
	// DefaultMinimapMargin is the default gap between the minimap and the surface corner.
	DefaultMinimapMargin = 16
)

// MinimapLayer draws the whole map into a square in the bottom-right corner, dimming tiles
// outside the main camera view. It draws in its own pass, scissored to its viewport.
type MinimapLayer struct {
	layerBase
	size, margin float32
}

var _ Layer = &MinimapLayer{}

// NewMinimapLayer creates a MinimapLayer anchored to the bottom-right corner of the surface.
// WithViewport pins the viewport instead.
//
// Parameters:
//   - size: edge length in pixels, values <= 0 select DefaultMinimapSize
//   - margin: gap to the corner in pixels, values < 0 select DefaultMinimapMargin
//   - options: variadic list of LayerOption functions
//
// Returns:
//   - *MinimapLayer: the layer, ready for Compositor.Add
func NewMinimapLayer(size, margin float32, options ...LayerOption) *MinimapLayer {
	if size <= 0 {
		size = DefaultMinimapSize
	}
	if margin < 0 {
		margin = DefaultMinimapMargin
	}
	return &MinimapLayer{
		layerBase: newLayerBase("minimap", options...),
		size:      size,
		margin:    margin,
	}
}

// MinimapViewport returns the anchored minimap rectangle for a surface.
//
// Parameters:
//   - screenW, screenH: surface size in pixels
//   - size: minimap edge length in pixels
//   - margin: gap to the bottom-right corner in pixels
//
// Returns:
//   - common.Rect: the minimap rectangle
func MinimapViewport(screenW, screenH, size, margin float32) common.Rect {
	size = min(size, screenW-2*margin, screenH-2*margin)
	if size < 0 {
		size = 0
	}
	return common.Rect{X: screenW - size - margin, Y: screenH - size - margin, W: size, H: size}
}

// MinimapToWorld converts a pixel inside a minimap rectangle to the world point it shows.
//
// Parameters:
//   - r: the minimap rectangle
//   - screenX, screenY: pixel position
//   - mapSize: map edge length in tiles
//
// Returns:
//   - worldX, worldY: the world position
func MinimapToWorld(r common.Rect, screenX, screenY, mapSize float32) (worldX, worldY float32) {
	if r.Empty() {
		return mapSize / 2, mapSize / 2
	}
	return (screenX - r.X) / r.W * mapSize, (r.Y + r.H - screenY) / r.H * mapSize
}

// minimapProjection maps world [0, mapSize]^2 onto r in clip space.
func minimapProjection(r common.Rect, screenW, screenH, mapSize float32) mgl32.Mat4 {
	x0 := r.X/screenW*2 - 1
	x1 := (r.X+r.W)/screenW*2 - 1
	y0 := 1 - (r.Y+r.H)/screenH*2
	y1 := 1 - r.Y/screenH*2
	ax := (x1 - x0) / mapSize
	ay := (y1 - y0) / mapSize
	return mgl32.Ortho2D((-1-x0)/ax, (1-x0)/ax, (-1-y0)/ay, (1-y0)/ay)
}

func (l *MinimapLayer) Viewport() *common.Rect {
	if l.viewport != nil {
		return l.viewport
	}
	if l.ctx == nil {
		return nil
	}
	w, h := l.ctx.Shared.Reader().Surface()
	r := MinimapViewport(w, h, l.size, l.margin)
	return &r
}

func (l *MinimapLayer) NeedsNewPass() bool {
	return true
}

func (l *MinimapLayer) Init(ctx *Context) error {
	return l.setup(ctx, minimapPipelineKey, minimapShaderSource, false,
		[]pipeline.BindingLayout{uniformBinding, storageBinding}, nil)
}

func (l *MinimapLayer) Update(_ time.Time) {
	m := l.ctx.Map
	if m == nil || !m.Ready() {
		return
	}
	v := l.view()
	vp := l.Viewport()
	if vp == nil || vp.Empty() || v.Width <= 0 || v.Height <= 0 {
		return
	}
	mapSize := float32(m.Size())
	u := camera.NewGPUCameraUniform(v, mapSize)
	u.ViewProj = minimapProjection(*vp, v.Width, v.Height, mapSize)
	if err := l.provider.WriteBuffers(l.ctx.Renderer, bind_group_provider.BufferWrite{Binding: 0, Data: u.Marshal()}); err != nil {
		l.report(err)
	}
}

func (l *MinimapLayer) Render(pass renderer.RenderPass) error {
	m := l.ctx.Map
	if m == nil || !m.Ready() {
		return nil
	}
	vp := l.Viewport()
	if vp == nil || vp.Empty() {
		return nil
	}
	l.provider.SetBuffer(1, m.ResourceHandle())
	if err := l.bind(pass, m.Version()); err != nil {
		return err
	}
	pass.SetScissorRect(*vp)
	pass.Draw(quadVertices, uint32(m.Size()*m.Size()))
	return nil
}
