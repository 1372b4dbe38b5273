package compositor

import (
	_ "embed"
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-tiles/common"
	"github.com/Carmen-Shannon/oxy-tiles/engine/camera"
	"github.com/Carmen-Shannon/oxy-tiles/engine/diagnostics"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-tiles/engine/resource"
	"github.com/Carmen-Shannon/oxy-tiles/engine/shared_state"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/common.wgsl
var commonShaderSource string

// quadVertices is the vertex count of one instanced quad (two triangles).
const quadVertices = 6

// Context is the rendering context shared by every layer. Layers read the managers' handles
// and versions but never mutate or release manager buffers.
type Context struct {
	Renderer renderer.Renderer
	Map      resource.MapManager
	Entities resource.EntityManager
	Shared   *shared_state.Channel
	Reporter diagnostics.Reporter
}

// Layer is a composable rendering unit. The set of implementations is closed: MapLayer,
// EntityLayer, HoverLayer and MinimapLayer.
type Layer interface {
	// ID returns the id assigned by Compositor.Add, or -1 before the layer is added.
	ID() int

	// Name returns the debug name.
	Name() string

	// Visible reports whether the layer is updated, rendered and hit-tested.
	Visible() bool

	// SetVisible shows or hides the layer.
	SetVisible(visible bool)

	// Viewport returns the screen rectangle the layer covers, or nil for the whole surface.
	Viewport() *common.Rect

	// NeedsNewPass reports whether the layer must draw in a pass of its own.
	NeedsNewPass() bool

	// Init creates the layer's GPU objects.
	//
	// Parameters:
	//   - ctx: the shared rendering context
	//
	// Returns:
	//   - error: an error if pipeline or buffer creation fails
	Init(ctx *Context) error

	// Update prepares per-frame data, such as the camera uniform.
	//
	// Parameters:
	//   - now: the frame time
	Update(now time.Time)

	// Render encodes the layer's draws into pass. A layer whose data has not arrived yet draws
	// nothing and returns nil.
	//
	// Parameters:
	//   - pass: the open render pass
	//
	// Returns:
	//   - error: an error if encoding fails
	Render(pass renderer.RenderPass) error

	// Teardown releases the layer's GPU objects.
	Teardown()

	base() *layerBase
}

// layerBase carries the state every layer variant shares.
type layerBase struct {
	id       int
	name     string
	visible  bool
	viewport *common.Rect
	ctx      *Context

	pipeline pipeline.Pipeline
	provider bind_group_provider.BindGroupProvider
}

func newLayerBase(name string, options ...LayerOption) layerBase {
	b := layerBase{id: shared_state.NoLayer, name: name, visible: true}
	for _, opt := range options {
		opt(&b)
	}
	return b
}

func (b *layerBase) base() *layerBase       { return b }
func (b *layerBase) ID() int                { return b.id }
func (b *layerBase) Name() string           { return b.name }
func (b *layerBase) Visible() bool          { return b.visible }
func (b *layerBase) SetVisible(v bool)      { b.visible = v }
func (b *layerBase) Viewport() *common.Rect { return b.viewport }
func (b *layerBase) NeedsNewPass() bool     { return false }

func (b *layerBase) Teardown() {
	if b.provider != nil {
		b.provider.Release()
		b.provider = nil
	}
}

// detach returns the layer to its unstacked state so it can be added again.
func (b *layerBase) detach() {
	b.id = shared_state.NoLayer
	b.ctx = nil
}

// view reads the camera and surface published by the input thread.
func (b *layerBase) view() camera.View {
	r := b.ctx.Shared.Reader()
	x, y, zoom := r.Camera()
	w, h := r.Surface()
	return camera.View{X: x, Y: y, Zoom: zoom, Width: w, Height: h}
}

// surfaceRect returns the whole surface in pixels.
func (b *layerBase) surfaceRect() common.Rect {
	w, h := b.ctx.Shared.Reader().Surface()
	return common.Rect{W: w, H: h}
}

func (b *layerBase) report(err error) {
	diagnostics.Report(b.ctx.Reporter, b.name, err, diagnostics.KindRender)
}

// shaderSource prepends the shared WGSL definitions to a layer shader.
func shaderSource(body string) string {
	return camera.GPUCameraUniformSource + "\n" + commonShaderSource + "\n" + body
}

var (
	uniformBinding = pipeline.BindingLayout{
		Binding:    0,
		Type:       pipeline.BindingTypeUniform,
		Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
	}
	storageBinding = pipeline.BindingLayout{
		Binding:    1,
		Type:       pipeline.BindingTypeReadOnlyStorage,
		Visibility: wgpu.ShaderStageVertex,
	}
)

// setup registers the layer pipeline and creates its camera uniform and bind group provider.
// extra lists additional owned uniform buffers by binding and size.
func (b *layerBase) setup(ctx *Context, key, body string, blend bool, bindings []pipeline.BindingLayout, extra map[int]uint64) error {
	if ctx == nil || ctx.Renderer == nil || ctx.Shared == nil {
		return fmt.Errorf("%s: %w: incomplete context", b.name, diagnostics.ErrNotInitialized)
	}
	b.ctx = ctx

	p := pipeline.NewPipeline(key,
		pipeline.WithSource(shaderSource(body)),
		pipeline.WithBindGroupLayout(0, bindings...),
		pipeline.WithBlendEnabled(blend),
	)
	if err := ctx.Renderer.RegisterPipelines(p); err != nil {
		return err
	}
	b.pipeline = ctx.Renderer.Pipeline(key)

	var u camera.GPUCameraUniform
	cam, err := ctx.Renderer.CreateBuffer(b.name+" camera", uint64(u.Size()), renderer.BufferUsageUniform)
	if err != nil {
		return err
	}
	opts := []bind_group_provider.BindGroupProviderOption{bind_group_provider.WithOwnedBuffer(0, cam)}
	for binding, size := range extra {
		buf, err := ctx.Renderer.CreateBuffer(fmt.Sprintf("%s binding %d", b.name, binding), size, renderer.BufferUsageUniform)
		if err != nil {
			cam.Release()
			return err
		}
		opts = append(opts, bind_group_provider.WithOwnedBuffer(binding, buf))
	}
	b.provider = bind_group_provider.NewBindGroupProvider(b.name, key, 0, opts...)
	return nil
}

// writeCamera uploads the camera uniform for v.
func (b *layerBase) writeCamera(v camera.View, mapSize float32) {
	u := camera.NewGPUCameraUniform(v, mapSize)
	if err := b.provider.WriteBuffers(b.ctx.Renderer, bind_group_provider.BufferWrite{Binding: 0, Data: u.Marshal()}); err != nil {
		b.report(err)
	}
}

// bind rebuilds the bind group when versions changed, then selects pipeline and bind group.
func (b *layerBase) bind(pass renderer.RenderPass, versions ...uint64) error {
	if b.provider.Stale(versions...) {
		if err := b.provider.Rebuild(b.ctx.Renderer, versions...); err != nil {
			return err
		}
	}
	if err := pass.SetPipeline(b.pipeline); err != nil {
		return err
	}
	pass.SetBindGroup(0, b.provider.BindGroup())
	return nil
}
