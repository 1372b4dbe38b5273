package engine

import (
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-tiles/engine/camera"
	"github.com/Carmen-Shannon/oxy-tiles/engine/compositor"
	"github.com/Carmen-Shannon/oxy-tiles/engine/diagnostics"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer"
	"github.com/Carmen-Shannon/oxy-tiles/engine/resource"
	"github.com/Carmen-Shannon/oxy-tiles/engine/shared_state"
	"github.com/Carmen-Shannon/oxy-tiles/engine/transfer"
)

// RendererFactory creates the renderer once the init message delivers a surface.
type RendererFactory func(surface renderer.Surface) (renderer.Renderer, error)

// LayerFactory builds the layer stack, bottom to top, when the context initializes.
type LayerFactory func() []compositor.Layer

// renderContext implements the RenderContext interface.
// Everything it holds is owned by the render goroutine.
type renderContext struct {
	endpoint transfer.Endpoint
	reporter diagnostics.Reporter

	rendererFactory RendererFactory
	layerFactory    LayerFactory
	managerOptions  []resource.ManagerOption

	now time.Time

	initialized bool
	renderer    renderer.Renderer
	shared      *shared_state.Channel
	mapManager  resource.MapManager
	entities    resource.EntityManager
	compositor  compositor.Compositor
}

// RenderContext is the render thread's single owned context. It receives messages from the
// input thread, feeds the resource managers and drives the compositor once per frame.
type RenderContext interface {
	// Frame drains pending transfer messages, then renders one frame if the context has been
	// initialized. Before init it only drains, dropping data messages with a diagnostic.
	//
	// Parameters:
	//   - now: the frame time, used for interpolation
	//
	// Returns:
	//   - error: an error if the frame could not be acquired or composited
	Frame(now time.Time) error

	// Initialized reports whether the init message has been handled.
	Initialized() bool

	// Renderer returns the renderer, or nil before init.
	Renderer() renderer.Renderer

	// Map returns the map manager, or nil before init.
	Map() resource.MapManager

	// Entities returns the entity manager, or nil before init.
	Entities() resource.EntityManager

	// Compositor returns the layer stack, or nil before init.
	Compositor() compositor.Compositor

	// Release tears down layers, managers and the renderer.
	Release()
}

var _ RenderContext = &renderContext{}

// NewRenderContext creates a RenderContext that consumes messages from endpoint.
//
// Parameters:
//   - endpoint: the receiving side of the transfer queue
//   - options: functional options for the renderer factory, layers and diagnostics
//
// Returns:
//   - RenderContext: the uninitialized context
func NewRenderContext(endpoint transfer.Endpoint, options ...RenderContextOption) RenderContext {
	rc := &renderContext{
		endpoint: endpoint,
		rendererFactory: func(surface renderer.Surface) (renderer.Renderer, error) {
			return renderer.NewRenderer(surface)
		},
		layerFactory: DefaultLayers,
	}
	for _, opt := range options {
		opt(rc)
	}
	return rc
}

// DefaultLayers returns the client's standard stack: map, entities, hover highlight, minimap.
func DefaultLayers() []compositor.Layer {
	return []compositor.Layer{
		compositor.NewMapLayer(),
		compositor.NewEntityLayer(),
		compositor.NewHoverLayer(),
		compositor.NewMinimapLayer(compositor.DefaultMinimapSize, compositor.DefaultMinimapMargin),
	}
}

func (rc *renderContext) Frame(now time.Time) error {
	rc.now = now
	rc.endpoint.Drain(rc.handle)
	if !rc.initialized {
		return nil
	}

	rc.resolveHover()
	rc.compositor.Update(now)
	// Errors are mirrored to the reporter by the manager.
	_ = rc.entities.AdvanceInterpolation(now)

	if err := rc.renderer.BeginFrame(); err != nil {
		diagnostics.Report(rc.reporter, "frame", err, diagnostics.KindRender)
		return err
	}
	err := rc.compositor.Render(rc.renderer)
	rc.renderer.EndFrame()
	rc.renderer.Present()
	if err != nil {
		diagnostics.Report(rc.reporter, "frame", err, diagnostics.KindRender)
	}
	return err
}

func (rc *renderContext) handle(m transfer.Message) {
	if m.Kind == transfer.KindInit {
		if err := rc.init(m); err != nil {
			diagnostics.Report(rc.reporter, "init", err, diagnostics.KindResource)
		}
		return
	}
	if !rc.initialized {
		diagnostics.Report(rc.reporter, m.Kind.String(),
			fmt.Errorf("%w: %s before init dropped", diagnostics.ErrNotInitialized, m.Kind), diagnostics.KindUninitialized)
		return
	}

	switch m.Kind {
	case transfer.KindResize:
		rc.renderer.Resize(m.Width, m.Height)
	case transfer.KindUpdateGrid:
		_ = rc.mapManager.UpdateGridData(m.Tiles, m.Size)
	case transfer.KindUpdateEntities:
		_ = rc.entities.UpdateEntityData(m.Records, m.Count)
	}
}

func (rc *renderContext) init(m transfer.Message) error {
	if rc.initialized {
		diagnostics.Logger().Warn("duplicate init ignored")
		return nil
	}
	r, err := rc.rendererFactory(m.Surface)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}

	opts := append([]resource.ManagerOption{
		resource.WithReporter(rc.reporter),
		resource.WithClock(func() time.Time { return rc.now }),
	}, rc.managerOptions...)

	rc.renderer = r
	rc.shared = m.Shared
	rc.mapManager = resource.NewMapManager(r, opts...)
	rc.entities = resource.NewEntityManager(r, opts...)
	rc.compositor = compositor.NewCompositor(&compositor.Context{
		Renderer: r,
		Map:      rc.mapManager,
		Entities: rc.entities,
		Shared:   m.Shared,
		Reporter: rc.reporter,
	})
	for _, l := range rc.layerFactory() {
		if _, err := rc.compositor.Add(l); err != nil {
			diagnostics.Report(rc.reporter, l.Name(), err, diagnostics.KindResource)
		}
	}
	rc.initialized = true
	w, h := r.SurfaceSize()
	diagnostics.Logger().Info("render context initialized", "backend", r.BackendType(), "width", w, "height", h)
	return nil
}

// resolveHover publishes the tile under the pointer, or NoTile when off the map.
func (rc *renderContext) resolveHover() {
	out := rc.shared.Render()
	if !rc.mapManager.Ready() {
		out.SetHoveredTile(shared_state.NoTile, shared_state.NoTile)
		return
	}
	r := rc.shared.Reader()
	px, py := r.Pointer()
	cx, cy, zoom := r.Camera()
	w, h := r.Surface()
	if zoom <= 0 || w <= 0 || h <= 0 {
		out.SetHoveredTile(shared_state.NoTile, shared_state.NoTile)
		return
	}
	wx, wy := camera.ScreenToWorld(px, py, cx, cy, zoom, w, h)
	out.SetHoveredTile(camera.HoveredTile(wx, wy, rc.mapManager.Size()))
}

func (rc *renderContext) Initialized() bool                 { return rc.initialized }
func (rc *renderContext) Renderer() renderer.Renderer       { return rc.renderer }
func (rc *renderContext) Map() resource.MapManager          { return rc.mapManager }
func (rc *renderContext) Entities() resource.EntityManager  { return rc.entities }
func (rc *renderContext) Compositor() compositor.Compositor { return rc.compositor }

func (rc *renderContext) Release() {
	if !rc.initialized {
		return
	}
	rc.compositor.Teardown()
	rc.entities.Release()
	rc.mapManager.Release()
	rc.renderer.Release()
	rc.initialized = false
}
