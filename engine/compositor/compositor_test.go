package compositor

import (
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-tiles/common"
	"github.com/Carmen-Shannon/oxy-tiles/engine/diagnostics"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/headless"
	"github.com/Carmen-Shannon/oxy-tiles/engine/resource"
	"github.com/Carmen-Shannon/oxy-tiles/engine/shared_state"
	"github.com/go-gl/mathgl/mgl32"
)

type harness struct {
	backend *headless.Backend
	ctx     *Context
	diag    *diagnostics.Channel
	comp    Compositor
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	b := headless.New()
	r := renderer.NewRendererWithBackend(b, 800, 600)
	ch := shared_state.NewChannel()
	ch.Input().SetSurface(800, 600)
	ch.Input().SetCamera(16, 16, 0.1)
	diag := diagnostics.NewChannel(16)
	ctx := &Context{
		Renderer: r,
		Map:      resource.NewMapManager(r),
		Entities: resource.NewEntityManager(r),
		Shared:   ch,
		Reporter: diag,
	}
	return &harness{backend: b, ctx: ctx, diag: diag, comp: NewCompositor(ctx)}
}

func (h *harness) add(t *testing.T, l Layer) int {
	t.Helper()
	id, err := h.comp.Add(l)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func (h *harness) frame(t *testing.T) {
	t.Helper()
	h.comp.Update(time.Now())
	if err := h.ctx.Renderer.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	if err := h.comp.Render(h.ctx.Renderer); err != nil {
		t.Fatal(err)
	}
	h.ctx.Renderer.EndFrame()
	h.ctx.Renderer.Present()
}

func (h *harness) count(kind headless.OpKind) int {
	n := 0
	for _, op := range h.backend.Ops() {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// probeLayer records what it observes; it exercises the compositor without GPU objects.
type probeLayer struct {
	layerBase
	newPass     bool
	renderErr   error
	initErr     error
	sawCaptured []int
	renders     int
	torn        bool
}

func newProbe(name string, options ...LayerOption) *probeLayer {
	return &probeLayer{layerBase: newLayerBase(name, options...)}
}

func (p *probeLayer) NeedsNewPass() bool { return p.newPass }

func (p *probeLayer) Init(ctx *Context) error {
	p.ctx = ctx
	return p.initErr
}

func (p *probeLayer) Update(time.Time) {
	p.sawCaptured = append(p.sawCaptured, p.ctx.Shared.Reader().CapturedLayer())
}

func (p *probeLayer) Render(renderer.RenderPass) error {
	p.renders++
	return p.renderErr
}

func (p *probeLayer) Teardown() { p.torn = true }

func TestAddAssignsSequentialIDs(t *testing.T) {
	h := newHarness(t)
	a, b := newProbe("a"), newProbe("b")
	if id := h.add(t, a); id != 0 {
		t.Fatalf("first id = %d", id)
	}
	if id := h.add(t, b); id != 1 {
		t.Fatalf("second id = %d", id)
	}
	if _, err := h.comp.Add(a); !errors.Is(err, ErrLayerAdded) {
		t.Fatalf("re-add err = %v", err)
	}
	if h.comp.Layer(1) != b || h.comp.Layer(7) != nil {
		t.Error("Layer lookup by id")
	}
}

func TestAddFailedInitIsNotStacked(t *testing.T) {
	h := newHarness(t)
	bad := newProbe("bad")
	bad.initErr = errors.New("boom")
	if _, err := h.comp.Add(bad); err == nil {
		t.Fatal("expected init error")
	}
	if len(h.comp.Layers()) != 0 || bad.ID() != shared_state.NoLayer {
		t.Fatal("failed layer must not be stacked")
	}
	if id := h.add(t, newProbe("good")); id != 0 {
		t.Fatalf("id after failed init = %d, failed adds must not consume ids", id)
	}
	bad.initErr = nil
	if id := h.add(t, bad); id != 1 {
		t.Fatalf("retried layer id = %d", id)
	}
}

func TestRemoveTearsDown(t *testing.T) {
	h := newHarness(t)
	a := newProbe("a")
	h.add(t, a)
	if !h.comp.Remove(a) || !a.torn {
		t.Fatal("remove must tear down")
	}
	if h.comp.Remove(a) {
		t.Fatal("second remove must report false")
	}
	if id := h.add(t, a); id != 1 {
		t.Fatalf("re-added layer id = %d, ids are never reused", id)
	}
}

func TestInterceptInputTopmostFirst(t *testing.T) {
	h := newHarness(t)
	a := NewMapLayer()
	b := NewMinimapLayer(0, -1, WithViewport(common.Rect{X: 10, Y: 10, W: 50, H: 50}))
	idA := h.add(t, a)
	idB := h.add(t, b)
	in := h.ctx.Shared.Input()
	r := h.ctx.Shared.Reader()

	in.SetButtonDown(true)
	in.SetPointer(20, 20)
	if got := h.comp.InterceptInput(); got != idB || r.CapturedLayer() != idB {
		t.Fatalf("(20,20) captured %d, want B=%d", got, idB)
	}
	in.SetPointer(500, 500)
	if got := h.comp.InterceptInput(); got != idA || r.CapturedLayer() != idA {
		t.Fatalf("(500,500) captured %d, want A=%d", got, idA)
	}
	in.SetPointer(20, 20)
	in.SetButtonDown(false)
	if got := h.comp.InterceptInput(); got != shared_state.NoLayer || r.CapturedLayer() != shared_state.NoLayer {
		t.Fatalf("released captured %d", got)
	}
}

func TestInterceptInputEdgesAndVisibility(t *testing.T) {
	h := newHarness(t)
	b := newProbe("b", WithViewport(common.Rect{X: 10, Y: 10, W: 50, H: 50}))
	h.add(t, b)
	in := h.ctx.Shared.Input()
	in.SetButtonDown(true)

	in.SetPointer(10, 10)
	if got := h.comp.InterceptInput(); got != b.ID() {
		t.Errorf("top-left edge captured %d", got)
	}
	in.SetPointer(60, 30)
	if got := h.comp.InterceptInput(); got != shared_state.NoLayer {
		t.Errorf("right edge captured %d", got)
	}
	b.SetVisible(false)
	in.SetPointer(20, 20)
	if got := h.comp.InterceptInput(); got != shared_state.NoLayer {
		t.Errorf("hidden layer captured %d", got)
	}
}

func TestCaptureResolvedBeforeLayerUpdate(t *testing.T) {
	h := newHarness(t)
	p := newProbe("p")
	h.add(t, p)
	h.ctx.Shared.Input().SetButtonDown(true)
	h.comp.Update(time.Now())
	if len(p.sawCaptured) != 1 || p.sawCaptured[0] != p.ID() {
		t.Fatalf("layer saw %v", p.sawCaptured)
	}
}

func TestRenderPassSequencing(t *testing.T) {
	h := newHarness(t)
	base := newProbe("base")
	mid := newProbe("mid")
	hidden := newProbe("hidden", WithVisible(false))
	hidden.newPass = true
	overlay := newProbe("overlay")
	overlay.newPass = true
	top := newProbe("top")
	for _, l := range []Layer{base, mid, hidden, overlay, top} {
		h.add(t, l)
	}
	h.frame(t)

	passes := h.backend.Passes()
	if len(passes) != 2 {
		t.Fatalf("passes = %+v", passes)
	}
	if passes[0].Label != "base" || !passes[0].Clear {
		t.Errorf("first pass = %+v, want fresh clearing pass for base", passes[0])
	}
	if passes[1].Label != "overlay" || passes[1].Clear {
		t.Errorf("second pass = %+v, want loading pass for overlay", passes[1])
	}
	if h.count(headless.OpEndPass) != 2 {
		t.Errorf("end-pass ops = %d", h.count(headless.OpEndPass))
	}
	if hidden.renders != 0 || top.renders != 1 || mid.renders != 1 {
		t.Errorf("renders hidden=%d mid=%d top=%d", hidden.renders, mid.renders, top.renders)
	}
}

func TestRenderFirstLayerNeedingPassStillClears(t *testing.T) {
	h := newHarness(t)
	p := newProbe("own")
	p.newPass = true
	h.add(t, p)
	h.frame(t)
	passes := h.backend.Passes()
	if len(passes) != 1 || !passes[0].Clear {
		t.Fatalf("passes = %+v", passes)
	}
}

func TestRenderWithoutVisibleLayersClears(t *testing.T) {
	h := newHarness(t)
	h.add(t, newProbe("hidden", WithVisible(false)))
	h.frame(t)
	passes := h.backend.Passes()
	if len(passes) != 1 || !passes[0].Clear || h.count(headless.OpEndPass) != 1 {
		t.Fatalf("passes = %+v", passes)
	}
}

func TestRenderErrorIsReportedAndFrameContinues(t *testing.T) {
	h := newHarness(t)
	bad := newProbe("bad")
	bad.renderErr = errors.New("encode failed")
	after := newProbe("after")
	h.add(t, bad)
	h.add(t, after)
	h.frame(t)
	if after.renders != 1 {
		t.Fatal("later layers must still render")
	}
	ev := h.diag.Pending()
	if len(ev) != 1 || ev[0].Kind != diagnostics.KindRender || ev[0].Source != "bad" {
		t.Fatalf("events = %v", ev)
	}
}

func TestLayersWithoutDataDrawNothing(t *testing.T) {
	h := newHarness(t)
	h.add(t, NewMapLayer())
	h.add(t, NewEntityLayer())
	h.add(t, NewHoverLayer())
	h.frame(t)
	if n := h.count(headless.OpDraw); n != 0 {
		t.Fatalf("draws = %d before any data", n)
	}
	if len(h.backend.Passes()) != 1 {
		t.Fatal("frame must still clear")
	}
}

func TestMapLayerRebindsOnlyOnVersionChange(t *testing.T) {
	h := newHarness(t)
	m := NewMapLayer()
	h.add(t, m)

	_ = h.ctx.Map.UpdateGridData(make([]uint32, 16*16), 16)
	h.frame(t)
	first := m.provider.BindGroup()
	if first == nil {
		t.Fatal("bind group must exist after first draw")
	}

	_ = h.ctx.Map.UpdateGridData(make([]uint32, 16*16), 16)
	h.frame(t)
	if m.provider.BindGroup() != first {
		t.Fatal("same size must reuse the bind group")
	}

	_ = h.ctx.Map.UpdateGridData(make([]uint32, 8*8), 8)
	h.frame(t)
	if m.provider.BindGroup() == first {
		t.Fatal("recreated buffer must rebuild the bind group")
	}

	var last headless.Op
	for _, op := range h.backend.Ops() {
		if op.Kind == headless.OpDraw {
			last = op
		}
	}
	if last.Vertices != quadVertices || last.Instances != 64 {
		t.Fatalf("draw = %+v", last)
	}
}

func TestMapLayerWritesCameraUniform(t *testing.T) {
	h := newHarness(t)
	m := NewMapLayer()
	h.add(t, m)
	_ = h.ctx.Map.UpdateGridData(make([]uint32, 4), 2)
	h.comp.Update(time.Now())
	bytes := m.provider.Buffer(0).(*headless.Buffer).Bytes()
	if bytes[88] == 0 && bytes[89] == 0 && bytes[90] == 0 && bytes[91] == 0 {
		t.Fatal("map size must be written into the camera uniform")
	}
}

func TestEntityAndHoverLayersDraw(t *testing.T) {
	h := newHarness(t)
	h.add(t, NewMapLayer())
	el := NewEntityLayer()
	hl := NewHoverLayer()
	h.add(t, el)
	h.add(t, hl)
	_ = h.ctx.Map.UpdateGridData(make([]uint32, 16), 4)
	_ = h.ctx.Entities.UpdateEntityData([]float32{1, 1, 0, 0, 2, 2, 1, 0}, 2)
	h.ctx.Shared.Render().SetHoveredTile(2, 3)
	h.frame(t)

	var instances []uint32
	for _, op := range h.backend.Ops() {
		if op.Kind == headless.OpDraw {
			instances = append(instances, op.Instances)
		}
	}
	if len(instances) != 3 || instances[0] != 16 || instances[1] != 2 || instances[2] != 1 {
		t.Fatalf("draw instances = %v", instances)
	}
	if x, y := hl.Tile(); x != 2 || y != 3 {
		t.Errorf("hover tile = (%d,%d)", x, y)
	}
}

func TestMinimapDrawsInOwnScissoredPass(t *testing.T) {
	h := newHarness(t)
	h.add(t, NewMapLayer())
	mm := NewMinimapLayer(100, 10)
	h.add(t, mm)
	_ = h.ctx.Map.UpdateGridData(make([]uint32, 16), 4)
	h.frame(t)

	want := common.Rect{X: 690, Y: 490, W: 100, H: 100}
	if vp := mm.Viewport(); vp == nil || *vp != want {
		t.Fatalf("viewport = %v", vp)
	}
	passes := h.backend.Passes()
	if len(passes) != 2 || passes[1].Clear {
		t.Fatalf("passes = %+v", passes)
	}
	var scissors []common.Rect
	for _, op := range h.backend.Ops() {
		if op.Kind == headless.OpSetScissor {
			scissors = append(scissors, op.Scissor)
		}
	}
	if len(scissors) != 2 || scissors[1] != want {
		t.Fatalf("scissors = %v", scissors)
	}
}

func TestMinimapProjectionAndInverse(t *testing.T) {
	r := common.Rect{X: 600, Y: 400, W: 200, H: 200}
	m := minimapProjection(r, 800, 600, 32)
	toPixel := func(wx, wy float32) (float32, float32) {
		c := m.Mul4x1(mgl32.Vec4{wx, wy, 0, 1})
		return (c.X() + 1) / 2 * 800, (1 - c.Y()) / 2 * 600
	}
	px, py := toPixel(0, 0)
	if !mgl32.FloatEqualThreshold(px, 600, 1e-2) || !mgl32.FloatEqualThreshold(py, 600, 1e-2) {
		t.Errorf("world origin at (%v,%v), want bottom-left (600,600)", px, py)
	}
	px, py = toPixel(32, 32)
	if !mgl32.FloatEqualThreshold(px, 800, 1e-2) || !mgl32.FloatEqualThreshold(py, 400, 1e-2) {
		t.Errorf("world corner at (%v,%v), want top-right (800,400)", px, py)
	}
	wx, wy := MinimapToWorld(r, 700, 500, 32)
	if !mgl32.FloatEqualThreshold(wx, 16, 1e-4) || !mgl32.FloatEqualThreshold(wy, 16, 1e-4) {
		t.Errorf("center maps to (%v,%v)", wx, wy)
	}
}

func TestTeardownReleasesLayerBuffers(t *testing.T) {
	h := newHarness(t)
	h.add(t, NewMapLayer())
	h.add(t, NewHoverLayer())
	before := len(h.backend.LiveBuffers())
	h.comp.Teardown()
	if after := len(h.backend.LiveBuffers()); after != before-3 {
		t.Fatalf("live buffers %d -> %d", before, after)
	}
	if len(h.comp.Layers()) != 0 {
		t.Fatal("stack must be empty")
	}
}

func TestTeardownDetachesLayers(t *testing.T) {
	h := newHarness(t)
	a, b := newProbe("a"), newProbe("b")
	h.add(t, a)
	h.add(t, b)
	h.comp.Teardown()
	if !a.torn || !b.torn {
		t.Fatal("teardown must reach every layer")
	}
	if a.ID() != shared_state.NoLayer || b.ID() != shared_state.NoLayer {
		t.Fatalf("ids after teardown = %d, %d", a.ID(), b.ID())
	}
	if id := h.add(t, a); id != 2 {
		t.Fatalf("re-added layer id = %d", id)
	}
}
