package camera

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-tiles/engine/shared_state"
	"github.com/go-gl/mathgl/mgl32"
)

const eps = 1e-4

func near(a, b float32) bool { return mgl32.FloatEqualThreshold(a, b, eps) }

func TestScreenToWorldCenterAndCorners(t *testing.T) {
	wx, wy := ScreenToWorld(400, 300, 10, 20, 0.5, 800, 600)
	if !near(wx, 10) || !near(wy, 20) {
		t.Fatalf("center = (%v,%v)", wx, wy)
	}
	// top-left pixel: half extents are aspect/zoom and 1/zoom; Y flips
	wx, wy = ScreenToWorld(0, 0, 10, 20, 0.5, 800, 600)
	halfW, halfH := VisibleExtent(0.5, 800, 600)
	if !near(wx, 10-halfW) || !near(wy, 20+halfH) {
		t.Fatalf("top-left = (%v,%v)", wx, wy)
	}
}

func TestWorldToScreenInverts(t *testing.T) {
	points := [][2]float32{{0, 0}, {123, 456}, {800, 600}, {17.5, 599}}
	for _, p := range points {
		wx, wy := ScreenToWorld(p[0], p[1], 32, 32, 0.2, 800, 600)
		sx, sy := WorldToScreen(wx, wy, 32, 32, 0.2, 800, 600)
		if !mgl32.FloatEqualThreshold(sx, p[0], 1e-2) || !mgl32.FloatEqualThreshold(sy, p[1], 1e-2) {
			t.Errorf("%v -> (%v,%v)", p, sx, sy)
		}
	}
}

func TestZoomLimits(t *testing.T) {
	tests := []struct {
		name               string
		w, h, mapSize      float32
		minTiles, maxTiles float32
		wantMin, wantMax   float32
	}{
		{"landscape", 1600, 900, 64, 4, 0, 2 * (1600.0 / 900.0) / 64, 0.5},
		{"portrait", 900, 1600, 64, 4, 32, 2.0 / 32, 2 * (900.0 / 1600.0) / 4},
		{"square explicit", 800, 800, 100, 10, 50, 2.0 / 50, 2.0 / 10},
		{"crossed collapses", 1600, 900, 64, 10, 5, 0.2, 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := ZoomLimits(tt.w, tt.h, tt.mapSize, tt.minTiles, tt.maxTiles)
			if !near(lo, tt.wantMin) || !near(hi, tt.wantMax) {
				t.Fatalf("limits = (%v,%v), want (%v,%v)", lo, hi, tt.wantMin, tt.wantMax)
			}
			if lo > hi {
				t.Fatal("min must not exceed max")
			}
		})
	}
}

func TestClampIsIdempotent(t *testing.T) {
	cases := [][3]float32{{32, 32, 0.2}, {0, 0, 0.2}, {1000, -5, 0.5}, {3, 60, 0.05}}
	for _, c := range cases {
		x, y := ClampCameraToBounds(c[0], c[1], c[2], 800, 600, 64)
		x2, y2 := ClampCameraToBounds(x, y, c[2], 800, 600, 64)
		if x != x2 || y != y2 {
			t.Errorf("%v: (%v,%v) -> (%v,%v)", c, x, y, x2, y2)
		}
	}
}

func TestClampKeepsViewportInsideMap(t *testing.T) {
	x, y := ClampCameraToBounds(0, 0, 0.25, 800, 600, 64)
	halfW, halfH := VisibleExtent(0.25, 800, 600)
	if !near(x, halfW) || !near(y, halfH) {
		t.Fatalf("clamped to (%v,%v), want (%v,%v)", x, y, halfW, halfH)
	}
}

func TestClampCentersWhenViewLargerThanMap(t *testing.T) {
	// zoom 0.02 shows 100 tiles vertically on a 64 tile map
	x, y := ClampCameraToBounds(5, 50, 0.02, 800, 600, 64)
	if x != 32 || y != 32 {
		t.Fatalf("got (%v,%v), want centered", x, y)
	}
}

func TestZoomToCursorKeepsPointFixed(t *testing.T) {
	v := View{X: 32, Y: 32, Zoom: 0.1, Width: 800, Height: 600}
	sx, sy := float32(500), float32(250)
	before := [2]float32{}
	before[0], before[1] = ScreenToWorld(sx, sy, v.X, v.Y, v.Zoom, v.Width, v.Height)

	nv := ZoomToCursor(v, sx, sy, 0.2, 64, 0.01, 1)
	if nv.Zoom != 0.2 {
		t.Fatalf("zoom = %v", nv.Zoom)
	}
	wx, wy := ScreenToWorld(sx, sy, nv.X, nv.Y, nv.Zoom, nv.Width, nv.Height)
	if !near(wx, before[0]) || !near(wy, before[1]) {
		t.Fatalf("point moved: %v -> (%v,%v)", before, wx, wy)
	}
}

func TestZoomToCursorRepeatIsStable(t *testing.T) {
	v := View{X: 20, Y: 40, Zoom: 0.1, Width: 1024, Height: 768}
	once := ZoomToCursor(v, 100, 700, 0.3, 64, 0.01, 1)
	twice := ZoomToCursor(once, 100, 700, 0.3, 64, 0.01, 1)
	if !near(once.X, twice.X) || !near(once.Y, twice.Y) || once.Zoom != twice.Zoom {
		t.Fatalf("%+v != %+v", once, twice)
	}
}

func TestZoomToCursorClampsZoom(t *testing.T) {
	v := View{X: 32, Y: 32, Zoom: 0.1, Width: 800, Height: 600}
	if z := ZoomToCursor(v, 0, 0, 50, 64, 0.05, 0.5).Zoom; z != 0.5 {
		t.Errorf("zoom = %v, want max", z)
	}
	if z := ZoomToCursor(v, 0, 0, 0.0001, 64, 0.05, 0.5).Zoom; z != 0.05 {
		t.Errorf("zoom = %v, want min", z)
	}
}

func TestHoveredTile(t *testing.T) {
	tests := []struct {
		x, y   float32
		tx, ty int
	}{
		{0.5, 0.5, 0, 0},
		{3.99, 7.01, 3, 7},
		{-0.01, 2, -1, -1},
		{2, 64, -1, -1},
		{63.9, 63.9, 63, 63},
	}
	for _, tt := range tests {
		tx, ty := HoveredTile(tt.x, tt.y, 64)
		if tx != tt.tx || ty != tt.ty {
			t.Errorf("HoveredTile(%v,%v) = (%d,%d), want (%d,%d)", tt.x, tt.y, tx, ty, tt.tx, tt.ty)
		}
	}
}

func TestGPUCameraUniformLayout(t *testing.T) {
	u := NewGPUCameraUniform(View{X: 10, Y: 20, Zoom: 0.5, Width: 800, Height: 400}, 64)
	if u.Size() != 96 {
		t.Fatalf("size = %d", u.Size())
	}
	buf := u.Marshal()
	read := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	if read(64) != 10 || read(68) != 20 || read(80) != 0.5 || read(84) != 2 || read(88) != 64 {
		t.Fatalf("fields = %v %v %v %v %v", read(64), read(68), read(80), read(84), read(88))
	}

	// the visible top-right corner projects to clip (1, 1)
	halfW, halfH := VisibleExtent(0.5, 800, 400)
	clip := mgl32.Mat4(u.ViewProj).Mul4x1(mgl32.Vec4{10 + halfW, 20 + halfH, 0, 1})
	if !near(clip.X(), 1) || !near(clip.Y(), 1) {
		t.Fatalf("clip = %v", clip)
	}
}

func TestControllerClampsAndPublishes(t *testing.T) {
	cc := NewCameraController(WithMapSize(64), WithSurfaceSize(800, 600), WithZoom(100))
	lo, hi := cc.Limits()
	if cc.Zoom() != hi || lo > hi {
		t.Fatalf("zoom = %v limits = (%v,%v)", cc.Zoom(), lo, hi)
	}
	if x, y := cc.Position(); x != 32 || y != 32 {
		t.Fatalf("start = (%v,%v)", x, y)
	}

	cc.Pan(-1000, 0)
	x, _ := cc.Position()
	halfW, _ := VisibleExtent(cc.Zoom(), 800, 600)
	if !near(x, halfW) {
		t.Fatalf("pan clamp x = %v, want %v", x, halfW)
	}

	ch := shared_state.NewChannel()
	cc.Publish(ch.Input())
	r := ch.Reader()
	if cx, cy, z := r.Camera(); cx != x || cy != 32 || z != cc.Zoom() {
		t.Errorf("published camera = (%v,%v,%v)", cx, cy, z)
	}
	if w, h := r.Surface(); w != 800 || h != 600 {
		t.Errorf("published surface = %vx%v", w, h)
	}
}

func TestControllerPanScreenFollowsDrag(t *testing.T) {
	cc := NewCameraController(WithMapSize(64), WithSurfaceSize(800, 600), WithZoom(0.1))
	v := cc.View()
	wx, wy := cc.ScreenToWorld(400, 300)
	cc.PanScreen(20, -10)
	// after dragging by (20,-10), the old world point sits under (420,290)
	nx, ny := cc.ScreenToWorld(420, 290)
	if !near(nx, wx) || !near(ny, wy) {
		t.Fatalf("drag mismatch: (%v,%v) vs (%v,%v), start %+v", nx, ny, wx, wy, v)
	}
}

func TestControllerResizeReclamps(t *testing.T) {
	cc := NewCameraController(WithMapSize(64), WithSurfaceSize(800, 600), WithVisibleTiles(4, 0))
	cc.ZoomTo(400, 300, 0.001)
	lo, _ := cc.Limits()
	if cc.Zoom() != lo {
		t.Fatalf("zoom = %v, want %v", cc.Zoom(), lo)
	}
	cc.Resize(1600, 600)
	lo2, _ := cc.Limits()
	if lo2 <= lo || cc.Zoom() != lo2 {
		t.Fatalf("after resize zoom=%v limits min %v (was %v)", cc.Zoom(), lo2, lo)
	}
}

func TestControllerScroll(t *testing.T) {
	cc := NewCameraController(WithMapSize(64), WithSurfaceSize(800, 600), WithZoom(0.1), WithZoomStep(2))
	cc.Scroll(400, 300, 1)
	if !near(cc.Zoom(), 0.2) {
		t.Fatalf("zoom = %v", cc.Zoom())
	}
	cc.Scroll(400, 300, -2)
	if !near(cc.Zoom(), 0.05) {
		t.Fatalf("zoom = %v", cc.Zoom())
	}
}
