package resource

import (
	"errors"
	"math"
	"math/bits"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-tiles/engine/diagnostics"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/headless"
	"github.com/Carmen-Shannon/oxy-tiles/engine/transfer"
	"github.com/go-gl/mathgl/mgl32"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newAllocator() (renderer.Renderer, *headless.Backend) {
	b := headless.New()
	return renderer.NewRendererWithBackend(b, 640, 480), b
}

// flakyAllocator fails CreateBuffer while fail is set.
type flakyAllocator struct {
	renderer.Renderer
	fail bool
}

func (a *flakyAllocator) CreateBuffer(label string, size uint64, usage renderer.BufferUsage) (renderer.Buffer, error) {
	if a.fail {
		return nil, errors.New("out of memory")
	}
	return a.Renderer.CreateBuffer(label, size, usage)
}

func record(x, y, typeID, state float32) []float32 {
	return []float32{x, y, typeID, state}
}

func table(recs ...[]float32) []float32 {
	var out []float32
	for _, r := range recs {
		out = append(out, r...)
	}
	return out
}

func TestMapManagerVersionBumpsOnlyOnResize(t *testing.T) {
	r, b := newAllocator()
	m := NewMapManager(r)
	if m.Ready() || m.ResourceHandle() != nil {
		t.Fatal("new manager must be uninitialized")
	}

	steps := []struct {
		size        int
		wantVersion uint64
	}{
		{8, 1},
		{8, 1},
		{4, 2},
		{4, 2},
		{8, 3},
	}
	for _, s := range steps {
		if err := m.UpdateGridData(make([]uint32, s.size*s.size), s.size); err != nil {
			t.Fatal(err)
		}
		if m.Size() != s.size || m.Version() != s.wantVersion {
			t.Fatalf("size=%d version=%d, want %d/%d", m.Size(), m.Version(), s.size, s.wantVersion)
		}
	}
	if live := b.LiveBuffers(); len(live) != 1 {
		t.Errorf("live buffers = %d, old buffers must be released", len(live))
	}
}

func TestMapManagerWritesFullGrid(t *testing.T) {
	r, _ := newAllocator()
	m := NewMapManager(r)
	if err := m.UpdateGridData([]uint32{1, 2, 3, 4}, 0); err != nil {
		t.Fatal(err)
	}
	if err := m.UpdateGridData([]uint32{5, 6, 7, 8}, 2); err != nil {
		t.Fatal(err)
	}
	got := m.ResourceHandle().(*headless.Buffer).Bytes()
	if got[0] != 5 || got[12] != 8 {
		t.Errorf("buffer bytes = %v", got[:16])
	}
	if v, ok := m.Tile(1, 1); !ok || v != 8 {
		t.Errorf("Tile(1,1) = %d %v", v, ok)
	}
	if _, ok := m.Tile(2, 0); ok {
		t.Error("out of range tile must not be found")
	}
}

func TestMapManagerRejectsMismatchAndReports(t *testing.T) {
	r, _ := newAllocator()
	diag := diagnostics.NewChannel(4)
	m := NewMapManager(r, WithReporter(diag))
	_ = m.UpdateGridData(make([]uint32, 16), 4)

	err := m.UpdateGridData(make([]uint32, 15), 0)
	if !errors.Is(err, diagnostics.ErrShapeMismatch) {
		t.Fatalf("err = %v", err)
	}
	if m.Size() != 4 || m.Version() != 1 {
		t.Errorf("state changed after reject: size=%d version=%d", m.Size(), m.Version())
	}
	if ev := diag.Pending(); len(ev) != 1 || ev[0].Kind != diagnostics.KindShapeMismatch {
		t.Errorf("events = %v", ev)
	}
}

func TestGridEndToEnd(t *testing.T) {
	r, _ := newAllocator()
	m := NewMapManager(r)
	e := transfer.NewEndpoint()
	apply := func() {
		e.Drain(func(msg transfer.Message) {
			_ = m.UpdateGridData(msg.Tiles, msg.Size)
		})
	}

	_ = e.SendGrid(transfer.NewBuffer(make([]uint32, 64*64)), 0)
	apply()
	if m.Size() != 64 || m.Version() != 1 {
		t.Fatalf("after 64x64: size=%d version=%d", m.Size(), m.Version())
	}

	_ = e.SendGrid(transfer.NewBuffer(make([]uint32, 32*32)), 0)
	apply()
	if m.Size() != 32 || m.Version() != 2 {
		t.Fatalf("after 32x32: size=%d version=%d", m.Size(), m.Version())
	}

	// 64 tiles declared as a 32-wide grid, then 63 tiles with the size inferred
	_ = e.SendGrid(transfer.NewBuffer(make([]uint32, 64)), 32)
	_ = e.SendGrid(transfer.NewBuffer(make([]uint32, 63)), 0)
	apply()
	if m.Size() != 32 || m.Version() != 2 {
		t.Fatalf("after rejects: size=%d version=%d", m.Size(), m.Version())
	}
	if s := e.Stats(); s.Rejected != 2 {
		t.Errorf("rejected = %d", s.Rejected)
	}
}

func TestEntityNoMovementIsNoop(t *testing.T) {
	r, _ := newAllocator()
	clk := &fakeClock{now: time.Unix(100, 0)}
	m := NewEntityManager(r, WithClock(clk.Now))

	recs := table(record(1, 2, 7, 0), record(3, 4, 8, 1))
	if err := m.UpdateEntityData(recs, 2); err != nil {
		t.Fatal(err)
	}
	if m.Version() != 1 {
		t.Fatalf("version = %d", m.Version())
	}
	same := table(record(1, 2, 7, 0), record(3, 4, 8, 1))
	if err := m.UpdateEntityData(same, 2); err != nil {
		t.Fatal(err)
	}
	if m.Version() != 1 || len(m.ActiveInterpolations()) != 0 {
		t.Fatalf("version=%d active=%v", m.Version(), m.ActiveInterpolations())
	}
	before := m.Snapshot()
	clk.Advance(time.Second)
	if err := m.AdvanceInterpolation(clk.Now()); err != nil {
		t.Fatal(err)
	}
	after := m.Snapshot()
	for i := range before {
		if before[i] != after[i] || after[i] != same[i] {
			t.Fatalf("snapshot changed: %v -> %v", before, after)
		}
	}
}

func TestEntityInterpolatesLinearly(t *testing.T) {
	r, _ := newAllocator()
	clk := &fakeClock{now: time.Unix(100, 0)}
	m := NewEntityManager(r, WithClock(clk.Now))

	_ = m.UpdateEntityData(record(0, 0, 5, 9), 1)
	_ = m.UpdateEntityData(record(10, 0, 6, 9), 1)
	if got := m.ActiveInterpolations(); len(got) != 1 || got[0] != 0 {
		t.Fatalf("active = %v", got)
	}
	if x, _, _ := m.Displayed(0); x != 0 {
		t.Fatalf("displayed at update = %v, want start", x)
	}

	clk.Advance(150 * time.Millisecond)
	_ = m.AdvanceInterpolation(clk.Now())
	x, y, _ := m.Displayed(0)
	if !mgl32.FloatEqualThreshold(x, 5, 1e-4) || y != 0 {
		t.Fatalf("halfway = (%v,%v)", x, y)
	}
	snap := m.Snapshot()
	if snap[2] != 6 || snap[3] != 9 {
		t.Errorf("type/state must come from the committed table: %v", snap)
	}

	clk.Advance(200 * time.Millisecond)
	_ = m.AdvanceInterpolation(clk.Now())
	if x, _, _ := m.Displayed(0); x != 10 {
		t.Fatalf("final = %v", x)
	}
	if len(m.ActiveInterpolations()) != 0 {
		t.Fatal("completed interpolation must retire")
	}
	if m.Version() != 1 {
		t.Errorf("version = %d", m.Version())
	}
}

func TestEntityReanchorsFromDisplayedPosition(t *testing.T) {
	r, _ := newAllocator()
	clk := &fakeClock{now: time.Unix(100, 0)}
	m := NewEntityManager(r, WithClock(clk.Now), WithMoveDuration(100*time.Millisecond))

	_ = m.UpdateEntityData(record(0, 0, 0, 0), 1)
	_ = m.UpdateEntityData(record(10, 10, 0, 0), 1)

	clk.Advance(40 * time.Millisecond)
	_ = m.AdvanceInterpolation(clk.Now())
	midX, midY, _ := m.Displayed(0)

	// A storm update lands mid-flight; the new move must start where the entity is drawn.
	_ = m.UpdateEntityData(record(-20, 0, 0, 0), 1)
	x, y, _ := m.Displayed(0)
	if !mgl32.FloatEqualThreshold(x, midX, 1e-4) || !mgl32.FloatEqualThreshold(y, midY, 1e-4) {
		t.Fatalf("jump at update boundary: (%v,%v) -> (%v,%v)", midX, midY, x, y)
	}
	if math.Abs(float64(x-10)) < 1e-3 {
		t.Fatal("start must not be the previous target")
	}

	clk.Advance(50 * time.Millisecond)
	_ = m.AdvanceInterpolation(clk.Now())
	x, _, _ = m.Displayed(0)
	want := midX + (-20-midX)*0.5
	if !mgl32.FloatEqualThreshold(x, want, 1e-3) {
		t.Fatalf("x = %v, want %v", x, want)
	}
}

func TestEntityUnchangedSlotDropsInterpolation(t *testing.T) {
	r, _ := newAllocator()
	clk := &fakeClock{now: time.Unix(100, 0)}
	m := NewEntityManager(r, WithClock(clk.Now))

	_ = m.UpdateEntityData(table(record(0, 0, 0, 0), record(5, 5, 0, 0)), 2)
	_ = m.UpdateEntityData(table(record(1, 0, 0, 0), record(5, 5, 0, 0)), 2)
	if got := m.ActiveInterpolations(); len(got) != 1 || got[0] != 0 {
		t.Fatalf("active = %v", got)
	}
	clk.Advance(time.Second)
	_ = m.UpdateEntityData(table(record(1, 0, 0, 0), record(5, 5, 0, 0)), 2)
	if got := m.ActiveInterpolations(); len(got) != 0 {
		t.Fatalf("active = %v", got)
	}
}

func TestEntityCountChangeRecreates(t *testing.T) {
	r, b := newAllocator()
	m := NewEntityManager(r)
	_ = m.UpdateEntityData(record(0, 0, 0, 0), 1)
	_ = m.UpdateEntityData(table(record(1, 0, 0, 0), record(2, 0, 0, 0)), 2)
	if m.Version() != 2 || m.Count() != 2 {
		t.Fatalf("version=%d count=%d", m.Version(), m.Count())
	}
	if len(m.ActiveInterpolations()) != 0 {
		t.Error("count change must not interpolate")
	}
	if err := m.UpdateEntityData(nil, 0); err != nil {
		t.Fatal(err)
	}
	if m.Version() != 3 || !m.Ready() {
		t.Fatalf("empty table: version=%d ready=%v", m.Version(), m.Ready())
	}
	if len(b.LiveBuffers()) != 1 {
		t.Errorf("live buffers = %d", len(b.LiveBuffers()))
	}
}

func TestEntityRejectsMismatch(t *testing.T) {
	r, _ := newAllocator()
	m := NewEntityManager(r)
	_ = m.UpdateEntityData(record(1, 1, 1, 1), 1)
	err := m.UpdateEntityData(make([]float32, 7), 2)
	if !errors.Is(err, diagnostics.ErrShapeMismatch) {
		t.Fatalf("err = %v", err)
	}
	if m.Count() != 1 || m.Version() != 1 {
		t.Fatalf("count=%d version=%d", m.Count(), m.Version())
	}
}

func TestMapManagerRejectsOverflowingSize(t *testing.T) {
	r, _ := newAllocator()
	m := NewMapManager(r)
	_ = m.UpdateGridData(make([]uint32, 16), 4)

	err := m.UpdateGridData(nil, 1<<(bits.UintSize/2))
	if !errors.Is(err, diagnostics.ErrShapeMismatch) {
		t.Fatalf("err = %v, want shape mismatch", err)
	}
	if m.Size() != 4 || m.Version() != 1 {
		t.Errorf("state changed after reject: size=%d version=%d", m.Size(), m.Version())
	}
}

func TestEntityRejectsWrappingCount(t *testing.T) {
	r, _ := newAllocator()
	diag := diagnostics.NewChannel(4)
	m := NewEntityManager(r, WithReporter(diag))
	_ = m.UpdateEntityData(record(1, 1, 1, 1), 1)

	huge := 1 << (bits.UintSize - 2)
	for i := 0; i < 2; i++ {
		if err := m.UpdateEntityData(nil, huge); !errors.Is(err, diagnostics.ErrShapeMismatch) {
			t.Fatalf("attempt %d err = %v, want shape mismatch", i, err)
		}
	}
	if m.Count() != 1 || m.Version() != 1 {
		t.Fatalf("count=%d version=%d", m.Count(), m.Version())
	}
	if err := m.UpdateEntityData(record(2, 1, 1, 1), 1); err != nil {
		t.Fatalf("valid update after reject: %v", err)
	}
	if ev := diag.Pending(); len(ev) != 2 || ev[0].Kind != diagnostics.KindShapeMismatch {
		t.Errorf("events = %v", ev)
	}
}

func TestEntityAllocationFailureKeepsTable(t *testing.T) {
	r, _ := newAllocator()
	alloc := &flakyAllocator{Renderer: r}
	m := NewEntityManager(alloc)
	_ = m.UpdateEntityData(record(1, 1, 1, 1), 1)
	handle := m.ResourceHandle()

	alloc.fail = true
	err := m.UpdateEntityData(table(record(0, 0, 0, 0), record(1, 0, 0, 0)), 2)
	if err == nil || errors.Is(err, diagnostics.ErrShapeMismatch) {
		t.Fatalf("err = %v, want allocation error", err)
	}
	if m.Count() != 1 || m.Version() != 1 || m.ResourceHandle() != handle {
		t.Fatalf("table changed after failed allocation: count=%d version=%d", m.Count(), m.Version())
	}

	alloc.fail = false
	if err := m.UpdateEntityData(record(3, 1, 1, 1), 1); err != nil {
		t.Fatalf("same-count update after failure: %v", err)
	}
	if m.Count() != 1 || len(m.ActiveInterpolations()) != 1 {
		t.Errorf("count=%d active=%v", m.Count(), m.ActiveInterpolations())
	}
}

func TestAdvanceBeforeDataIsNoop(t *testing.T) {
	r, b := newAllocator()
	m := NewEntityManager(r)
	if err := m.AdvanceInterpolation(time.Now()); err != nil {
		t.Fatal(err)
	}
	if len(b.Buffers()) != 0 {
		t.Fatal("no buffer may exist before the first update")
	}
}
