package transfer

import (
	"errors"
	"math/bits"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-tiles/engine/diagnostics"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer"
	"github.com/Carmen-Shannon/oxy-tiles/engine/shared_state"
)

func TestSendDetachesBuffer(t *testing.T) {
	e := NewEndpoint()
	buf := NewBuffer(make([]uint32, 16))
	if err := e.SendGrid(buf, 4); err != nil {
		t.Fatal(err)
	}
	if !buf.Detached() || buf.Len() != 0 {
		t.Fatal("sender handle must be detached")
	}
	if _, err := buf.Data(); !errors.Is(err, diagnostics.ErrBufferDetached) {
		t.Errorf("Data err = %v", err)
	}
	if err := e.SendGrid(buf, 4); !errors.Is(err, diagnostics.ErrBufferDetached) {
		t.Errorf("resend err = %v", err)
	}
}

func TestReceiveHandsOverOwnership(t *testing.T) {
	e := NewEndpoint()
	src := []uint32{1, 2, 3, 4}
	_ = e.SendGrid(NewBuffer(src), 2)
	m, ok, err := e.Receive()
	if !ok || err != nil {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if m.Kind != KindUpdateGrid || m.Size != 2 || &m.Tiles[0] != &src[0] {
		t.Fatalf("message = %+v", m)
	}
	if _, ok, _ := e.Receive(); ok {
		t.Fatal("queue must be empty")
	}
}

func TestGridValidation(t *testing.T) {
	tests := []struct {
		name     string
		n, size  int
		wantSize int
		wantErr  bool
	}{
		{"explicit", 64, 8, 8, false},
		{"inferred", 64, 0, 8, false},
		{"inferred negative", 9, -1, 3, false},
		{"wrong explicit size", 64, 32, 0, true},
		{"non-square inferred", 63, 0, 0, true},
		{"empty inferred", 0, 0, 0, true},
		{"size squares past int range", 0, 1 << (bits.UintSize / 2), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEndpoint()
			_ = e.SendGrid(NewBuffer(make([]uint32, tt.n)), tt.size)
			m, ok, err := e.Receive()
			if !ok {
				t.Fatal("expected a message")
			}
			if tt.wantErr {
				if !errors.Is(err, diagnostics.ErrShapeMismatch) {
					t.Fatalf("err = %v, want shape mismatch", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if m.Size != tt.wantSize {
				t.Errorf("size = %d, want %d", m.Size, tt.wantSize)
			}
		})
	}
}

func TestEntityValidation(t *testing.T) {
	e := NewEndpoint()
	_ = e.SendEntities(NewBuffer(make([]float32, 8)), 2)
	_ = e.SendEntities(NewBuffer(make([]float32, 7)), 2)
	_ = e.SendEntities(NewBuffer([]float32{}), 0)

	if _, _, err := e.Receive(); err != nil {
		t.Errorf("valid table: %v", err)
	}
	if _, _, err := e.Receive(); !errors.Is(err, diagnostics.ErrShapeMismatch) {
		t.Errorf("short table err = %v", err)
	}
	if m, _, err := e.Receive(); err != nil || m.Count != 0 {
		t.Errorf("empty table: %+v %v", m, err)
	}
}

func TestEntityValidationRejectsWrappingCount(t *testing.T) {
	// count*RecordWidth wraps to 0 for this count
	huge := 1 << (bits.UintSize - 2)
	e := NewEndpoint()
	_ = e.SendEntities(NewBuffer([]float32{}), huge)
	_ = e.SendEntities(NewBuffer(make([]float32, RecordWidth)), huge+1)
	for i := 0; i < 2; i++ {
		if _, _, err := e.Receive(); !errors.Is(err, diagnostics.ErrShapeMismatch) {
			t.Errorf("message %d err = %v, want shape mismatch", i, err)
		}
	}
}

func TestGridSize(t *testing.T) {
	tests := []struct {
		name    string
		n, size int
		want    int
		wantErr bool
	}{
		{"single tile", 1, 0, 1, false},
		{"explicit single", 1, 1, 1, false},
		{"large square", 4096 * 4096, 0, 4096, false},
		{"one short of square", 4096*4096 - 1, 0, 0, true},
		{"divisible but not square", 32, 4, 0, true},
		{"no tiles explicit", 0, 3, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GridSize(tt.n, tt.size)
			if tt.wantErr {
				if !errors.Is(err, diagnostics.ErrShapeMismatch) {
					t.Fatalf("err = %v, want shape mismatch", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("GridSize(%d, %d) = %d, %v; want %d", tt.n, tt.size, got, err, tt.want)
			}
		})
	}
}

func TestResizeAndInitValidation(t *testing.T) {
	e := NewEndpoint()
	_ = e.SendResize(0, 10)
	_ = e.SendInit(surfaceStub(), nil)
	_ = e.SendInit(surfaceStub(), shared_state.NewChannel())
	for i := 0; i < 2; i++ {
		if _, _, err := e.Receive(); !errors.Is(err, diagnostics.ErrShapeMismatch) {
			t.Errorf("message %d err = %v", i, err)
		}
	}
	if m, _, err := e.Receive(); err != nil || m.Kind != KindInit {
		t.Errorf("init: %+v %v", m, err)
	}
}

func TestFullQueueConsumesBuffer(t *testing.T) {
	e := NewEndpoint(WithCapacity(1))
	if err := e.SendResize(1, 1); err != nil {
		t.Fatal(err)
	}
	buf := NewBuffer(make([]uint32, 4))
	if err := e.SendGrid(buf, 2); !errors.Is(err, diagnostics.ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}
	if !buf.Detached() {
		t.Error("buffer must be consumed even when dropped")
	}
	if s := e.Stats(); s.Sent != 1 || s.Dropped != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestDrainReportsRejects(t *testing.T) {
	diag := diagnostics.NewChannel(4)
	e := NewEndpoint(WithReporter(diag))
	_ = e.SendGrid(NewBuffer(make([]uint32, 64)), 32)
	_ = e.SendResize(10, 20)

	var got []Message
	n := e.Drain(func(m Message) { got = append(got, m) })
	if n != 1 || len(got) != 1 || got[0].Kind != KindResize {
		t.Fatalf("drained %d %+v", n, got)
	}
	events := diag.Pending()
	if len(events) != 1 || events[0].Kind != diagnostics.KindShapeMismatch {
		t.Fatalf("events = %v", events)
	}
	if s := e.Stats(); s.Received != 1 || s.Rejected != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestOrderPreservedAcrossGoroutines(t *testing.T) {
	e := NewEndpoint(WithCapacity(256))
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 100; i++ {
			_ = e.SendResize(i, i)
		}
	}()
	wg.Wait()
	prev := 0
	e.Drain(func(m Message) {
		if m.Width != prev+1 {
			t.Fatalf("width %d after %d", m.Width, prev)
		}
		prev = m.Width
	})
	if prev != 100 {
		t.Fatalf("received %d messages", prev)
	}
}

func surfaceStub() renderer.Surface {
	return renderer.Surface{Width: 640, Height: 480}
}
