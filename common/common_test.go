package common

import "testing"

func TestRectContainsIsHalfOpen(t *testing.T) {
	r := Rect{X: 10, Y: 10, W: 50, H: 50}
	cases := []struct {
		x, y float32
		want bool
	}{
		{20, 20, true},
		{10, 10, true},
		{59.9, 59.9, true},
		{60, 20, false},
		{20, 60, false},
		{9.9, 20, false},
		{500, 500, false},
	}
	for _, c := range cases {
		if got := r.Contains(c.x, c.y); got != c.want {
			t.Errorf("Contains(%v, %v) = %v, want %v", c.x, c.y, got, c.want)
		}
	}
}

func TestRectClip(t *testing.T) {
	r := Rect{X: -10, Y: 20, W: 100, H: 100}
	got := r.Clip(50, 80)
	want := Rect{X: 0, Y: 20, W: 50, H: 60}
	if got != want {
		t.Fatalf("Clip = %+v, want %+v", got, want)
	}

	outside := Rect{X: 200, Y: 200, W: 10, H: 10}.Clip(50, 50)
	if !outside.Empty() {
		t.Fatalf("expected empty clip, got %+v", outside)
	}
}

func TestSliceToBytesSharesMemory(t *testing.T) {
	data := []uint32{1, 2}
	b := SliceToBytes(data)
	if len(b) != 8 {
		t.Fatalf("len = %d, want 8", len(b))
	}
	data[0] = 0x01020304
	if b[0] != 0x04 && b[3] != 0x04 {
		t.Fatalf("byte view does not alias source slice")
	}
	if SliceToBytes([]float32(nil)) != nil {
		t.Fatal("expected nil for empty slice")
	}
}

func TestAlignUp(t *testing.T) {
	if got := AlignUp(13, 16); got != 16 {
		t.Fatalf("AlignUp(13,16) = %d", got)
	}
	if got := AlignUp(32, 16); got != 32 {
		t.Fatalf("AlignUp(32,16) = %d", got)
	}
}

func TestCoalesce(t *testing.T) {
	if got := Coalesce("", "label", "other"); got != "label" {
		t.Fatalf("Coalesce = %q", got)
	}
	if got := Coalesce(0, 0); got != 0 {
		t.Fatalf("Coalesce = %d", got)
	}
}
