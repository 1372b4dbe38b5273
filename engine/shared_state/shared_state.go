// Package shared_state implements the fixed-layout scalar channel shared by the input and
// render threads. Every slot is a 32-bit float stored as its bit pattern and accessed with a
// single atomic load or store; there is no lock and no snapshot consistency across slots.
// Each field has exactly one writing thread for the life of the process (see Owner).
package shared_state

import (
	"math"
	"sync/atomic"
)

// Field is a named slot offset into the channel. The numeric values are a wire contract for
// every external reader and writer and must never be reordered.
type Field uint32

const (
	CameraX Field = iota
	CameraY
	Zoom
	PointerX
	PointerY
	SurfaceWidth
	SurfaceHeight
	ButtonDown
	CapturedLayer
	HoveredTileX
	HoveredTileY

	fieldCount
)

// SlotCount is the number of 32-bit slots in the channel.
const SlotCount = int(fieldCount)

// Slots is the raw backing region. Indexing it with a Field constant is bounds-checked at
// compile time.
type Slots = [SlotCount]uint32

// NoLayer is the captured-layer sentinel meaning no layer owns the pointer.
const NoLayer = -1

// NoTile is the hovered-tile sentinel meaning the pointer is not over the map.
const NoTile = -1

// Owner identifies the only thread permitted to write a field.
type Owner int

const (
	// OwnerInput is the input/orchestration thread.
	OwnerInput Owner = iota
	// OwnerRender is the rendering thread.
	OwnerRender
)

func (o Owner) String() string {
	if o == OwnerRender {
		return "render"
	}
	return "input"
}

var fieldNames = [SlotCount]string{
	CameraX:       "camera-x",
	CameraY:       "camera-y",
	Zoom:          "zoom",
	PointerX:      "pointer-x",
	PointerY:      "pointer-y",
	SurfaceWidth:  "surface-width",
	SurfaceHeight: "surface-height",
	ButtonDown:    "button-down",
	CapturedLayer: "captured-layer",
	HoveredTileX:  "hovered-tile-x",
	HoveredTileY:  "hovered-tile-y",
}

func (f Field) String() string {
	if int(f) < SlotCount {
		return fieldNames[f]
	}
	return "invalid"
}

// Owner returns the thread that owns writes to f.
//
// Returns:
//   - Owner: OwnerRender for captured-layer and hovered-tile fields, OwnerInput otherwise
func (f Field) Owner() Owner {
	switch f {
	case CapturedLayer, HoveredTileX, HoveredTileY:
		return OwnerRender
	default:
		return OwnerInput
	}
}

// Fields returns every field in offset order.
func Fields() []Field {
	out := make([]Field, SlotCount)
	for i := range out {
		out[i] = Field(i)
	}
	return out
}

// Channel is the shared scalar region. A *Channel is handed to both threads; each thread
// should only write through its own typed view (Input or Render).
type Channel struct {
	slots *Slots
}

// NewChannel allocates a channel and seeds its defaults: zoom 1, no captured layer and no
// hovered tile. Seeding happens before either thread starts and is the only time fields are
// written outside their owner.
//
// Returns:
//   - *Channel: the new channel
func NewChannel() *Channel {
	c := &Channel{slots: &Slots{}}
	c.Write(Zoom, 1)
	c.Write(CapturedLayer, NoLayer)
	c.Write(HoveredTileX, NoTile)
	c.Write(HoveredTileY, NoTile)
	return c
}

// WrapSlots creates a channel over an existing region without copying or seeding it.
// Use it when the region is owned elsewhere, such as a memory-mapped segment.
//
// Parameters:
//   - slots: the backing region, which must outlive the channel
//
// Returns:
//   - *Channel: a channel aliasing slots
func WrapSlots(slots *Slots) *Channel {
	return &Channel{slots: slots}
}

// Read atomically loads the value of f.
func (c *Channel) Read(f Field) float32 {
	return math.Float32frombits(atomic.LoadUint32(&c.slots[f]))
}

// Write atomically stores v into f. Callers must own f; writing another thread's field is not
// detected and produces corrupted visual state.
func (c *Channel) Write(f Field, v float32) {
	atomic.StoreUint32(&c.slots[f], math.Float32bits(v))
}

// Reader returns the read-only view.
func (c *Channel) Reader() Reader {
	return Reader{c: c}
}

// Input returns the view used by the input thread.
func (c *Channel) Input() InputWriter {
	return InputWriter{Reader: Reader{c: c}}
}

// Render returns the view used by the render thread.
func (c *Channel) Render() RenderWriter {
	return RenderWriter{Reader: Reader{c: c}}
}
