package transfer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-tiles/engine/diagnostics"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer"
	"github.com/Carmen-Shannon/oxy-tiles/engine/shared_state"
)

// RecordWidth is the number of float32 values per entity record: x, y, typeId, stateBits.
const RecordWidth = 4

// Kind tags a Message.
type Kind int

const (
	// KindInit hands the render thread its surface and the shared state channel.
	KindInit Kind = iota
	// KindResize carries a new framebuffer size.
	KindResize
	// KindUpdateGrid carries a full square tile grid.
	KindUpdateGrid
	// KindUpdateEntities carries a full entity table.
	KindUpdateEntities
)

func (k Kind) String() string {
	switch k {
	case KindInit:
		return "init"
	case KindResize:
		return "resize"
	case KindUpdateGrid:
		return "update-grid"
	case KindUpdateEntities:
		return "update-entities"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Message is a validated message as seen by the receiver. Only the fields of its Kind are set.
type Message struct {
	Kind Kind

	// KindInit
	Surface renderer.Surface
	Shared  *shared_state.Channel

	// KindResize
	Width, Height int

	// KindUpdateGrid. Size is the grid edge length; len(Tiles) == Size*Size.
	Tiles []uint32
	Size  int

	// KindUpdateEntities. len(Records) == Count*RecordWidth.
	Records []float32
	Count   int
}

// validate checks element counts against the shape the Kind requires. Grid sizes <= 0 are
// inferred from the element count, which must then be a perfect square.
func (m *Message) validate() error {
	switch m.Kind {
	case KindInit:
		if m.Shared == nil {
			return fmt.Errorf("init: %w: shared state channel is nil", diagnostics.ErrShapeMismatch)
		}
	case KindResize:
		if m.Width <= 0 || m.Height <= 0 {
			return fmt.Errorf("resize: %w: %dx%d", diagnostics.ErrShapeMismatch, m.Width, m.Height)
		}
	case KindUpdateGrid:
		size, err := GridSize(len(m.Tiles), m.Size)
		if err != nil {
			return err
		}
		m.Size = size
	case KindUpdateEntities:
		if err := CheckRecords(len(m.Records), m.Count); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown message kind %d", diagnostics.ErrShapeMismatch, int(m.Kind))
	}
	return nil
}
