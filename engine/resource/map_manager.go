package resource

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-tiles/common"
	"github.com/Carmen-Shannon/oxy-tiles/engine/diagnostics"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer"
	"github.com/Carmen-Shannon/oxy-tiles/engine/transfer"
)

// mapManager is the implementation of the MapManager interface.
type mapManager struct {
	cfg   managerConfig
	alloc BufferAllocator

	buffer  renderer.Buffer
	tiles   []uint32
	size    int
	version uint64
}

// MapManager owns the storage buffer holding the square tile grid.
type MapManager interface {
	// UpdateGridData replaces the whole grid. The storage buffer is recreated, and the version
	// bumped, only when no buffer exists yet or size differs from the previous size. The full
	// grid is written every call.
	//
	// Parameters:
	//   - tiles: row-major tile ids; ownership moves to the manager
	//   - size: grid edge length, or <= 0 to infer it from len(tiles)
	//
	// Returns:
	//   - error: an error wrapping diagnostics.ErrShapeMismatch when len(tiles) != size*size,
	//     in which case the previous state is kept
	UpdateGridData(tiles []uint32, size int) error

	// ResourceHandle returns the storage buffer, or nil before the first update.
	ResourceHandle() renderer.Buffer

	// Size returns the grid edge length, or 0 before the first update.
	Size() int

	// Version returns the number of times the buffer has been recreated.
	Version() uint64

	// Ready reports whether a buffer holding grid data exists.
	Ready() bool

	// Tile returns the tile id at (x, y).
	//
	// Returns:
	//   - uint32: the tile id
	//   - bool: false when (x, y) is outside the grid or no grid is loaded
	Tile(x, y int) (uint32, bool)

	// Release frees the storage buffer. The manager returns to the uninitialized state but
	// keeps its version counter.
	Release()
}

var _ MapManager = &mapManager{}

// NewMapManager creates a MapManager that allocates through alloc.
//
// Parameters:
//   - alloc: the buffer allocator, normally the Renderer
//   - options: variadic list of ManagerOption functions
//
// Returns:
//   - MapManager: an uninitialized manager
func NewMapManager(alloc BufferAllocator, options ...ManagerOption) MapManager {
	return &mapManager{
		cfg:   newManagerConfig("map", options...),
		alloc: alloc,
	}
}

func (m *mapManager) UpdateGridData(tiles []uint32, size int) error {
	size, err := transfer.GridSize(len(tiles), size)
	if err != nil {
		return m.cfg.fail(err, diagnostics.KindShapeMismatch)
	}

	if m.buffer == nil || size != m.size {
		buf, err := m.alloc.CreateBuffer(m.cfg.label+" grid", uint64(len(tiles))*4, renderer.BufferUsageStorage)
		if err != nil {
			return m.cfg.fail(fmt.Errorf("allocate grid buffer: %w", err), diagnostics.KindResource)
		}
		if m.buffer != nil {
			m.buffer.Release()
		}
		m.buffer = buf
		m.version++
	}
	m.tiles = tiles
	m.size = size

	if err := m.alloc.WriteBuffer(m.buffer, 0, common.SliceToBytes(tiles)); err != nil {
		return m.cfg.fail(fmt.Errorf("write grid buffer: %w", err), diagnostics.KindResource)
	}
	return nil
}

func (m *mapManager) ResourceHandle() renderer.Buffer {
	return m.buffer
}

func (m *mapManager) Size() int {
	return m.size
}

func (m *mapManager) Version() uint64 {
	return m.version
}

func (m *mapManager) Ready() bool {
	return m.buffer != nil && m.size > 0
}

func (m *mapManager) Tile(x, y int) (uint32, bool) {
	if x < 0 || y < 0 || x >= m.size || y >= m.size {
		return 0, false
	}
	return m.tiles[y*m.size+x], true
}

func (m *mapManager) Release() {
	if m.buffer != nil {
		m.buffer.Release()
		m.buffer = nil
	}
	m.tiles = nil
	m.size = 0
}
