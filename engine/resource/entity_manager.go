package resource

import (
	"fmt"
	"sort"
	"time"

	"github.com/Carmen-Shannon/oxy-tiles/common"
	"github.com/Carmen-Shannon/oxy-tiles/engine/diagnostics"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer"
	"github.com/Carmen-Shannon/oxy-tiles/engine/transfer"
)

const recordBytes = transfer.RecordWidth * 4

// entityManager is the implementation of the EntityManager interface.
type entityManager struct {
	cfg   managerConfig
	alloc BufferAllocator

	buffer   renderer.Buffer
	capacity int // records the buffer can hold

	committed []float32
	snapshot  []float32
	count     int
	hasTable  bool
	version   uint64

	active map[int]*interpolation
}

// EntityManager owns the storage buffer holding the entity table and smooths position changes
// between discrete updates.
type EntityManager interface {
	// UpdateEntityData replaces the entity table. When the previous table has the same count,
	// every slot whose displayed position differs from its new position starts a fresh
	// interpolation anchored at the displayed position; unchanged slots stop interpolating.
	// The buffer is recreated, and the version bumped, only when count changed or no buffer
	// exists.
	//
	// Parameters:
	//   - records: RecordWidth values per entity; ownership moves to the manager
	//   - count: number of entities
	//
	// Returns:
	//   - error: an error wrapping diagnostics.ErrShapeMismatch when
	//     len(records) != count*RecordWidth, in which case the previous state is kept
	UpdateEntityData(records []float32, count int) error

	// AdvanceInterpolation moves every active interpolation to now, retires the ones that
	// reached their target, and writes the resulting snapshot. Without active interpolations
	// it does nothing.
	//
	// Parameters:
	//   - now: the frame time, from the same monotonic source as the update clock
	//
	// Returns:
	//   - error: a write error from the allocator
	AdvanceInterpolation(now time.Time) error

	// ResourceHandle returns the storage buffer, or nil before the first update.
	ResourceHandle() renderer.Buffer

	// Count returns the number of entities in the committed table.
	Count() int

	// Version returns the number of times the buffer has been recreated.
	Version() uint64

	// Ready reports whether a buffer holding a table exists.
	Ready() bool

	// ActiveInterpolations returns the slots currently interpolating, ascending.
	ActiveInterpolations() []int

	// Displayed returns the position last written for slot i.
	//
	// Returns:
	//   - x, y: the displayed position
	//   - ok: false when i is out of range
	Displayed(i int) (x, y float32, ok bool)

	// Snapshot returns a copy of the table last written to the buffer.
	Snapshot() []float32

	// Release frees the storage buffer and forgets the table, keeping the version counter.
	Release()
}

var _ EntityManager = &entityManager{}

// NewEntityManager creates an EntityManager that allocates through alloc.
//
// Parameters:
//   - alloc: the buffer allocator, normally the Renderer
//   - options: variadic list of ManagerOption functions
//
// Returns:
//   - EntityManager: an uninitialized manager
func NewEntityManager(alloc BufferAllocator, options ...ManagerOption) EntityManager {
	return &entityManager{
		cfg:    newManagerConfig("entities", options...),
		alloc:  alloc,
		active: make(map[int]*interpolation),
	}
}

// displayedAt returns where slot i is drawn at now without mutating any state.
func (m *entityManager) displayedAt(i int, now time.Time) (float32, float32) {
	if s, ok := m.active[i]; ok {
		return s.at(s.progress(now, m.cfg.moveDuration))
	}
	return m.committed[i*transfer.RecordWidth], m.committed[i*transfer.RecordWidth+1]
}

func (m *entityManager) UpdateEntityData(records []float32, count int) error {
	if err := transfer.CheckRecords(len(records), count); err != nil {
		return m.cfg.fail(err, diagnostics.KindShapeMismatch)
	}
	now := m.cfg.clock()

	// a failed allocation leaves the previous table in place
	if m.buffer == nil || !m.hasTable || count != m.count {
		if err := m.recreate(count); err != nil {
			return err
		}
		clear(m.active)
	} else {
		for i := 0; i < count; i++ {
			x, y := m.displayedAt(i, now)
			tx := records[i*transfer.RecordWidth]
			ty := records[i*transfer.RecordWidth+1]
			if x == tx && y == ty {
				delete(m.active, i)
				continue
			}
			m.active[i] = &interpolation{startX: x, startY: y, targetX: tx, targetY: ty, startTime: now}
		}
	}

	m.committed = records
	m.count = count
	m.hasTable = true

	if len(m.active) == 0 {
		m.snapshot = append(m.snapshot[:0], m.committed...)
		return m.write(m.committed)
	}
	m.fillSnapshot(now, false)
	return m.write(m.snapshot)
}

func (m *entityManager) recreate(count int) error {
	records := max(count, 1)
	buf, err := m.alloc.CreateBuffer(m.cfg.label+" table", uint64(records)*recordBytes, renderer.BufferUsageStorage)
	if err != nil {
		return m.cfg.fail(fmt.Errorf("allocate entity buffer: %w", err), diagnostics.KindResource)
	}
	if m.buffer != nil {
		m.buffer.Release()
	}
	m.buffer = buf
	m.capacity = records
	m.version++
	return nil
}

func (m *entityManager) fillSnapshot(now time.Time, retire bool) {
	m.snapshot = append(m.snapshot[:0], m.committed...)
	for i, s := range m.active {
		p := s.progress(now, m.cfg.moveDuration)
		x, y := s.at(p)
		m.snapshot[i*transfer.RecordWidth] = x
		m.snapshot[i*transfer.RecordWidth+1] = y
		if retire && p >= 1 {
			delete(m.active, i)
		}
	}
}

func (m *entityManager) write(table []float32) error {
	if m.buffer == nil || len(table) == 0 {
		return nil
	}
	if err := m.alloc.WriteBuffer(m.buffer, 0, common.SliceToBytes(table)); err != nil {
		return m.cfg.fail(fmt.Errorf("write entity buffer: %w", err), diagnostics.KindResource)
	}
	return nil
}

func (m *entityManager) AdvanceInterpolation(now time.Time) error {
	if len(m.active) == 0 || !m.Ready() {
		return nil
	}
	m.fillSnapshot(now, true)
	return m.write(m.snapshot)
}

func (m *entityManager) ResourceHandle() renderer.Buffer {
	return m.buffer
}

func (m *entityManager) Count() int {
	return m.count
}

func (m *entityManager) Version() uint64 {
	return m.version
}

func (m *entityManager) Ready() bool {
	return m.buffer != nil && m.hasTable
}

func (m *entityManager) ActiveInterpolations() []int {
	out := make([]int, 0, len(m.active))
	for i := range m.active {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func (m *entityManager) Displayed(i int) (float32, float32, bool) {
	if i < 0 || i >= m.count || len(m.snapshot) < (i+1)*transfer.RecordWidth {
		return 0, 0, false
	}
	return m.snapshot[i*transfer.RecordWidth], m.snapshot[i*transfer.RecordWidth+1], true
}

func (m *entityManager) Snapshot() []float32 {
	return append([]float32(nil), m.snapshot...)
}

func (m *entityManager) Release() {
	if m.buffer != nil {
		m.buffer.Release()
		m.buffer = nil
	}
	m.committed = nil
	m.snapshot = nil
	m.count = 0
	m.capacity = 0
	m.hasTable = false
	clear(m.active)
}
