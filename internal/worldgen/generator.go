// Package worldgen is a synthetic world producer: a noise terrain grid and a population of
// wandering entities, published to the render thread as transfer buffers.
package worldgen

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-tiles/engine/diagnostics"
	"github.com/Carmen-Shannon/oxy-tiles/engine/transfer"
)

// Terrain ids, matching the tile palette in the map shader.
const (
	TerrainDeepWater uint32 = iota
	TerrainShallowWater
	TerrainSand
	TerrainGrass
	TerrainForest
	TerrainHills
	TerrainMountain
	TerrainSnow
)

// StateSelected is the entity state bit set by Select.
const StateSelected = 1

// Passable reports whether entities may walk onto terrain id t.
func Passable(t uint32) bool {
	return t >= TerrainSand && t <= TerrainHills
}

type entity struct {
	x, y     int
	kind     uint32
	state    uint32
	moves    uint64
	cooldown float32
}

// Generator owns the world state. It is driven from the input thread's pacing tick; Step is
// the only method that fans out to the worker pool, and it returns after every shard is done.
type Generator struct {
	seed         uint64
	size         int
	entityCount  int
	kinds        uint32
	moveInterval float32
	shardSize    int
	workers      int

	tiles    []uint32
	entities []entity
	pool     worker.DynamicWorkerPool
	taskID   int
	dirty    bool
}

// NewGenerator creates a world with the provided options.
//
// Parameters:
//   - options: functional options for seed, size, population and workers
//
// Returns:
//   - *Generator: the generated world
func NewGenerator(options ...GeneratorOption) *Generator {
	g := &Generator{
		seed:         1,
		size:         64,
		entityCount:  48,
		kinds:        3,
		moveInterval: 0.6,
		shardSize:    16,
		workers:      4,
	}
	for _, opt := range options {
		opt(g)
	}
	g.pool = worker.NewDynamicWorkerPool(g.workers, 256, 1*time.Second)
	g.tiles = g.terrain()
	g.entities = g.spawn()
	g.dirty = true
	diagnostics.Logger().Info("world generated", "size", g.size, "entities", len(g.entities), "seed", g.seed)
	return g
}

func (g *Generator) terrain() []uint32 {
	tiles := make([]uint32, g.size*g.size)
	scale := 1.0 / 12.0
	for y := range g.size {
		for x := range g.size {
			n := octaveNoise2D(float64(x)*scale, float64(y)*scale, g.seed, 4, 0.5, 2.0)
			t := uint32(n * 8)
			if t > TerrainSnow {
				t = TerrainSnow
			}
			tiles[y*g.size+x] = t
		}
	}
	return tiles
}

func (g *Generator) spawn() []entity {
	out := make([]entity, 0, g.entityCount)
	for i := uint64(0); len(out) < g.entityCount && i < uint64(g.entityCount)*64; i++ {
		h := hash2(int64(i), -1, g.seed)
		x := int(h % uint64(g.size))
		y := int((h >> 20) % uint64(g.size))
		if !Passable(g.Tile(x, y)) {
			continue
		}
		out = append(out, entity{
			x:        x,
			y:        y,
			kind:     uint32(h>>40) % g.kinds,
			cooldown: float32((h>>48)%1000) / 1000 * g.moveInterval,
		})
	}
	return out
}

// Size returns the grid edge length.
func (g *Generator) Size() int { return g.size }

// Tile returns the terrain id at (x, y), or TerrainDeepWater outside the grid.
func (g *Generator) Tile(x, y int) uint32 {
	if x < 0 || y < 0 || x >= g.size || y >= g.size {
		return TerrainDeepWater
	}
	return g.tiles[y*g.size+x]
}

// Grid returns a fresh copy of the terrain grid, ready to transfer.
func (g *Generator) Grid() *transfer.Buffer[uint32] {
	return transfer.NewBuffer(append([]uint32(nil), g.tiles...))
}

// Count returns the number of entities.
func (g *Generator) Count() int { return len(g.entities) }

// Dirty reports whether entities changed since the last call to Entities.
func (g *Generator) Dirty() bool { return g.dirty }

// Entities returns a fresh entity table, one record of x, y, type id and state bits per entity
// with positions at tile centers, and clears the dirty flag.
//
// Returns:
//   - *transfer.Buffer[float32]: the table, ready to transfer
//   - int: the record count
func (g *Generator) Entities() (*transfer.Buffer[float32], int) {
	records := make([]float32, len(g.entities)*transfer.RecordWidth)
	for i, e := range g.entities {
		r := records[i*transfer.RecordWidth:]
		r[0] = float32(e.x) + 0.5
		r[1] = float32(e.y) + 0.5
		r[2] = float32(e.kind)
		r[3] = float32(e.state)
	}
	g.dirty = false
	return transfer.NewBuffer(records), len(g.entities)
}

// Position returns the tile entity i stands on.
func (g *Generator) Position(i int) (x, y int, ok bool) {
	if i < 0 || i >= len(g.entities) {
		return 0, 0, false
	}
	return g.entities[i].x, g.entities[i].y, true
}

// Selected reports whether entity i carries the selected state bit.
func (g *Generator) Selected(i int) bool {
	return i >= 0 && i < len(g.entities) && g.entities[i].state&StateSelected != 0
}

// Select marks the entities standing on (x, y) as selected and clears every other selection.
//
// Parameters:
//   - x, y: the selected tile
//
// Returns:
//   - int: the number of entities on the tile
func (g *Generator) Select(x, y int) int {
	n := 0
	for i := range g.entities {
		e := &g.entities[i]
		prev := e.state
		if e.x == x && e.y == y {
			e.state |= StateSelected
			n++
		} else {
			e.state &^= StateSelected
		}
		if e.state != prev {
			g.dirty = true
		}
	}
	return n
}

// Step advances every entity by dt seconds. Entities are processed in shards on the worker
// pool; each entity's choices depend only on its index and move count, so the result does not
// depend on the sharding.
//
// Parameters:
//   - dt: elapsed seconds
//
// Returns:
//   - int: the number of entities that moved
func (g *Generator) Step(dt float32) int {
	if dt <= 0 || len(g.entities) == 0 {
		return 0
	}

	moved := make([]int, (len(g.entities)+g.shardSize-1)/g.shardSize)
	var wg sync.WaitGroup
	for shard := range moved {
		lo := shard * g.shardSize
		hi := min(lo+g.shardSize, len(g.entities))
		wg.Add(1)
		id := g.taskID
		g.taskID++
		g.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				moved[shard] = g.stepRange(lo, hi, dt)
				return nil, nil
			},
		})
	}
	wg.Wait()

	total := 0
	for _, n := range moved {
		total += n
	}
	if total > 0 {
		g.dirty = true
	}
	return total
}

var directions = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

// stepRange advances entities [lo, hi). Shards write disjoint entities and only read tiles.
func (g *Generator) stepRange(lo, hi int, dt float32) int {
	moved := 0
	for i := lo; i < hi; i++ {
		e := &g.entities[i]
		e.cooldown -= dt
		if e.cooldown > 0 {
			continue
		}
		e.cooldown += g.moveInterval
		h := hash2(int64(i), int64(e.moves), g.seed^0xA5A5A5A5)
		e.moves++
		start := int(h % 4)
		for k := range 4 {
			d := directions[(start+k)%4]
			nx, ny := e.x+d[0], e.y+d[1]
			if Passable(g.Tile(nx, ny)) {
				e.x, e.y = nx, ny
				moved++
				break
			}
		}
	}
	return moved
}
