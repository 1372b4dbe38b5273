package worldgen

// GeneratorOption is a functional option for configuring a Generator.
type GeneratorOption func(*Generator)

// WithSeed sets the world seed.
//
// Parameters:
//   - seed: the seed for terrain and entity behavior
//
// Returns:
//   - GeneratorOption: a function that applies the seed option
func WithSeed(seed uint64) GeneratorOption {
	return func(g *Generator) {
		g.seed = seed
	}
}

// WithSize sets the grid edge length in tiles.
//
// Parameters:
//   - size: the edge length (ignored if <= 0)
//
// Returns:
//   - GeneratorOption: a function that applies the size option
func WithSize(size int) GeneratorOption {
	return func(g *Generator) {
		if size > 0 {
			g.size = size
		}
	}
}

// WithEntities sets how many entities to spawn. Fewer may spawn on a map with little land.
//
// Parameters:
//   - n: the population (ignored if < 0)
//
// Returns:
//   - GeneratorOption: a function that applies the population option
func WithEntities(n int) GeneratorOption {
	return func(g *Generator) {
		if n >= 0 {
			g.entityCount = n
		}
	}
}

// WithMoveInterval sets the seconds between an entity's steps.
func WithMoveInterval(seconds float32) GeneratorOption {
	return func(g *Generator) {
		if seconds > 0 {
			g.moveInterval = seconds
		}
	}
}

// WithWorkers sets the worker pool size and the number of entities per task.
//
// Parameters:
//   - workers: the number of pool workers (ignored if <= 0)
//   - shardSize: entities per submitted task (ignored if <= 0)
//
// Returns:
//   - GeneratorOption: a function that applies the worker option
func WithWorkers(workers, shardSize int) GeneratorOption {
	return func(g *Generator) {
		if workers > 0 {
			g.workers = workers
		}
		if shardSize > 0 {
			g.shardSize = shardSize
		}
	}
}
