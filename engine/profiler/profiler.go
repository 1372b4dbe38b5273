package profiler

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-tiles/engine/diagnostics"
)

// Stats is a snapshot of one profiling interval.
type Stats struct {
	FPS          float64
	MaxFrame     time.Duration
	HeapMB       float64
	AllocRateMB  float64
	GCCount      uint32
	LastPauseUs  uint64
	MaxPauseUs   uint64
	SysMB        float64
	IntervalSpan time.Duration
}

// Profiler tracks frame rate and memory statistics for performance monitoring.
// Logs stats through the diagnostics logger at a configurable interval.
type Profiler struct {
	name           string
	frameCount     int
	lastTime       time.Time
	lastFrame      time.Time
	maxFrame       time.Duration
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           Stats
}

// NewProfiler creates a new Profiler.
//
// Parameters:
//   - name: the loop being profiled, attached to every log record
//   - interval: how often stats are logged (defaults to 1 second if <= 0)
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(name string, interval time.Duration) *Profiler {
	if interval <= 0 {
		interval = time.Second
	}
	now := time.Now()
	return &Profiler{
		name:           name,
		lastTime:       now,
		lastFrame:      now,
		updateInterval: interval,
	}
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, longest frame, heap usage, allocation rate, GC count/pause times, total memory.
//
// Parameters:
//   - now: the time the frame finished
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(now time.Time) bool {
	p.frameCount++
	if d := now.Sub(p.lastFrame); d > p.maxFrame {
		p.maxFrame = d
	}
	p.lastFrame = now

	elapsed := now.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	// Alloc: Bytes of allocated heap objects (live memory)
	// TotalAlloc: Cumulative bytes allocated for heap objects (increases forever, tracks churn)
	// Sys: Total bytes of memory obtained from the OS (actual process footprint)
	s := Stats{
		FPS:          float64(p.frameCount) / elapsed.Seconds(),
		MaxFrame:     p.maxFrame,
		HeapMB:       float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:        float64(p.memStats.Sys) / 1024 / 1024,
		AllocRateMB:  float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:      p.memStats.NumGC,
		IntervalSpan: elapsed,
	}

	if gcCount := p.memStats.NumGC; gcCount > 0 {
		// PauseNs is a circular buffer of last 256 GC pauses
		s.LastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			if pause := p.memStats.PauseNs[i%256] / 1000; pause > s.MaxPauseUs {
				s.MaxPauseUs = pause
			}
		}
	}

	diagnostics.Logger().Info("profiler",
		slog.String("loop", p.name),
		slog.Float64("fps", s.FPS),
		slog.Duration("max_frame", s.MaxFrame),
		slog.Float64("heap_mb", s.HeapMB),
		slog.Float64("alloc_rate_mb_s", s.AllocRateMB),
		slog.Uint64("gc", uint64(s.GCCount)),
		slog.Uint64("gc_last_pause_us", s.LastPauseUs),
		slog.Uint64("gc_max_pause_us", s.MaxPauseUs),
		slog.Float64("sys_mb", s.SysMB),
	)

	p.last = s
	p.frameCount = 0
	p.maxFrame = 0
	p.lastTime = now
	p.lastGCCount = p.memStats.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Last returns the stats logged by the most recent reporting tick.
//
// Returns:
//   - Stats: the last snapshot, zero before the first report
func (p *Profiler) Last() Stats {
	return p.last
}
