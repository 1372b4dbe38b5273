// Command oxy-tiles opens a window and renders a generated tile world with wandering entities.
//
// Controls: WASD or arrows pan (shift is faster), the wheel or +/- zooms, middle or right drag
// pans, space recenters, a left click selects a tile, and a click on the minimap jumps there.
package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-tiles/common"
	"github.com/Carmen-Shannon/oxy-tiles/engine"
	"github.com/Carmen-Shannon/oxy-tiles/engine/camera"
	"github.com/Carmen-Shannon/oxy-tiles/engine/compositor"
	"github.com/Carmen-Shannon/oxy-tiles/engine/diagnostics"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer"
	"github.com/Carmen-Shannon/oxy-tiles/engine/resource"
	"github.com/Carmen-Shannon/oxy-tiles/engine/window"
	"github.com/Carmen-Shannon/oxy-tiles/internal/worldgen"
	"github.com/xlab/closer"
)

type config struct {
	title      string
	width      int
	height     int
	size       int
	entities   int
	seed       uint64
	tickRate   float64
	frameLimit float64
	vsync      bool
	software   bool
	profile    bool
	move       time.Duration
	logLevel   string
}

func parseFlags() config {
	var c config
	flag.StringVar(&c.title, "title", "", "window title")
	flag.IntVar(&c.width, "width", 1280, "initial window width in pixels")
	flag.IntVar(&c.height, "height", 720, "initial window height in pixels")
	flag.IntVar(&c.size, "size", 64, "map edge length in tiles")
	flag.IntVar(&c.entities, "entities", 48, "number of wandering entities")
	flag.Uint64Var(&c.seed, "seed", 1, "world seed")
	flag.Float64Var(&c.tickRate, "tick", 60, "input pacing ticks per second")
	flag.Float64Var(&c.frameLimit, "fps-limit", 0, "render frame cap, 0 leaves pacing to presentation")
	flag.BoolVar(&c.vsync, "vsync", true, "present with vertical sync")
	flag.BoolVar(&c.software, "software", false, "force a software adapter")
	flag.BoolVar(&c.profile, "profile", false, "log render loop statistics every second")
	flag.DurationVar(&c.move, "move-duration", resource.DefaultMoveDuration, "entity glide duration")
	flag.StringVar(&c.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	flag.Parse()
	return c
}

func main() {
	defer closer.Close()

	cfg := parseFlags()

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.logLevel)); err != nil {
		level = slog.LevelInfo
	}
	diagnostics.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	log := diagnostics.Logger()

	presentMode := renderer.PresentModeVSync
	if !cfg.vsync {
		presentMode = renderer.PresentModeUncapped
	}

	world := worldgen.NewGenerator(
		worldgen.WithSeed(cfg.seed),
		worldgen.WithSize(cfg.size),
		worldgen.WithEntities(cfg.entities),
	)

	diag := diagnostics.NewChannel(256)
	eng := engine.NewEngine(
		engine.WithWindow(window.NewWindow(
			window.WithTitle(common.Coalesce(cfg.title, "oxy-tiles")),
			window.WithWidth(cfg.width),
			window.WithHeight(cfg.height),
		)),
		engine.WithTickRate(cfg.tickRate),
		engine.WithRenderFrameLimit(cfg.frameLimit),
		engine.WithProfiling(cfg.profile),
		engine.WithReporter(diag),
		engine.WithCameraOptions(
			camera.WithMapSize(float32(world.Size())),
			camera.WithPanSpeed(0.75),
		),
		engine.WithRenderContextOptions(
			engine.WithRendererFactory(func(s renderer.Surface) (renderer.Renderer, error) {
				return renderer.NewRenderer(s,
					renderer.WithPresentMode(presentMode),
					renderer.WithForceSoftwareRenderer(cfg.software),
				)
			}),
			engine.WithManagerOptions(resource.WithMoveDuration(cfg.move)),
		),
	)
	closer.Bind(eng.Quit)

	ctrl := eng.Controller()
	ctrl.OnWorldSelect(func(tx, ty int) {
		n := world.Select(tx, ty)
		log.Info("tile selected", "x", tx, "y", ty, "terrain", world.Tile(tx, ty), "entities", n)
	})
	ctrl.HandleOverlay(engine.MinimapLayerID, func(x, y float32) {
		v := ctrl.Camera().View()
		r := compositor.MinimapViewport(v.Width, v.Height, compositor.DefaultMinimapSize, compositor.DefaultMinimapMargin)
		wx, wy := compositor.MinimapToWorld(r, x, y, ctrl.Camera().MapSize())
		ctrl.Camera().SetPosition(wx, wy)
		ctrl.Publish()
	})

	if err := eng.SubmitGrid(world.Grid(), world.Size()); err != nil {
		log.Error("submit grid", "err", err)
		closer.Exit(1)
	}

	eng.SetTickCallback(func(dt float32) {
		world.Step(dt)
		if world.Dirty() {
			buf, n := world.Entities()
			if err := eng.SubmitEntities(buf, n); err != nil && !errors.Is(err, diagnostics.ErrQueueFull) {
				log.Warn("submit entities", "err", err)
			}
		}
		if events := diag.Pending(); len(events) > 0 {
			log.Debug("diagnostics drained", "events", len(events), "dropped", diag.Dropped())
		}
	})

	if err := eng.Run(); err != nil {
		log.Error("engine stopped", "err", err)
		closer.Exit(1)
	}
	stats := eng.Endpoint().Stats()
	log.Info("shutdown", "sent", stats.Sent, "received", stats.Received, "rejected", stats.Rejected, "dropped", stats.Dropped)
	if err := eng.Window().Close(); err != nil {
		log.Warn("close window", "err", err)
	}
}
