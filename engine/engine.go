package engine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-tiles/engine/camera"
	"github.com/Carmen-Shannon/oxy-tiles/engine/diagnostics"
	"github.com/Carmen-Shannon/oxy-tiles/engine/input"
	"github.com/Carmen-Shannon/oxy-tiles/engine/profiler"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer"
	"github.com/Carmen-Shannon/oxy-tiles/engine/shared_state"
	"github.com/Carmen-Shannon/oxy-tiles/engine/transfer"
	"github.com/Carmen-Shannon/oxy-tiles/engine/window"
)

// Compositor ids of the layers built by DefaultLayers, in stacking order.
const (
	MapLayerID = iota
	EntityLayerID
	HoverLayerID
	MinimapLayerID
)

// idleWait is how long the render loop sleeps while it waits for init.
const idleWait = 2 * time.Millisecond

// ErrNoWindow is returned by Run when the engine was built without a window.
var ErrNoWindow = errors.New("engine has no window")

// engine implements the Engine interface.
// Coordinates the input thread (the caller of Run) and the render goroutine.
type engine struct {
	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window     window.Window
	shared     *shared_state.Channel
	endpoint   transfer.Endpoint
	controller input.Controller
	reporter   diagnostics.Reporter

	cameraOptions    []camera.CameraControllerOption
	renderOptions    []RenderContextOption
	transferCapacity int

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	engineTickRate time.Duration
	lastTick       time.Time
	tickCallback   func(deltaTime float32)

	renderFrameLimit atomic.Int64 // minimum frame duration in nanoseconds; 0 = uncapped
}

// Engine is the main entry point for the client.
// It owns the shared state and transfer queue, runs the input loop on the calling goroutine and
// the render loop on a goroutine of its own.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Channel returns the shared state channel.
	//
	// Returns:
	//   - *shared_state.Channel: the channel shared by both threads
	Channel() *shared_state.Channel

	// Endpoint returns the sending side of the transfer queue.
	//
	// Returns:
	//   - transfer.Endpoint: the endpoint
	Endpoint() transfer.Endpoint

	// Controller returns the input controller.
	//
	// Returns:
	//   - input.Controller: the controller driven by window events
	Controller() input.Controller

	// SubmitGrid transfers a tile grid to the render thread and resizes the camera bounds.
	//
	// Parameters:
	//   - buf: the grid buffer; it is detached by the call
	//   - size: the grid edge length, or 0 to infer it
	//
	// Returns:
	//   - error: ErrBufferDetached, ErrQueueFull or nil
	SubmitGrid(buf *transfer.Buffer[uint32], size int) error

	// SubmitEntities transfers an entity table to the render thread.
	//
	// Parameters:
	//   - buf: the entity buffer; it is detached by the call
	//   - count: the number of records
	//
	// Returns:
	//   - error: ErrBufferDetached, ErrQueueFull or nil
	SubmitEntities(buf *transfer.Buffer[float32], count int) error

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the pacing tick rate in ticks per second.
	// The tick callback and continuous panning run at this rate on the input thread.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each pacing tick.
	// Use this to feed the world producer.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to leave pacing to surface presentation (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run starts the render goroutine, sends init, and runs the window loop until the window
	// closes or Quit is called. It must be called from the main goroutine.
	//
	// Returns:
	//   - error: ErrNoWindow, or an error if init could not be sent
	Run() error

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times and from any goroutine; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
// Options are applied directly to the engine struct via the option-builder pattern.
//
// Parameters:
//   - options: functional options for engine configuration (window, tick rate, profiling, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		quitChannel:      make(chan struct{}),
		shared:           shared_state.NewChannel(),
		profiler:         profiler.NewProfiler("render", time.Second),
		engineTickRate:   time.Second / 60,
		transferCapacity: transfer.DefaultCapacity,
	}

	for _, opt := range options {
		opt(e)
	}

	e.endpoint = transfer.NewEndpoint(transfer.WithCapacity(e.transferCapacity), transfer.WithReporter(e.reporter))
	e.controller = input.NewController(e.shared, camera.NewCameraController(e.cameraOptions...))

	if e.window != nil {
		e.bindWindow()
	}
	return e
}

// bindWindow routes window events into the input controller and the transfer queue.
func (e *engine) bindWindow() {
	w := e.window
	c := e.controller
	w.SetEventTimeout(e.engineTickRate)
	w.SetResizeCallback(func(width, height int) {
		if width <= 0 || height <= 0 {
			return
		}
		c.Resize(float32(width), float32(height))
		if err := e.endpoint.SendResize(width, height); err != nil {
			diagnostics.Report(e.reporter, "resize", err, diagnostics.KindTransport)
		}
	})
	w.SetMouseMoveCallback(c.PointerMove)
	w.SetMouseDownCallback(func(b window.MouseButton, x, y float32) {
		switch b {
		case window.MouseButtonLeft:
			c.PrimaryDown(x, y)
		case window.MouseButtonMiddle, window.MouseButtonRight:
			c.DragStart(x, y)
		}
	})
	w.SetMouseUpCallback(func(b window.MouseButton, x, y float32) {
		switch b {
		case window.MouseButtonLeft:
			c.PrimaryUp(x, y)
		case window.MouseButtonMiddle, window.MouseButtonRight:
			c.DragEnd()
		}
	})
	w.SetScrollCallback(c.Scroll)
	w.SetKeyDownCallback(c.KeyDown)
	w.SetKeyUpCallback(c.KeyUp)
	w.SetUpdateCallback(func() { e.tick(time.Now()) })
}

func (e *engine) Window() window.Window          { return e.window }
func (e *engine) Channel() *shared_state.Channel { return e.shared }
func (e *engine) Endpoint() transfer.Endpoint    { return e.endpoint }
func (e *engine) Controller() input.Controller   { return e.controller }

func (e *engine) SubmitGrid(buf *transfer.Buffer[uint32], size int) error {
	n := buf.Len()
	if err := e.endpoint.SendGrid(buf, size); err != nil {
		return err
	}
	if size <= 0 {
		for size*size < n {
			size++
		}
	}
	// a malformed grid is rejected by the render thread, so the camera keeps its bounds
	if size > 0 && size*size == n {
		e.controller.SetMapSize(size)
	}
	return nil
}

func (e *engine) SubmitEntities(buf *transfer.Buffer[float32], count int) error {
	return e.endpoint.SendEntities(buf, count)
}

func (e *engine) Run() error {
	if e.window == nil {
		return ErrNoWindow
	}
	if !e.running.CompareAndSwap(false, true) {
		return fmt.Errorf("engine already running")
	}

	width, height := e.window.Width(), e.window.Height()
	e.controller.Resize(float32(width), float32(height))
	e.controller.Publish()

	e.wg.Add(2)
	go e.handleRender()
	go e.handleQuit()

	surface := renderer.Surface{Descriptor: e.window.SurfaceDescriptor(), Width: width, Height: height}
	if err := e.endpoint.SendInit(surface, e.shared); err != nil {
		e.signalQuit()
		e.wg.Wait()
		return fmt.Errorf("send init: %w", err)
	}

	e.lastTick = time.Now()
	e.window.ProcessMessages()
	e.signalQuit()
	e.wg.Wait()
	return nil
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running.Store(false)
		close(e.quitChannel)
	})
}

// tick runs the pacing tick on the input thread when the tick interval has elapsed.
func (e *engine) tick(now time.Time) {
	elapsed := now.Sub(e.lastTick)
	if elapsed < e.engineTickRate {
		return
	}
	e.lastTick = now
	dt := float32(elapsed.Seconds())
	e.controller.Tick(dt)
	if e.tickCallback != nil {
		e.tickCallback(dt)
	}
}

// handleRender runs the render loop in its own goroutine. Frames are paced by surface
// presentation and the optional frame limit.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	// Recover from panics inside the render goroutine to avoid crashing the whole process.
	defer func() {
		if r := recover(); r != nil {
			diagnostics.Logger().Error("render goroutine recovered from panic", "panic", r)
			e.signalQuit()
		}
	}()

	opts := append([]RenderContextOption{WithDiagnostics(e.reporter)}, e.renderOptions...)
	rc := NewRenderContext(e.endpoint, opts...)
	defer rc.Release()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		start := time.Now()
		_ = rc.Frame(start)
		if !rc.Initialized() {
			time.Sleep(idleWait)
			continue
		}

		if e.profilingEnabled.Load() {
			e.profiler.Tick(time.Now())
		}

		if limit := time.Duration(e.renderFrameLimit.Load()); limit > 0 {
			if remaining := limit - time.Since(start); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// handleQuit blocks until the quit channel is closed, then wakes the window loop.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
	e.window.RequestClose()
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickRate sets the pacing tick rate in ticks per second.
// Must be called from the input thread.
func (e *engine) SetTickRate(fps float64) {
	e.engineTickRate = tickInterval(fps)
	if e.window != nil {
		e.window.SetEventTimeout(e.engineTickRate)
	}
}

// SetTickCallback registers the function called each pacing tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit.Store(int64(frameLimit(fps)))
}

func tickInterval(fps float64) time.Duration {
	if fps <= 0 {
		fps = 60
	}
	return time.Duration(float64(time.Second) / fps)
}

func frameLimit(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
