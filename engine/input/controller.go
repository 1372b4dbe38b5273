// Package input runs on the input thread. It turns window events into camera motion and
// input-owned shared-state writes, and dispatches clicks using the capture and hover results
// the render thread publishes back.
package input

import (
	"github.com/Carmen-Shannon/oxy-tiles/common"
	"github.com/Carmen-Shannon/oxy-tiles/engine/camera"
	"github.com/Carmen-Shannon/oxy-tiles/engine/shared_state"
)

// WorldSelectFunc receives the tile under the pointer when a world click completes.
type WorldSelectFunc func(tileX, tileY int)

// OverlayClickFunc receives the pointer position when a click on an overlay layer completes.
type OverlayClickFunc func(screenX, screenY float32)

// controller implements the Controller interface.
type controller struct {
	shared *shared_state.Channel
	camera camera.CameraController

	pointerX, pointerY float32
	primaryDown        bool
	dragging           bool

	held map[uint32]bool

	onWorldSelect WorldSelectFunc
	overlays      map[int]OverlayClickFunc
}

// Controller owns the input-thread side of the shared state. Every method must be called from the
// input thread.
type Controller interface {
	// Camera returns the camera controller driven by this input controller.
	Camera() camera.CameraController

	// PointerMove records the pointer position and pans the camera while a drag is active.
	//
	// Parameters:
	//   - x, y: pointer position in pixels, origin top-left
	PointerMove(x, y float32)

	// PrimaryDown marks the selection button as held.
	//
	// Parameters:
	//   - x, y: pointer position in pixels
	PrimaryDown(x, y float32)

	// PrimaryUp releases the selection button and dispatches the click. The captured layer is
	// read before the button-down field is cleared, so the result of the last rendered frame
	// decides the owner.
	//
	// Parameters:
	//   - x, y: pointer position in pixels
	PrimaryUp(x, y float32)

	// DragStart begins a camera drag at the pointer.
	DragStart(x, y float32)

	// DragEnd ends a camera drag.
	DragEnd()

	// Scroll zooms the camera about the pointer.
	//
	// Parameters:
	//   - steps: wheel steps, positive zooms in
	Scroll(steps float32)

	// KeyDown marks a key as held. Discrete keys take effect immediately.
	//
	// Parameters:
	//   - key: the virtual key code
	KeyDown(key uint32)

	// KeyUp releases a held key.
	//
	// Parameters:
	//   - key: the virtual key code
	KeyUp(key uint32)

	// Tick advances continuous panning for held movement keys.
	//
	// Parameters:
	//   - dt: seconds since the previous tick
	Tick(dt float32)

	// Resize updates the camera for a new surface size and publishes it.
	Resize(width, height float32)

	// SetMapSize updates the camera bounds for a new map edge length and publishes them.
	SetMapSize(size int)

	// Publish writes the camera pose, surface and pointer into the shared state.
	Publish()

	// OnWorldSelect sets the handler for clicks owned by a world layer.
	OnWorldSelect(fn WorldSelectFunc)

	// HandleOverlay routes clicks captured by layerID to fn instead of world selection.
	//
	// Parameters:
	//   - layerID: the compositor id of the overlay layer
	//   - fn: the handler, or nil to remove the route
	HandleOverlay(layerID int, fn OverlayClickFunc)
}

var _ Controller = &controller{}

// NewController creates an input controller writing to shared and driving cam.
//
// Parameters:
//   - shared: the shared state channel
//   - cam: the camera controller
//
// Returns:
//   - Controller: the new controller
func NewController(shared *shared_state.Channel, cam camera.CameraController) Controller {
	if cam == nil {
		cam = camera.NewCameraController()
	}
	return &controller{
		shared:   shared,
		camera:   cam,
		held:     make(map[uint32]bool),
		overlays: make(map[int]OverlayClickFunc),
	}
}

func (c *controller) Camera() camera.CameraController {
	return c.camera
}

func (c *controller) PointerMove(x, y float32) {
	if c.dragging {
		c.camera.PanScreen(x-c.pointerX, y-c.pointerY)
		c.camera.Publish(c.shared.Input())
	}
	c.pointerX, c.pointerY = x, y
	c.shared.Input().SetPointer(x, y)
}

func (c *controller) PrimaryDown(x, y float32) {
	c.PointerMove(x, y)
	c.primaryDown = true
	c.shared.Input().SetButtonDown(true)
}

func (c *controller) PrimaryUp(x, y float32) {
	if !c.primaryDown {
		return
	}
	c.PointerMove(x, y)
	r := c.shared.Reader()
	captured := r.CapturedLayer()
	tx, ty := r.HoveredTile()

	c.primaryDown = false
	c.shared.Input().SetButtonDown(false)

	if captured == shared_state.NoLayer {
		return
	}
	if fn, ok := c.overlays[captured]; ok {
		fn(x, y)
		return
	}
	if c.onWorldSelect != nil && tx != shared_state.NoTile {
		c.onWorldSelect(tx, ty)
	}
}

func (c *controller) DragStart(x, y float32) {
	c.pointerX, c.pointerY = x, y
	c.dragging = true
}

func (c *controller) DragEnd() {
	c.dragging = false
}

func (c *controller) Scroll(steps float32) {
	c.camera.Scroll(c.pointerX, c.pointerY, steps)
	c.camera.Publish(c.shared.Input())
}

func (c *controller) KeyDown(key uint32) {
	if c.held[key] {
		return
	}
	c.held[key] = true

	v := c.camera.View()
	switch key {
	case common.KeyEqual:
		c.camera.Scroll(v.Width/2, v.Height/2, 1)
	case common.KeyMinus:
		c.camera.Scroll(v.Width/2, v.Height/2, -1)
	case common.KeySpace:
		half := c.camera.MapSize() / 2
		c.camera.SetPosition(half, half)
	default:
		return
	}
	c.camera.Publish(c.shared.Input())
}

func (c *controller) KeyUp(key uint32) {
	delete(c.held, key)
}

// direction returns the unit pan direction of the held movement keys.
func (c *controller) direction() (dx, dy float32) {
	if c.held[common.KeyA] || c.held[common.KeyLeft] {
		dx--
	}
	if c.held[common.KeyD] || c.held[common.KeyRight] {
		dx++
	}
	if c.held[common.KeyS] || c.held[common.KeyDown] {
		dy--
	}
	if c.held[common.KeyW] || c.held[common.KeyUp] {
		dy++
	}
	return dx, dy
}

func (c *controller) Tick(dt float32) {
	dx, dy := c.direction()
	if (dx == 0 && dy == 0) || dt <= 0 {
		return
	}
	// pan speed is measured in visible heights per second
	step := c.camera.PanSpeed() * dt * 2 / c.camera.Zoom()
	if c.held[common.KeyLeftShift] || c.held[common.KeyRightShift] {
		step *= 3
	}
	c.camera.Pan(dx*step, dy*step)
	c.camera.Publish(c.shared.Input())
}

func (c *controller) Resize(width, height float32) {
	c.camera.Resize(width, height)
	c.camera.Publish(c.shared.Input())
}

func (c *controller) SetMapSize(size int) {
	c.camera.SetMapSize(float32(size))
	c.camera.Publish(c.shared.Input())
}

func (c *controller) Publish() {
	c.camera.Publish(c.shared.Input())
	c.shared.Input().SetPointer(c.pointerX, c.pointerY)
}

func (c *controller) OnWorldSelect(fn WorldSelectFunc) {
	c.onWorldSelect = fn
}

func (c *controller) HandleOverlay(layerID int, fn OverlayClickFunc) {
	if fn == nil {
		delete(c.overlays, layerID)
		return
	}
	c.overlays[layerID] = fn
}
