package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-tiles/engine/shared_state"
	"github.com/go-gl/mathgl/mgl32"
)

// cameraControllerImpl is the single implementation of CameraController.
type cameraControllerImpl struct {
	mu *sync.Mutex

	view    View
	mapSize float32

	minVisibleTiles float32
	maxVisibleTiles float32
	minZoom         float32
	maxZoom         float32

	panSpeed float32
	zoomStep float32
}

// Compile-time interface compliance check
var _ CameraController = &cameraControllerImpl{}

// NewCameraController creates a new camera controller with sensible defaults. The camera
// starts centered on the map.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		mu:              &sync.Mutex{},
		view:            View{X: -1, Y: -1, Zoom: 0.1, Width: 1280, Height: 720},
		mapSize:         64,
		minVisibleTiles: 4,
		panSpeed:        1.0,
		zoomStep:        1.1,
	}

	for _, option := range options {
		option(cc)
	}

	if cc.view.X < 0 || cc.view.Y < 0 {
		cc.view.X, cc.view.Y = cc.mapSize/2, cc.mapSize/2
	}
	cc.refresh()
	return cc
}

// refresh recomputes zoom limits, clamps zoom and position. Caller must hold the mutex or own cc exclusively.
func (cc *cameraControllerImpl) refresh() {
	cc.minZoom, cc.maxZoom = ZoomLimits(cc.view.Width, cc.view.Height, cc.mapSize, cc.minVisibleTiles, cc.maxVisibleTiles)
	cc.view.Zoom = mgl32.Clamp(cc.view.Zoom, cc.minZoom, cc.maxZoom)
	cc.view.X, cc.view.Y = ClampCameraToBounds(cc.view.X, cc.view.Y, cc.view.Zoom, cc.view.Width, cc.view.Height, cc.mapSize)
}

func (cc *cameraControllerImpl) View() View {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.view
}

func (cc *cameraControllerImpl) Position() (x, y float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.view.X, cc.view.Y
}

func (cc *cameraControllerImpl) Zoom() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.view.Zoom
}

func (cc *cameraControllerImpl) Limits() (float32, float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.minZoom, cc.maxZoom
}

func (cc *cameraControllerImpl) MapSize() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.mapSize
}

func (cc *cameraControllerImpl) SetPosition(x, y float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.view.X, cc.view.Y = ClampCameraToBounds(x, y, cc.view.Zoom, cc.view.Width, cc.view.Height, cc.mapSize)
}

func (cc *cameraControllerImpl) Pan(dx, dy float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.view.X, cc.view.Y = ClampCameraToBounds(cc.view.X+dx, cc.view.Y+dy, cc.view.Zoom, cc.view.Width, cc.view.Height, cc.mapSize)
}

func (cc *cameraControllerImpl) PanScreen(dx, dy float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cc.view.Height <= 0 {
		return
	}
	// one pixel is 2/(zoom*height) world units on both axes
	scale := 2 / (cc.view.Zoom * cc.view.Height)
	cc.view.X, cc.view.Y = ClampCameraToBounds(cc.view.X-dx*scale, cc.view.Y+dy*scale, cc.view.Zoom, cc.view.Width, cc.view.Height, cc.mapSize)
}

func (cc *cameraControllerImpl) ZoomAt(screenX, screenY, factor float32) {
	if factor <= 0 {
		return
	}
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.view = ZoomToCursor(cc.view, screenX, screenY, cc.view.Zoom*factor, cc.mapSize, cc.minZoom, cc.maxZoom)
}

func (cc *cameraControllerImpl) ZoomTo(screenX, screenY, zoom float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.view = ZoomToCursor(cc.view, screenX, screenY, zoom, cc.mapSize, cc.minZoom, cc.maxZoom)
}

func (cc *cameraControllerImpl) Scroll(screenX, screenY, steps float32) {
	if steps == 0 {
		return
	}
	cc.ZoomAt(screenX, screenY, float32(math.Pow(float64(cc.zoomStep), float64(steps))))
}

func (cc *cameraControllerImpl) Resize(width, height float32) {
	if width <= 0 || height <= 0 {
		return
	}
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.view.Width, cc.view.Height = width, height
	cc.refresh()
}

func (cc *cameraControllerImpl) SetMapSize(size float32) {
	if size <= 0 {
		return
	}
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.mapSize = size
	cc.refresh()
}

func (cc *cameraControllerImpl) ScreenToWorld(screenX, screenY float32) (float32, float32) {
	v := cc.View()
	return ScreenToWorld(screenX, screenY, v.X, v.Y, v.Zoom, v.Width, v.Height)
}

func (cc *cameraControllerImpl) PanSpeed() float32 {
	return cc.panSpeed
}

func (cc *cameraControllerImpl) Publish(w shared_state.InputWriter) {
	v := cc.View()
	w.SetSurface(v.Width, v.Height)
	w.SetCamera(v.X, v.Y, v.Zoom)
}
