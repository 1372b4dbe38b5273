package camera

// CameraControllerOption is a functional option that configures a cameraControllerImpl.
type CameraControllerOption func(*cameraControllerImpl)

// WithPosition sets the initial camera center.
//
// Parameters:
//   - x, y: world-space coordinates
//
// Returns:
//   - CameraControllerOption: a function that applies the position option
func WithPosition(x, y float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.view.X, cc.view.Y = x, y
	}
}

// WithZoom sets the initial zoom, clamped once the limits are known.
//
// Parameters:
//   - zoom: the zoom
//
// Returns:
//   - CameraControllerOption: a function that applies the zoom option
func WithZoom(zoom float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.view.Zoom = zoom
	}
}

// WithMapSize sets the map edge length in tiles.
//
// Parameters:
//   - size: map edge length in tiles
//
// Returns:
//   - CameraControllerOption: a function that applies the map size option
func WithMapSize(size float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.mapSize = size
	}
}

// WithSurfaceSize sets the initial surface size in pixels.
//
// Parameters:
//   - width, height: surface size in pixels
//
// Returns:
//   - CameraControllerOption: a function that applies the surface size option
func WithSurfaceSize(width, height float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.view.Width, cc.view.Height = width, height
	}
}

// WithVisibleTiles sets the zoom limits in tiles. At full zoom the smaller screen dimension
// shows minTiles; fully zoomed out the larger dimension shows maxTiles.
//
// Parameters:
//   - minTiles: fewest tiles visible
//   - maxTiles: most tiles visible, values <= 0 mean the whole map
//
// Returns:
//   - CameraControllerOption: a function that applies the visible tiles option
func WithVisibleTiles(minTiles, maxTiles float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.minVisibleTiles = minTiles
		cc.maxVisibleTiles = maxTiles
	}
}

// WithPanSpeed sets the keyboard pan speed in screen heights per second.
//
// Parameters:
//   - speed: pan speed
//
// Returns:
//   - CameraControllerOption: a function that applies the pan speed option
func WithPanSpeed(speed float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.panSpeed = speed
	}
}

// WithZoomStep sets the zoom multiplier applied per mouse wheel step.
//
// Parameters:
//   - step: multiplier per step (> 1)
//
// Returns:
//   - CameraControllerOption: a function that applies the zoom step option
func WithZoomStep(step float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.zoomStep = step
	}
}
