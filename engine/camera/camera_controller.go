package camera

import "github.com/Carmen-Shannon/oxy-tiles/engine/shared_state"

// CameraController owns the camera state on the input thread. It keeps the camera inside the
// map and the zoom inside the limits derived from the surface and map size, and publishes the
// result to the shared state channel.
type CameraController interface {
	// View returns the current camera state and surface size.
	View() View

	// Position returns the camera center.
	//
	// Returns:
	//   - x, y: world-space camera center
	Position() (x, y float32)

	// Zoom returns the current zoom.
	Zoom() float32

	// Limits returns the current zoom range.
	//
	// Returns:
	//   - minZoom, maxZoom: the allowed zoom range
	Limits() (minZoom, maxZoom float32)

	// MapSize returns the map edge length the camera is clamped to.
	MapSize() float32

	// SetPosition moves the camera center, clamped to the map.
	//
	// Parameters:
	//   - x, y: world-space coordinates
	SetPosition(x, y float32)

	// Pan moves the camera by a world-space offset, clamped to the map.
	//
	// Parameters:
	//   - dx, dy: world units
	Pan(dx, dy float32)

	// PanScreen moves the camera so the world follows a pointer drag of (dx, dy) pixels.
	//
	// Parameters:
	//   - dx, dy: pixel delta, screen Y down
	PanScreen(dx, dy float32)

	// ZoomAt multiplies zoom by factor keeping the world point under (screenX, screenY) fixed.
	//
	// Parameters:
	//   - screenX, screenY: pointer position in pixels
	//   - factor: zoom multiplier, > 1 zooms in
	ZoomAt(screenX, screenY, factor float32)

	// ZoomTo sets zoom keeping the world point under (screenX, screenY) fixed.
	//
	// Parameters:
	//   - screenX, screenY: pointer position in pixels
	//   - zoom: the requested zoom, clamped to Limits
	ZoomTo(screenX, screenY, zoom float32)

	// Scroll applies one mouse wheel step at the pointer.
	//
	// Parameters:
	//   - screenX, screenY: pointer position in pixels
	//   - steps: wheel delta, positive zooms in
	Scroll(screenX, screenY, steps float32)

	// Resize updates the surface size, recomputes limits and re-clamps.
	//
	// Parameters:
	//   - width, height: surface size in pixels
	Resize(width, height float32)

	// SetMapSize updates the map size, recomputes limits and re-clamps.
	//
	// Parameters:
	//   - size: map edge length in tiles
	SetMapSize(size float32)

	// ScreenToWorld converts a pixel position with the current view.
	ScreenToWorld(screenX, screenY float32) (worldX, worldY float32)

	// PanSpeed returns the keyboard pan speed in screen heights per second.
	PanSpeed() float32

	// Publish writes camera and surface fields to the shared state channel.
	//
	// Parameters:
	//   - w: the input-owned writer
	Publish(w shared_state.InputWriter)
}
