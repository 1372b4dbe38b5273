package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// The transform maps screen pixels to world tiles. At zoom z the visible world spans 2/z tiles
// vertically and 2*aspect/z horizontally, centered on the camera. Screen Y grows downward and
// world Y grows upward. The WGSL side of the same transform lives in the
// GPUCameraUniformSource helpers; both must change together.

// aspect returns width/height, or 1 for a degenerate surface.
func aspect(screenW, screenH float32) float32 {
	if screenW <= 0 || screenH <= 0 {
		return 1
	}
	return screenW / screenH
}

// VisibleExtent returns half the visible world size on each axis.
//
// Parameters:
//   - zoom: the camera zoom (> 0)
//   - screenW, screenH: surface size in pixels
//
// Returns:
//   - halfW, halfH: half extents in world units
func VisibleExtent(zoom, screenW, screenH float32) (halfW, halfH float32) {
	return aspect(screenW, screenH) / zoom, 1 / zoom
}

// ScreenToWorld converts a pixel position to world coordinates.
//
// Parameters:
//   - screenX, screenY: pixel position, origin top-left
//   - camX, camY: camera center in world units
//   - zoom: the camera zoom
//   - screenW, screenH: surface size in pixels
//
// Returns:
//   - worldX, worldY: the world position under the pixel
func ScreenToWorld(screenX, screenY, camX, camY, zoom, screenW, screenH float32) (worldX, worldY float32) {
	if screenW <= 0 || screenH <= 0 {
		return camX, camY
	}
	ndc := mgl32.Vec2{screenX/screenW*2 - 1, 1 - screenY/screenH*2}
	halfW, halfH := VisibleExtent(zoom, screenW, screenH)
	return camX + ndc.X()*halfW, camY + ndc.Y()*halfH
}

// WorldToScreen is the inverse of ScreenToWorld.
//
// Parameters:
//   - worldX, worldY: a world position
//   - camX, camY: camera center in world units
//   - zoom: the camera zoom
//   - screenW, screenH: surface size in pixels
//
// Returns:
//   - screenX, screenY: the pixel position, origin top-left
func WorldToScreen(worldX, worldY, camX, camY, zoom, screenW, screenH float32) (screenX, screenY float32) {
	halfW, halfH := VisibleExtent(zoom, screenW, screenH)
	ndcX := (worldX - camX) / halfW
	ndcY := (worldY - camY) / halfH
	return (ndcX + 1) / 2 * screenW, (1 - ndcY) / 2 * screenH
}

// ZoomLimits returns the zoom range for a map. At maxZoom the smaller visible dimension shows
// minVisibleTiles; at minZoom the larger one shows maxVisibleTiles. If the range would be
// inverted, minZoom collapses to maxZoom.
//
// Parameters:
//   - screenW, screenH: surface size in pixels
//   - mapSize: map edge length in tiles
//   - minVisibleTiles: fewest tiles across the smaller dimension, values <= 0 mean 1
//   - maxVisibleTiles: most tiles across the larger dimension, values <= 0 mean mapSize
//
// Returns:
//   - minZoom, maxZoom: the allowed zoom range
func ZoomLimits(screenW, screenH, mapSize, minVisibleTiles, maxVisibleTiles float32) (minZoom, maxZoom float32) {
	a := aspect(screenW, screenH)
	if minVisibleTiles <= 0 {
		minVisibleTiles = 1
	}
	if maxVisibleTiles <= 0 {
		maxVisibleTiles = mapSize
	}
	if maxVisibleTiles <= 0 {
		maxVisibleTiles = minVisibleTiles
	}
	maxZoom = 2 * min(1, a) / minVisibleTiles
	minZoom = 2 * max(1, a) / maxVisibleTiles
	if minZoom > maxZoom {
		minZoom = maxZoom
	}
	return minZoom, maxZoom
}

// ClampCameraToBounds keeps the visible rectangle inside [0, mapSize] on both axes. On an axis
// where the view is wider than the map the camera is centered instead.
//
// Parameters:
//   - camX, camY: camera center in world units
//   - zoom: the camera zoom
//   - screenW, screenH: surface size in pixels
//   - mapSize: map edge length in tiles
//
// Returns:
//   - x, y: the clamped camera center
func ClampCameraToBounds(camX, camY, zoom, screenW, screenH, mapSize float32) (x, y float32) {
	halfW, halfH := VisibleExtent(zoom, screenW, screenH)
	return clampAxis(camX, halfW, mapSize), clampAxis(camY, halfH, mapSize)
}

func clampAxis(c, half, mapSize float32) float32 {
	if 2*half >= mapSize {
		return mapSize / 2
	}
	return mgl32.Clamp(c, half, mapSize-half)
}

// View is a camera state together with the surface it is projected onto.
type View struct {
	X, Y, Zoom    float32
	Width, Height float32
}

// ZoomToCursor changes zoom while keeping the world point under the pointer fixed, then clamps
// the camera to the map.
//
// Parameters:
//   - v: the current view
//   - screenX, screenY: pointer position in pixels
//   - targetZoom: the requested zoom, clamped to [minZoom, maxZoom]
//   - mapSize: map edge length in tiles
//   - minZoom, maxZoom: the zoom range from ZoomLimits
//
// Returns:
//   - View: the new view
func ZoomToCursor(v View, screenX, screenY, targetZoom, mapSize, minZoom, maxZoom float32) View {
	wx, wy := ScreenToWorld(screenX, screenY, v.X, v.Y, v.Zoom, v.Width, v.Height)
	z := mgl32.Clamp(targetZoom, minZoom, maxZoom)

	halfW, halfH := VisibleExtent(z, v.Width, v.Height)
	ndcX, ndcY := float32(0), float32(0)
	if v.Width > 0 && v.Height > 0 {
		ndcX = screenX/v.Width*2 - 1
		ndcY = 1 - screenY/v.Height*2
	}
	x, y := ClampCameraToBounds(wx-ndcX*halfW, wy-ndcY*halfH, z, v.Width, v.Height, mapSize)
	return View{X: x, Y: y, Zoom: z, Width: v.Width, Height: v.Height}
}

// HoveredTile returns the tile containing a world position.
//
// Parameters:
//   - worldX, worldY: a world position
//   - mapSize: map edge length in tiles
//
// Returns:
//   - tx, ty: the tile coordinates, or -1, -1 when off the map
func HoveredTile(worldX, worldY float32, mapSize int) (tx, ty int) {
	fx := math.Floor(float64(worldX))
	fy := math.Floor(float64(worldY))
	if fx < 0 || fy < 0 || fx >= float64(mapSize) || fy >= float64(mapSize) {
		return -1, -1
	}
	return int(fx), int(fy)
}
