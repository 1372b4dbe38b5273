// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

// Rect is an axis-aligned rectangle in screen-space pixels with the origin at the top-left
// of the surface. It is used for layer viewports and scissor regions.
type Rect struct {
	// X is the left edge in pixels.
	X float32
	// Y is the top edge in pixels.
	Y float32
	// W is the width in pixels.
	W float32
	// H is the height in pixels.
	H float32
}

// Contains reports whether the point (x, y) lies within the rectangle.
// The test is half-open: the left and top edges are inside, the right and bottom edges are not.
//
// Parameters:
//   - x: the horizontal screen coordinate in pixels
//   - y: the vertical screen coordinate in pixels
//
// Returns:
//   - bool: true if the point is inside the rectangle
func (r Rect) Contains(x, y float32) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Clip returns the intersection of the rectangle with a surface of the given size.
// The result may be Empty if the rectangle lies fully outside the surface.
//
// Parameters:
//   - width: surface width in pixels
//   - height: surface height in pixels
//
// Returns:
//   - Rect: the clipped rectangle
func (r Rect) Clip(width, height float32) Rect {
	x0 := max(r.X, 0)
	y0 := max(r.Y, 0)
	x1 := min(r.X+r.W, width)
	y1 := min(r.Y+r.H, height)
	if x1 <= x0 || y1 <= y0 {
		return Rect{X: x0, Y: y0}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}
