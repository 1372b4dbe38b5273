package shared_state

// Reader is a read-only view of the channel with one accessor per field. Values may be up to
// one frame stale.
type Reader struct {
	c *Channel
}

func (r Reader) CameraX() float32       { return r.c.Read(CameraX) }
func (r Reader) CameraY() float32       { return r.c.Read(CameraY) }
func (r Reader) Zoom() float32          { return r.c.Read(Zoom) }
func (r Reader) PointerX() float32      { return r.c.Read(PointerX) }
func (r Reader) PointerY() float32      { return r.c.Read(PointerY) }
func (r Reader) SurfaceWidth() float32  { return r.c.Read(SurfaceWidth) }
func (r Reader) SurfaceHeight() float32 { return r.c.Read(SurfaceHeight) }
func (r Reader) ButtonDown() bool       { return r.c.Read(ButtonDown) != 0 }

// CapturedLayer returns the id of the layer that owns the current pointer interaction, or
// NoLayer.
func (r Reader) CapturedLayer() int { return int(r.c.Read(CapturedLayer)) }

// HoveredTile returns the tile under the pointer, or (NoTile, NoTile).
func (r Reader) HoveredTile() (x, y int) {
	return int(r.c.Read(HoveredTileX)), int(r.c.Read(HoveredTileY))
}

// Camera returns the camera pose fields. The three loads are independent, so a pose written
// mid-read may mix two frames.
func (r Reader) Camera() (x, y, zoom float32) {
	return r.c.Read(CameraX), r.c.Read(CameraY), r.c.Read(Zoom)
}

// Pointer returns the pointer position in surface pixels.
func (r Reader) Pointer() (x, y float32) {
	return r.c.Read(PointerX), r.c.Read(PointerY)
}

// Surface returns the surface size in pixels.
func (r Reader) Surface() (width, height float32) {
	return r.c.Read(SurfaceWidth), r.c.Read(SurfaceHeight)
}

// InputWriter is the input thread's view: it may write camera, pointer, surface and button
// fields only.
type InputWriter struct {
	Reader
}

// SetCamera stores the camera pose.
func (w InputWriter) SetCamera(x, y, zoom float32) {
	w.c.Write(CameraX, x)
	w.c.Write(CameraY, y)
	w.c.Write(Zoom, zoom)
}

// SetPointer stores the pointer position in surface pixels.
func (w InputWriter) SetPointer(x, y float32) {
	w.c.Write(PointerX, x)
	w.c.Write(PointerY, y)
}

// SetSurface stores the surface size in pixels.
func (w InputWriter) SetSurface(width, height float32) {
	w.c.Write(SurfaceWidth, width)
	w.c.Write(SurfaceHeight, height)
}

// SetButtonDown stores the primary button state.
func (w InputWriter) SetButtonDown(down bool) {
	var v float32
	if down {
		v = 1
	}
	w.c.Write(ButtonDown, v)
}

// RenderWriter is the render thread's view: it may write the hover and capture results only.
type RenderWriter struct {
	Reader
}

// SetHoveredTile stores the tile under the pointer. Use NoTile for both axes when the pointer
// is off the map.
func (w RenderWriter) SetHoveredTile(x, y int) {
	w.c.Write(HoveredTileX, float32(x))
	w.c.Write(HoveredTileY, float32(y))
}

// SetCapturedLayer stores the id of the layer owning the pointer, or NoLayer.
func (w RenderWriter) SetCapturedLayer(id int) {
	w.c.Write(CapturedLayer, float32(id))
}
