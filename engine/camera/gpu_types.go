package camera

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// GPUCameraUniformSource is the canonical WGSL definition of the CameraUniform struct.
// Matches GPUCameraUniform layout exactly (96 bytes). Layer shaders prepend it.
//
//go:embed assets/camera_uniform.wgsl
var GPUCameraUniformSource string

// GPUCameraUniform is the GPU-aligned representation of the camera uniform buffer.
// Matches the WGSL CameraUniform struct layout exactly (see GPUCameraUniformSource).
type GPUCameraUniform struct {
	ViewProj [16]float32 // offset  0: world to clip (mat4x4<f32>)
	Camera   [2]float32  // offset 64: camera center in world units
	Screen   [2]float32  // offset 72: surface size in pixels
	Zoom     float32     // offset 80
	Aspect   float32     // offset 84
	MapSize  float32     // offset 88
	_pad     float32     // offset 92: padding to 96 bytes
}

// NewGPUCameraUniform builds the uniform for a view.
//
// Parameters:
//   - v: the camera view
//   - mapSize: map edge length in tiles
//
// Returns:
//   - GPUCameraUniform: the uniform, ViewProj being an orthographic projection of the visible rectangle
func NewGPUCameraUniform(v View, mapSize float32) GPUCameraUniform {
	halfW, halfH := VisibleExtent(v.Zoom, v.Width, v.Height)
	return GPUCameraUniform{
		ViewProj: mgl32.Ortho2D(v.X-halfW, v.X+halfW, v.Y-halfH, v.Y+halfH),
		Camera:   [2]float32{v.X, v.Y},
		Screen:   [2]float32{v.Width, v.Height},
		Zoom:     v.Zoom,
		Aspect:   aspect(v.Width, v.Height),
		MapSize:  mapSize,
	}
}

// Size returns the size of the GPUCameraUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (96)
func (g *GPUCameraUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUCameraUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.ViewProj[i]))
	}
	put := func(off int, v float32) {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
	}
	put(64, g.Camera[0])
	put(68, g.Camera[1])
	put(72, g.Screen[0])
	put(76, g.Screen[1])
	put(80, g.Zoom)
	put(84, g.Aspect)
	put(88, g.MapSize)
	put(92, 0) // _pad
	return buf
}
