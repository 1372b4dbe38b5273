package renderer

import (
	"github.com/Carmen-Shannon/oxy-tiles/common"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeCustom marks a renderer wrapping a caller-supplied backend, such as the
	// headless backend used by tools and tests.
	BackendTypeCustom
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// BufferUsage describes how a GPU buffer is bound. Every buffer is also a copy destination.
type BufferUsage int

const (
	// BufferUsageStorage is a read-only storage buffer (tile grids, entity tables).
	BufferUsageStorage BufferUsage = iota
	// BufferUsageUniform is a uniform buffer (per-layer camera data).
	BufferUsageUniform
)

// Surface is the platform handle the render thread needs to create its GPU surface.
type Surface struct {
	// Descriptor is the platform-specific surface descriptor, typically from Window.SurfaceDescriptor.
	Descriptor *wgpu.SurfaceDescriptor
	// Width is the initial framebuffer width in pixels.
	Width int
	// Height is the initial framebuffer height in pixels.
	Height int
}

// Buffer is a GPU-resident buffer owned by exactly one manager or layer.
type Buffer interface {
	// Label returns the debug label.
	Label() string

	// Size returns the allocated size in bytes.
	Size() uint64

	// Usage returns the binding usage the buffer was created with.
	Usage() BufferUsage

	// Release frees the GPU allocation. Safe to call more than once.
	Release()

	// Released reports whether Release has been called.
	Released() bool
}

// BindGroup is a backend bind group object referencing one or more buffers.
type BindGroup interface {
	// Label returns the debug label.
	Label() string

	// Release frees the GPU object. Safe to call more than once.
	Release()
}

// BindGroupEntry binds a buffer to a slot when creating a BindGroup.
type BindGroupEntry struct {
	Binding int
	Buffer  Buffer
}

// RenderPass is an open drawing context within the current frame. Only one pass is open at a
// time; the compositor decides when passes begin and end.
type RenderPass interface {
	// Label returns the debug label of the pass.
	Label() string

	// Clears reports whether the pass cleared the surface when it began.
	Clears() bool

	// SetPipeline selects the pipeline for subsequent draws.
	//
	// Parameters:
	//   - p: a registered pipeline
	//
	// Returns:
	//   - error: an error if the pipeline has not been registered
	SetPipeline(p pipeline.Pipeline) error

	// SetBindGroup binds bg at the given @group index.
	//
	// Parameters:
	//   - index: the @group index
	//   - bg: the bind group
	SetBindGroup(index int, bg BindGroup)

	// SetScissorRect restricts subsequent draws to r, clipped to the surface.
	//
	// Parameters:
	//   - r: the scissor rectangle in surface pixels
	SetScissorRect(r common.Rect)

	// Draw encodes a non-indexed instanced draw.
	//
	// Parameters:
	//   - vertexCount: vertices per instance
	//   - instanceCount: number of instances
	Draw(vertexCount, instanceCount uint32)

	// End closes the pass. Calling End twice is a no-op.
	End()

	// Ended reports whether End has been called.
	Ended() bool
}

// RendererBackend is the GPU API implementation wrapped by the Renderer.
type RendererBackend interface {
	// ConfigureSurface configures the swapchain for a new surface size.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets the surface present mode. ConfigureSurface must run afterwards for
	// the mode to take effect.
	SetPresentMode(mode PresentMode)

	// RegisterRenderPipeline creates the shader module, bind group layouts and render pipeline
	// for p and stores the results on p.
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// CreateBuffer allocates a GPU buffer.
	CreateBuffer(label string, size uint64, usage BufferUsage) (Buffer, error)

	// WriteBuffer queues a write of data into buf at offset.
	WriteBuffer(buf Buffer, offset uint64, data []byte) error

	// CreateBindGroup creates a bind group for group index of a registered pipeline.
	CreateBindGroup(label string, p pipeline.Pipeline, group int, entries []BindGroupEntry) (BindGroup, error)

	// BeginFrame acquires the next surface texture and a command encoder.
	BeginFrame() error

	// BeginPass begins a render pass on the current frame, clearing the surface when clear is
	// true and loading the existing contents otherwise.
	BeginPass(label string, clear bool) (RenderPass, error)

	// EndFrame finishes the command encoder and submits it.
	EndFrame()

	// Present presents the surface texture acquired by BeginFrame.
	Present()

	// Release frees every GPU object held by the backend.
	Release()
}
