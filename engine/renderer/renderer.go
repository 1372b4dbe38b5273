package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/pipeline"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend

	width, height int
	inFrame       bool

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	clearColor           [4]float64
}

// Renderer defines the interface for the rendering system owned by the render thread.
//
// The Renderer caches pipelines by key, allocates and writes GPU buffers on behalf of the
// resource managers, and exposes the frame lifecycle the compositor drives:
// BeginFrame, one or more BeginPass/End pairs, EndFrame, Present.
type Renderer interface {
	// BackendType returns the backend implementation in use.
	BackendType() RendererBackendType

	// Pipeline retrieves the cached Pipeline associated with the given key.
	// If the Pipeline does not exist, this will return nil.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// RegisterPipelines creates the GPU objects for one or more pipelines and caches them by
	// PipelineKey. Pipelines whose keys are already registered are skipped, and the cached
	// pipeline object is what later lookups return.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: an error if pipeline creation fails
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// Resize configures the underlying backend to handle a new surface size.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SurfaceSize returns the last configured surface size.
	//
	// Returns:
	//   - width, height: surface size in pixels
	SurfaceSize() (width, height int)

	// SetPresentMode sets the surface present mode and reconfigures the surface.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// CreateBuffer allocates a GPU buffer. Sizes are rounded up to a multiple of 16 bytes.
	//
	// Parameters:
	//   - label: debug label
	//   - size: minimum size in bytes (must be > 0)
	//   - usage: how the buffer is bound
	//
	// Returns:
	//   - Buffer: the new buffer
	//   - error: an error if allocation fails
	CreateBuffer(label string, size uint64, usage BufferUsage) (Buffer, error)

	// WriteBuffer queues a write of data into buf at offset.
	//
	// Parameters:
	//   - buf: the destination buffer
	//   - offset: byte offset into buf
	//   - data: bytes to write
	//
	// Returns:
	//   - error: an error if buf is released or the write does not fit
	WriteBuffer(buf Buffer, offset uint64, data []byte) error

	// CreateBindGroup creates a bind group matching the layout of group in the registered
	// pipeline identified by pipelineKey.
	//
	// Parameters:
	//   - label: debug label
	//   - pipelineKey: key of a registered pipeline
	//   - group: the @group index
	//   - entries: the buffers to bind
	//
	// Returns:
	//   - BindGroup: the new bind group
	//   - error: an error if the pipeline is unknown or creation fails
	CreateBindGroup(label, pipelineKey string, group int, entries []BindGroupEntry) (BindGroup, error)

	// BeginFrame acquires the surface texture for a new frame.
	// Must be paired with EndFrame and Present.
	//
	// Returns:
	//   - error: an error if the surface texture could not be acquired
	BeginFrame() error

	// BeginPass opens a render pass on the current frame. The caller must End the returned pass
	// before opening another one or ending the frame.
	//
	// Parameters:
	//   - label: debug label
	//   - clear: true to clear the surface, false to draw over existing contents
	//
	// Returns:
	//   - RenderPass: the open pass
	//   - error: an error if no frame is active
	BeginPass(label string, clear bool) (RenderPass, error)

	// EndFrame submits the frame's command buffer. Does not present.
	EndFrame()

	// Present presents the frame to the display.
	Present()

	// Release frees every GPU object held by the backend.
	Release()
}

var _ Renderer = &renderer{}

// ErrNoFrame is returned by BeginPass when called outside BeginFrame/EndFrame.
var ErrNoFrame = errors.New("no frame in progress")

// NewRenderer creates a Renderer backed by WebGPU on the given surface. Must be called on the
// thread that will render; the backend locks it to its OS thread.
//
// Parameters:
//   - surface: the platform surface handle and initial size
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the configured renderer
//   - error: an error if no adapter or device could be acquired
func NewRenderer(surface Surface, options ...RendererBuilderOption) (Renderer, error) {
	r := newRenderer(BackendTypeWGPU, options...)

	backend, err := newWGPURendererBackend(surface.Descriptor, r.forceFallbackAdapter, r.clearColor)
	if err != nil {
		return nil, err
	}
	r.backend = backend
	r.configure(surface.Width, surface.Height)
	return r, nil
}

// NewRendererWithBackend wraps a caller-supplied backend, such as headless.Backend.
//
// Parameters:
//   - backend: the backend implementation
//   - width, height: the initial surface size in pixels
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the configured renderer
func NewRendererWithBackend(backend RendererBackend, width, height int, options ...RendererBuilderOption) Renderer {
	r := newRenderer(BackendTypeCustom, options...)
	r.backend = backend
	r.configure(width, height)
	return r
}

func newRenderer(backendType RendererBackendType, options ...RendererBuilderOption) *renderer {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
		clearColor:    [4]float64{0.05, 0.06, 0.08, 1.0},
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *renderer) configure(width, height int) {
	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	r.Resize(width, height)
}

func (r *renderer) BackendType() RendererBackendType {
	return r.backendType
}

func (r *renderer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.mu.Lock()
	r.width, r.height = width, height
	r.mu.Unlock()
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SurfaceSize() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
	w, h := r.SurfaceSize()
	r.backend.ConfigureSurface(w, h)
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		if err := r.backend.RegisterRenderPipeline(p); err != nil {
			return fmt.Errorf("register pipeline %q: %w", key, err)
		}
		r.pipelineCache[key] = p
	}
	return nil
}

func (r *renderer) CreateBuffer(label string, size uint64, usage BufferUsage) (Buffer, error) {
	if size == 0 {
		return nil, fmt.Errorf("create buffer %q: size must be > 0", label)
	}
	return r.backend.CreateBuffer(label, alignBufferSize(size), usage)
}

func (r *renderer) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	if buf == nil || buf.Released() {
		return fmt.Errorf("write buffer: buffer is nil or released")
	}
	if offset+uint64(len(data)) > buf.Size() {
		return fmt.Errorf("write buffer %q: %d bytes at offset %d exceed size %d", buf.Label(), len(data), offset, buf.Size())
	}
	if len(data) == 0 {
		return nil
	}
	return r.backend.WriteBuffer(buf, offset, data)
}

func (r *renderer) CreateBindGroup(label, pipelineKey string, group int, entries []BindGroupEntry) (BindGroup, error) {
	p := r.Pipeline(pipelineKey)
	if p == nil {
		return nil, fmt.Errorf("create bind group %q: pipeline %q not found in cache", label, pipelineKey)
	}
	if group < 0 || group >= len(p.BindGroupLayouts()) {
		return nil, fmt.Errorf("create bind group %q: pipeline %q has no group %d", label, pipelineKey, group)
	}
	for _, e := range entries {
		if e.Buffer == nil || e.Buffer.Released() {
			return nil, fmt.Errorf("create bind group %q: binding %d has no live buffer", label, e.Binding)
		}
	}
	return r.backend.CreateBindGroup(label, p, group, entries)
}

func (r *renderer) BeginFrame() error {
	if err := r.backend.BeginFrame(); err != nil {
		return err
	}
	r.mu.Lock()
	r.inFrame = true
	r.mu.Unlock()
	return nil
}

func (r *renderer) BeginPass(label string, clear bool) (RenderPass, error) {
	r.mu.Lock()
	inFrame := r.inFrame
	r.mu.Unlock()
	if !inFrame {
		return nil, ErrNoFrame
	}
	return r.backend.BeginPass(label, clear)
}

func (r *renderer) EndFrame() {
	r.mu.Lock()
	r.inFrame = false
	r.mu.Unlock()
	r.backend.EndFrame()
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) Release() {
	r.mu.Lock()
	r.pipelineCache = make(map[string]pipeline.Pipeline)
	r.mu.Unlock()
	r.backend.Release()
}

// alignBufferSize rounds size up to 16 bytes, the strictest alignment uniform buffers need.
func alignBufferSize(size uint64) uint64 {
	return (size + 15) &^ 15
}
