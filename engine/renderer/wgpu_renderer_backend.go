package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-tiles/common"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat *wgpu.TextureFormat
	width, height int
	presentMode   wgpu.PresentMode // defaults to PresentModeFifo (VSync)
	clearColor    wgpu.Color

	// Frame state shared by every pass the compositor opens in one frame
	frameEncoder *wgpu.CommandEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

type wgpuBuffer struct {
	label    string
	size     uint64
	usage    BufferUsage
	buffer   *wgpu.Buffer
	released bool
}

var _ Buffer = &wgpuBuffer{}

func (b *wgpuBuffer) Label() string      { return b.label }
func (b *wgpuBuffer) Size() uint64       { return b.size }
func (b *wgpuBuffer) Usage() BufferUsage { return b.usage }
func (b *wgpuBuffer) Released() bool     { return b.released }

func (b *wgpuBuffer) Release() {
	if b.released {
		return
	}
	b.released = true
	b.buffer.Release()
}

type wgpuBindGroup struct {
	label     string
	bindGroup *wgpu.BindGroup
}

var _ BindGroup = &wgpuBindGroup{}

func (g *wgpuBindGroup) Label() string { return g.label }

func (g *wgpuBindGroup) Release() {
	if g.bindGroup == nil {
		return
	}
	g.bindGroup.Release()
	g.bindGroup = nil
}

type wgpuRenderPass struct {
	label  string
	clears bool
	width  int
	height int
	pass   *wgpu.RenderPassEncoder
	ended  bool
}

var _ RenderPass = &wgpuRenderPass{}

func (p *wgpuRenderPass) Label() string { return p.label }
func (p *wgpuRenderPass) Clears() bool  { return p.clears }
func (p *wgpuRenderPass) Ended() bool   { return p.ended }

func (p *wgpuRenderPass) SetPipeline(pl pipeline.Pipeline) error {
	rp, ok := pl.Pipeline().(*wgpu.RenderPipeline)
	if !ok || rp == nil {
		return fmt.Errorf("pipeline %q is not registered", pl.PipelineKey())
	}
	p.pass.SetPipeline(rp)
	return nil
}

func (p *wgpuRenderPass) SetBindGroup(index int, bg BindGroup) {
	g, ok := bg.(*wgpuBindGroup)
	if !ok || g.bindGroup == nil {
		return
	}
	p.pass.SetBindGroup(uint32(index), g.bindGroup, nil)
}

func (p *wgpuRenderPass) SetScissorRect(r common.Rect) {
	c := r.Clip(float32(p.width), float32(p.height))
	if c.Empty() {
		// wgpu rejects zero-area scissors; collapse to one pixel in the corner
		p.pass.SetScissorRect(0, 0, 1, 1)
		return
	}
	p.pass.SetScissorRect(uint32(c.X), uint32(c.Y), uint32(c.W), uint32(c.H))
}

func (p *wgpuRenderPass) Draw(vertexCount, instanceCount uint32) {
	if vertexCount == 0 || instanceCount == 0 {
		return
	}
	p.pass.Draw(vertexCount, instanceCount, 0, 0)
}

func (p *wgpuRenderPass) End() {
	if p.ended {
		return
	}
	p.ended = true
	p.pass.End()
}

// newWGPURendererBackend acquires an instance, surface, adapter and device. The calling
// goroutine stays locked to its OS thread for the lifetime of the backend.
func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool, clear [4]float64) (*wgpuRendererBackendImpl, error) {
	if surfaceDescriptor == nil {
		return nil, errors.New("surface descriptor is required")
	}
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeFifo,
		clearColor:  wgpu.Color{R: clear[0], G: clear[1], B: clear[2], A: clear[3]},
	}
	w.surface = w.instance.CreateSurface(surfaceDescriptor)

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	w.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}
	w.device = d
	w.queue = d.GetQueue()

	return w, nil
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]
	b.width, b.height = width, height

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeUncapped:
		b.presentMode = wgpu.PresentModeImmediate
	case PresentModeVSync:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeFifo
	}
}

func (b *wgpuRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p.Source() == "" {
		return errors.New("pipeline has no shader source")
	}
	if b.surfaceFormat == nil {
		return errors.New("surface must be configured before registering pipelines")
	}

	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: p.PipelineKey(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: p.Source(),
		},
	})
	if err != nil {
		return err
	}

	groups := p.BindGroupLayouts()
	bindGroupLayouts := make([]*wgpu.BindGroupLayout, len(groups))
	stored := make([]any, len(groups))
	for g, entries := range groups {
		desc := wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s group %d", p.PipelineKey(), g),
			Entries: layoutEntries(entries),
		}
		layout, layoutErr := b.device.CreateBindGroupLayout(&desc)
		if layoutErr != nil {
			return fmt.Errorf("failed to create bind group layout for group %d: %w", g, layoutErr)
		}
		bindGroupLayouts[g] = layout
		stored[g] = layout
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		return err
	}

	target := wgpu.ColorTargetState{
		Format:    *b.surfaceFormat,
		WriteMask: p.WriteMask(),
	}
	if p.BlendEnabled() {
		target.Blend = p.BlendState()
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: p.VertexEntryPoint(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: p.FragmentEntryPoint(),
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return err
	}

	p.SetLayouts(stored)
	p.SetRenderPipeline(created)
	return nil
}

func layoutEntries(entries []pipeline.BindingLayout) []wgpu.BindGroupLayoutEntry {
	out := make([]wgpu.BindGroupLayoutEntry, 0, len(entries))
	for _, e := range entries {
		bufferType := wgpu.BufferBindingTypeUniform
		if e.Type == pipeline.BindingTypeReadOnlyStorage {
			bufferType = wgpu.BufferBindingTypeReadOnlyStorage
		}
		out = append(out, wgpu.BindGroupLayoutEntry{
			Binding:    uint32(e.Binding),
			Visibility: e.Visibility,
			Buffer: wgpu.BufferBindingLayout{
				Type: bufferType,
			},
		})
	}
	return out
}

func (b *wgpuRendererBackendImpl) CreateBuffer(label string, size uint64, usage BufferUsage) (Buffer, error) {
	flags := wgpu.BufferUsageCopyDst
	switch usage {
	case BufferUsageUniform:
		flags |= wgpu.BufferUsageUniform
	default:
		flags |= wgpu.BufferUsageStorage
	}

	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: flags,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBuffer{label: label, size: size, usage: usage, buffer: buf}, nil
}

func (b *wgpuRendererBackendImpl) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	wb, ok := buf.(*wgpuBuffer)
	if !ok {
		return fmt.Errorf("buffer %q was not created by this backend", buf.Label())
	}
	b.queue.WriteBuffer(wb.buffer, offset, data)
	return nil
}

func (b *wgpuRendererBackendImpl) CreateBindGroup(label string, p pipeline.Pipeline, group int, entries []BindGroupEntry) (BindGroup, error) {
	layouts := p.Layouts()
	if group >= len(layouts) {
		return nil, fmt.Errorf("pipeline %q has no layout for group %d", p.PipelineKey(), group)
	}
	layout, ok := layouts[group].(*wgpu.BindGroupLayout)
	if !ok {
		return nil, fmt.Errorf("pipeline %q group %d layout is not a wgpu layout", p.PipelineKey(), group)
	}

	wgpuEntries := make([]wgpu.BindGroupEntry, 0, len(entries))
	for _, e := range entries {
		wb, ok := e.Buffer.(*wgpuBuffer)
		if !ok {
			return nil, fmt.Errorf("binding %d buffer was not created by this backend", e.Binding)
		}
		wgpuEntries = append(wgpuEntries, wgpu.BindGroupEntry{
			Binding: uint32(e.Binding),
			Buffer:  wb.buffer,
			Offset:  0,
			Size:    wgpu.WholeSize,
		})
	}

	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  layout,
		Entries: wgpuEntries,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBindGroup{label: label, bindGroup: bg}, nil
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// A held surface texture means the last frame was never presented.
	if b.frameSurface != nil {
		return fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	b.frameEncoder = encoder
	b.frameSurface = surfaceTexture
	b.frameView = view
	return nil
}

func (b *wgpuRendererBackendImpl) BeginPass(label string, clear bool) (RenderPass, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return nil, ErrNoFrame
	}

	loadOp := wgpu.LoadOpLoad
	if clear {
		loadOp = wgpu.LoadOpClear
	}
	pass := b.frameEncoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       b.frameView,
				LoadOp:     loadOp,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: b.clearColor,
			},
		},
	})
	return &wgpuRenderPass{
		label:  label,
		clears: clear,
		width:  b.width,
		height: b.height,
		pass:   pass,
	}, nil
}

func (b *wgpuRendererBackendImpl) EndFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return
	}

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		b.frameEncoder.Release()
		b.frameView.Release()
		b.frameSurface.Release()
		b.frameEncoder = nil
		b.frameSurface = nil
		b.frameView = nil
		return
	}

	b.queue.Submit(commandBuffer)

	commandBuffer.Release()
	b.frameEncoder.Release()
	b.frameEncoder = nil
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}

	b.surface.Present()

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	b.frameSurface.Release()
	b.frameSurface = nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
