// Package headless provides a RendererBackend that performs no GPU work. It records every
// pass, draw and buffer write so tools and tests can inspect what a frame would have done.
package headless

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-tiles/common"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/pipeline"
)

// OpKind identifies a recorded operation.
type OpKind int

const (
	OpBeginFrame OpKind = iota
	OpBeginPass
	OpSetPipeline
	OpSetBindGroup
	OpSetScissor
	OpDraw
	OpEndPass
	OpEndFrame
	OpPresent
)

func (k OpKind) String() string {
	switch k {
	case OpBeginFrame:
		return "begin-frame"
	case OpBeginPass:
		return "begin-pass"
	case OpSetPipeline:
		return "set-pipeline"
	case OpSetBindGroup:
		return "set-bind-group"
	case OpSetScissor:
		return "set-scissor"
	case OpDraw:
		return "draw"
	case OpEndPass:
		return "end-pass"
	case OpEndFrame:
		return "end-frame"
	case OpPresent:
		return "present"
	}
	return "unknown"
}

// Op is one recorded backend call.
type Op struct {
	Kind OpKind
	// Label is the pass, pipeline or bind group label, when the op has one.
	Label string
	// Clear is set on OpBeginPass.
	Clear bool
	// Scissor is set on OpSetScissor, already clipped to the surface.
	Scissor common.Rect
	// Vertices and Instances are set on OpDraw.
	Vertices, Instances uint32
}

// Backend is the headless renderer.RendererBackend.
type Backend struct {
	mu sync.Mutex

	width, height int
	presentMode   renderer.PresentMode
	ops           []Op
	buffers       []*Buffer
	pipelines     []string
	inFrame       bool
	openPass      *pass

	// FailBeginFrame makes BeginFrame return an error, simulating a lost surface.
	FailBeginFrame bool
}

var _ renderer.RendererBackend = &Backend{}

// New returns a Backend ready to be wrapped with renderer.NewRendererWithBackend.
func New() *Backend {
	return &Backend{}
}

// Buffer is a CPU-side stand-in for a GPU buffer. Its contents reflect every write.
type Buffer struct {
	label    string
	usage    renderer.BufferUsage
	data     []byte
	released bool
	mu       *sync.Mutex
}

var _ renderer.Buffer = &Buffer{}

func (b *Buffer) Label() string               { return b.label }
func (b *Buffer) Size() uint64                { return uint64(len(b.data)) }
func (b *Buffer) Usage() renderer.BufferUsage { return b.usage }

func (b *Buffer) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.released = true
}

func (b *Buffer) Released() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released
}

// Bytes returns a copy of the buffer contents.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

type bindGroup struct {
	label    string
	released bool
}

func (g *bindGroup) Label() string { return g.label }
func (g *bindGroup) Release()      { g.released = true }

type pass struct {
	b      *Backend
	label  string
	clears bool
	ended  bool
}

func (p *pass) Label() string { return p.label }
func (p *pass) Clears() bool  { return p.clears }
func (p *pass) Ended() bool   { return p.ended }

func (p *pass) SetPipeline(pl pipeline.Pipeline) error {
	if !pl.Registered() {
		return fmt.Errorf("pipeline %q is not registered", pl.PipelineKey())
	}
	p.b.record(Op{Kind: OpSetPipeline, Label: pl.PipelineKey()})
	return nil
}

func (p *pass) SetBindGroup(_ int, bg renderer.BindGroup) {
	p.b.record(Op{Kind: OpSetBindGroup, Label: bg.Label()})
}

func (p *pass) SetScissorRect(r common.Rect) {
	p.b.mu.Lock()
	w, h := p.b.width, p.b.height
	p.b.mu.Unlock()
	p.b.record(Op{Kind: OpSetScissor, Scissor: r.Clip(float32(w), float32(h))})
}

func (p *pass) Draw(vertexCount, instanceCount uint32) {
	if vertexCount == 0 || instanceCount == 0 {
		return
	}
	p.b.record(Op{Kind: OpDraw, Vertices: vertexCount, Instances: instanceCount})
}

func (p *pass) End() {
	if p.ended {
		return
	}
	p.ended = true
	p.b.mu.Lock()
	if p.b.openPass == p {
		p.b.openPass = nil
	}
	p.b.mu.Unlock()
	p.b.record(Op{Kind: OpEndPass, Label: p.label})
}

func (b *Backend) record(op Op) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops = append(b.ops, op)
}

func (b *Backend) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.width, b.height = width, height
}

func (b *Backend) SetPresentMode(mode renderer.PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.presentMode = mode
}

func (b *Backend) RegisterRenderPipeline(p pipeline.Pipeline) error {
	if p.Source() == "" {
		return errors.New("pipeline has no shader source")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	layouts := make([]any, len(p.BindGroupLayouts()))
	for i := range layouts {
		layouts[i] = i
	}
	p.SetLayouts(layouts)
	p.SetRenderPipeline(p.PipelineKey())
	b.pipelines = append(b.pipelines, p.PipelineKey())
	return nil
}

func (b *Backend) CreateBuffer(label string, size uint64, usage renderer.BufferUsage) (renderer.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf := &Buffer{label: label, usage: usage, data: make([]byte, size), mu: &sync.Mutex{}}
	b.buffers = append(b.buffers, buf)
	return buf, nil
}

func (b *Backend) WriteBuffer(buf renderer.Buffer, offset uint64, data []byte) error {
	hb, ok := buf.(*Buffer)
	if !ok {
		return fmt.Errorf("buffer %q was not created by this backend", buf.Label())
	}
	hb.mu.Lock()
	defer hb.mu.Unlock()
	if hb.released {
		return fmt.Errorf("buffer %q is released", hb.label)
	}
	copy(hb.data[offset:], data)
	return nil
}

func (b *Backend) CreateBindGroup(label string, _ pipeline.Pipeline, _ int, _ []renderer.BindGroupEntry) (renderer.BindGroup, error) {
	return &bindGroup{label: label}, nil
}

func (b *Backend) BeginFrame() error {
	b.mu.Lock()
	if b.FailBeginFrame {
		b.mu.Unlock()
		return errors.New("surface lost")
	}
	if b.inFrame {
		b.mu.Unlock()
		return errors.New("previous frame surface not yet presented")
	}
	b.inFrame = true
	b.mu.Unlock()
	b.record(Op{Kind: OpBeginFrame})
	return nil
}

func (b *Backend) BeginPass(label string, clear bool) (renderer.RenderPass, error) {
	b.mu.Lock()
	if !b.inFrame {
		b.mu.Unlock()
		return nil, renderer.ErrNoFrame
	}
	if b.openPass != nil {
		b.mu.Unlock()
		return nil, fmt.Errorf("pass %q is still open", b.openPass.label)
	}
	p := &pass{b: b, label: label, clears: clear}
	b.openPass = p
	b.mu.Unlock()
	b.record(Op{Kind: OpBeginPass, Label: label, Clear: clear})
	return p, nil
}

func (b *Backend) EndFrame() {
	b.record(Op{Kind: OpEndFrame})
}

func (b *Backend) Present() {
	b.mu.Lock()
	b.inFrame = false
	b.mu.Unlock()
	b.record(Op{Kind: OpPresent})
}

func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, buf := range b.buffers {
		buf.mu.Lock()
		buf.released = true
		buf.mu.Unlock()
	}
}

// Ops returns a copy of every recorded operation.
func (b *Backend) Ops() []Op {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Op, len(b.ops))
	copy(out, b.ops)
	return out
}

// Reset discards recorded operations.
func (b *Backend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops = nil
}

// Buffers returns every buffer created so far, released ones included.
func (b *Backend) Buffers() []*Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Buffer, len(b.buffers))
	copy(out, b.buffers)
	return out
}

// LiveBuffers returns the buffers that have not been released.
func (b *Backend) LiveBuffers() []*Buffer {
	var out []*Buffer
	for _, buf := range b.Buffers() {
		if !buf.Released() {
			out = append(out, buf)
		}
	}
	return out
}

// Pipelines returns the keys of registered pipelines in registration order.
func (b *Backend) Pipelines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.pipelines...)
}

// PresentMode returns the last present mode set.
func (b *Backend) PresentMode() renderer.PresentMode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.presentMode
}

// Passes returns the OpBeginPass ops in order.
func (b *Backend) Passes() []Op {
	var out []Op
	for _, op := range b.Ops() {
		if op.Kind == OpBeginPass {
			out = append(out, op)
		}
	}
	return out
}
