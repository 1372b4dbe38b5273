package bind_group_provider

import (
	"fmt"
	"slices"
	"sort"

	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string

	// pipelineKey and group identify the layout the bind group is created against.
	pipelineKey string
	group       int

	// bindGroup is the bind group built from buffers, or nil until the first Rebuild.
	bindGroup renderer.BindGroup
	// buffers holds the buffers bound by this provider, keyed by binding index. Buffers owned by
	// a resource manager are borrowed; only buffers listed in owned are released by Release.
	buffers map[int]renderer.Buffer
	owned   map[int]bool

	// versions are the source versions the current bind group was built from.
	versions []uint64
}

// Factory is the subset of renderer.Renderer a provider needs.
type Factory interface {
	CreateBindGroup(label, pipelineKey string, group int, entries []renderer.BindGroupEntry) (renderer.BindGroup, error)
	WriteBuffer(buf renderer.Buffer, offset uint64, data []byte) error
}

var _ Factory = renderer.Renderer(nil)

// BindGroupProvider caches one bind group for a layer. The bind group is rebuilt only when the
// versions of the buffers it references change, which is how a layer learns a resource
// manager recreated its buffer.
//
// Usage pattern:
//  1. Layer creates a provider for its pipeline and group, passing its own uniform buffer
//  2. Each frame the layer sets borrowed manager buffers with SetBuffer
//  3. If Stale(manager versions...) the layer calls Rebuild with the same versions
//  4. The layer binds BindGroup() on the render pass
type BindGroupProvider interface {
	// Release releases the bind group and every buffer the provider owns.
	Release()

	// Label returns the debug label for this provider.
	Label() string

	// BindGroup returns the cached bind group, or nil before the first Rebuild.
	BindGroup() renderer.BindGroup

	// Buffer returns the buffer bound at binding, or nil.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - renderer.Buffer: the buffer or nil
	Buffer(binding int) renderer.Buffer

	// Buffers returns every bound buffer keyed by binding index.
	Buffers() map[int]renderer.Buffer

	// SetBuffer binds a borrowed buffer. Changing a buffer does not by itself mark the provider
	// stale; the owner's version does.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the buffer
	SetBuffer(binding int, buf renderer.Buffer)

	// Stale reports whether the bind group must be rebuilt for the given source versions.
	//
	// Parameters:
	//   - versions: the versions of the sources the bind group references
	//
	// Returns:
	//   - bool: true when no bind group exists or any version differs
	Stale(versions ...uint64) bool

	// Rebuild releases the current bind group and creates a new one from the bound buffers.
	//
	// Parameters:
	//   - f: the bind group factory, normally the Renderer
	//   - versions: the versions to record for Stale
	//
	// Returns:
	//   - error: an error when creation fails; the provider is then left without a bind group
	Rebuild(f Factory, versions ...uint64) error

	// WriteBuffers writes staged data to buffers bound on this provider.
	//
	// Parameters:
	//   - f: the factory used for the writes
	//   - writes: the writes, each targeting a binding on this provider
	//
	// Returns:
	//   - error: the first write error
	WriteBuffers(f Factory, writes ...BufferWrite) error
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a provider for group of the pipeline identified by pipelineKey.
//
// Parameters:
//   - label: debug label
//   - pipelineKey: key of the registered pipeline
//   - group: the @group index
//   - options: functional options
//
// Returns:
//   - BindGroupProvider: the provider, without a bind group until Rebuild
func NewBindGroupProvider(label, pipelineKey string, group int, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:       label,
		pipelineKey: pipelineKey,
		group:       group,
		buffers:     make(map[int]renderer.Buffer),
		owned:       make(map[int]bool),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() renderer.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) Buffer(binding int) renderer.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) Buffers() map[int]renderer.Buffer {
	return p.buffers
}

func (p *bindGroupProvider) SetBuffer(binding int, buf renderer.Buffer) {
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) Stale(versions ...uint64) bool {
	return p.bindGroup == nil || !slices.Equal(p.versions, versions)
}

func (p *bindGroupProvider) Rebuild(f Factory, versions ...uint64) error {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}

	bindings := make([]int, 0, len(p.buffers))
	for b := range p.buffers {
		bindings = append(bindings, b)
	}
	sort.Ints(bindings)

	entries := make([]renderer.BindGroupEntry, 0, len(bindings))
	for _, b := range bindings {
		entries = append(entries, renderer.BindGroupEntry{Binding: b, Buffer: p.buffers[b]})
	}

	bg, err := f.CreateBindGroup(p.label, p.pipelineKey, p.group, entries)
	if err != nil {
		return fmt.Errorf("rebuild %s: %w", p.label, err)
	}
	p.bindGroup = bg
	p.versions = append(p.versions[:0], versions...)
	return nil
}

func (p *bindGroupProvider) WriteBuffers(f Factory, writes ...BufferWrite) error {
	for _, w := range writes {
		buf := p.buffers[w.Binding]
		if buf == nil {
			return fmt.Errorf("%s: no buffer at binding %d", p.label, w.Binding)
		}
		if err := f.WriteBuffer(buf, w.Offset, w.Data); err != nil {
			return err
		}
	}
	return nil
}

func (p *bindGroupProvider) Release() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	for b, buf := range p.buffers {
		if p.owned[b] && buf != nil {
			buf.Release()
		}
		delete(p.buffers, b)
	}
	clear(p.owned)
	p.versions = nil
}
