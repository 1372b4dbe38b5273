package pipeline

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// BindingType identifies the kind of resource bound at a binding slot.
type BindingType int

const (
	// BindingTypeUniform is a small uniform buffer, rewritten every frame.
	BindingTypeUniform BindingType = iota

	// BindingTypeReadOnlyStorage is a storage buffer the shader only reads, such as a tile grid
	// or entity table.
	BindingTypeReadOnlyStorage
)

// BindingLayout describes one entry of a bind group layout.
type BindingLayout struct {
	// Binding is the @binding index in the shader.
	Binding int
	// Type is the resource kind bound at this slot.
	Type BindingType
	// Visibility is the set of shader stages that read the binding.
	Visibility wgpu.ShaderStage
}

// pipeline is the implementation of the Pipeline interface.
// It holds the WGSL source, the layout description, and the GPU pipeline object once created.
type pipeline struct {
	// pipelineKey is the unique identifier for this pipeline, used for caching and lookups
	pipelineKey string

	source         string
	vertexEntry    string
	fragmentEntry  string
	bindGroups     [][]BindingLayout
	blendEnabled   bool
	topology       wgpu.PrimitiveTopology
	writeMask      wgpu.ColorWriteMask
	blendState     *wgpu.BlendState
	renderPipeline any
	layouts        []any
}

// Pipeline defines the interface for a render pipeline used by a compositor layer. A layer
// builds one Pipeline from WGSL source, registers it with the Renderer, and selects it on the
// render pass before drawing.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline, used for caching and lookups.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Source returns the WGSL source containing both the vertex and fragment entry points.
	//
	// Returns:
	//   - string: the WGSL source
	Source() string

	// VertexEntryPoint returns the name of the vertex shader entry point.
	VertexEntryPoint() string

	// FragmentEntryPoint returns the name of the fragment shader entry point.
	FragmentEntryPoint() string

	// BindGroupLayouts returns the layout entries for each bind group, indexed by @group.
	//
	// Returns:
	//   - [][]BindingLayout: the layout entries grouped by bind group index
	BindGroupLayouts() [][]BindingLayout

	// BlendEnabled returns whether alpha blending is enabled for this pipeline.
	BlendEnabled() bool

	// BlendState returns the blend state used when blending is enabled.
	BlendState() *wgpu.BlendState

	// Topology returns the primitive topology configured for this pipeline.
	Topology() wgpu.PrimitiveTopology

	// WriteMask returns the color write mask for this pipeline.
	WriteMask() wgpu.ColorWriteMask

	// Pipeline returns the backend pipeline object, or nil if the pipeline has not been
	// registered. The wgpu backend stores a *wgpu.RenderPipeline.
	//
	// Returns:
	//   - any: the backend pipeline object
	Pipeline() any

	// SetRenderPipeline stores the backend pipeline object after creation.
	//
	// Parameters:
	//   - p: the backend pipeline object
	SetRenderPipeline(p any)

	// Layouts returns the backend bind group layout objects, indexed by @group.
	Layouts() []any

	// SetLayouts stores the backend bind group layout objects after creation.
	//
	// Parameters:
	//   - layouts: the backend layout objects indexed by @group
	SetLayouts(layouts []any)

	// Registered reports whether a backend has created GPU objects for this pipeline.
	Registered() bool
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a new render Pipeline with the given key and options.
// Defaults: entry points "vs_main"/"fs_main", triangle-list topology, full write mask, no blending.
//
// Parameters:
//   - key: the unique key for this pipeline
//   - options: functional options to configure the pipeline
//
// Returns:
//   - Pipeline: the configured pipeline (not yet registered with a backend)
func NewPipeline(key string, options ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:   key,
		vertexEntry:   "vs_main",
		fragmentEntry: "fs_main",
		topology:      wgpu.PrimitiveTopologyTriangleList,
		writeMask:     wgpu.ColorWriteMaskAll,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Source() string {
	return p.source
}

func (p *pipeline) VertexEntryPoint() string {
	return p.vertexEntry
}

func (p *pipeline) FragmentEntryPoint() string {
	return p.fragmentEntry
}

func (p *pipeline) BindGroupLayouts() [][]BindingLayout {
	return p.bindGroups
}

func (p *pipeline) BlendEnabled() bool {
	return p.blendEnabled
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	return p.blendState
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) Pipeline() any {
	return p.renderPipeline
}

func (p *pipeline) SetRenderPipeline(rp any) {
	p.renderPipeline = rp
}

func (p *pipeline) Layouts() []any {
	return p.layouts
}

func (p *pipeline) SetLayouts(layouts []any) {
	p.layouts = layouts
}

func (p *pipeline) Registered() bool {
	return p.renderPipeline != nil
}
