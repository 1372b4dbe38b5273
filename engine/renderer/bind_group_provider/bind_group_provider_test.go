package bind_group_provider

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/headless"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

func setup(t *testing.T) (renderer.Renderer, *headless.Backend) {
	t.Helper()
	b := headless.New()
	r := renderer.NewRendererWithBackend(b, 100, 100)
	p := pipeline.NewPipeline("test",
		pipeline.WithSource("src"),
		pipeline.WithBindGroupLayout(0,
			pipeline.BindingLayout{Binding: 0, Type: pipeline.BindingTypeUniform, Visibility: wgpu.ShaderStageVertex},
			pipeline.BindingLayout{Binding: 1, Type: pipeline.BindingTypeReadOnlyStorage, Visibility: wgpu.ShaderStageVertex},
		),
	)
	if err := r.RegisterPipelines(p); err != nil {
		t.Fatal(err)
	}
	return r, b
}

func TestStaleTracksVersions(t *testing.T) {
	r, _ := setup(t)
	uniform, _ := r.CreateBuffer("u", 16, renderer.BufferUsageUniform)
	storage, _ := r.CreateBuffer("s", 16, renderer.BufferUsageStorage)
	p := NewBindGroupProvider("layer", "test", 0, WithOwnedBuffer(0, uniform), WithBuffer(1, storage))

	if !p.Stale(1) {
		t.Fatal("provider without a bind group must be stale")
	}
	if err := p.Rebuild(r, 1); err != nil {
		t.Fatal(err)
	}
	if p.Stale(1) {
		t.Error("same version must not be stale")
	}
	if !p.Stale(2) {
		t.Error("new version must be stale")
	}
	if !p.Stale(1, 1) {
		t.Error("different version count must be stale")
	}
}

func TestReleaseKeepsBorrowedBuffers(t *testing.T) {
	r, _ := setup(t)
	uniform, _ := r.CreateBuffer("u", 16, renderer.BufferUsageUniform)
	storage, _ := r.CreateBuffer("s", 16, renderer.BufferUsageStorage)
	p := NewBindGroupProvider("layer", "test", 0, WithOwnedBuffer(0, uniform), WithBuffer(1, storage))
	_ = p.Rebuild(r, 1)
	p.Release()
	if !uniform.Released() {
		t.Error("owned buffer must be released")
	}
	if storage.Released() {
		t.Error("borrowed buffer must survive")
	}
	if p.BindGroup() != nil || len(p.Buffers()) != 0 {
		t.Error("provider must be empty after release")
	}
}

func TestRebuildFailureLeavesNoBindGroup(t *testing.T) {
	r, _ := setup(t)
	storage, _ := r.CreateBuffer("s", 16, renderer.BufferUsageStorage)
	p := NewBindGroupProvider("layer", "test", 0, WithBuffer(1, storage))
	_ = p.Rebuild(r, 1)
	storage.Release()
	if err := p.Rebuild(r, 2); err == nil {
		t.Fatal("rebuild against a released buffer must fail")
	}
	if p.BindGroup() != nil || !p.Stale(2) {
		t.Error("failed rebuild must leave the provider stale")
	}
}

func TestWriteBuffers(t *testing.T) {
	r, _ := setup(t)
	uniform, _ := r.CreateBuffer("u", 16, renderer.BufferUsageUniform)
	p := NewBindGroupProvider("layer", "test", 0, WithOwnedBuffer(0, uniform))
	if err := p.WriteBuffers(r, BufferWrite{Binding: 0, Offset: 4, Data: []byte{9}}); err != nil {
		t.Fatal(err)
	}
	if got := uniform.(*headless.Buffer).Bytes(); got[4] != 9 {
		t.Errorf("bytes = %v", got)
	}
	if err := p.WriteBuffers(r, BufferWrite{Binding: 3, Data: []byte{1}}); err == nil {
		t.Error("write to unbound binding must fail")
	}
}
