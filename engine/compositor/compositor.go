// Package compositor sequences layers into one frame and decides which layer owns the current
// pointer interaction.
package compositor

import (
	"errors"
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-tiles/engine/diagnostics"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer"
	"github.com/Carmen-Shannon/oxy-tiles/engine/shared_state"
)

// PassSource opens render passes on the current frame. renderer.Renderer satisfies it.
type PassSource interface {
	BeginPass(label string, clear bool) (renderer.RenderPass, error)
}

var _ PassSource = renderer.Renderer(nil)

// compositor is the implementation of the Compositor interface.
type compositor struct {
	ctx    *Context
	layers []Layer
	nextID int
}

// Compositor holds the ordered layer stack. Index 0 is drawn first and hit-tested last.
type Compositor interface {
	// Add appends a layer, assigns it the next sequential id and initializes it.
	//
	// Parameters:
	//   - l: the layer
	//
	// Returns:
	//   - int: the assigned id
	//   - error: an error if the layer was already added or Init failed, in which case the
	//     layer is not part of the stack
	Add(l Layer) (int, error)

	// Remove removes a layer and tears it down.
	//
	// Parameters:
	//   - l: the layer
	//
	// Returns:
	//   - bool: false if the layer was not in the stack
	Remove(l Layer) bool

	// Layers returns the stack in render order.
	Layers() []Layer

	// Layer returns the layer with the given id, or nil.
	Layer(id int) Layer

	// Update resolves input capture, then updates every visible layer in render order.
	//
	// Parameters:
	//   - now: the frame time
	Update(now time.Time)

	// Render draws visible layers back to front. The first visible layer draws into a fresh
	// clearing pass; later layers share the open pass unless a layer needs its own, which then
	// becomes the open pass for the layers after it. The last pass is ended before returning.
	// With no visible layers a single clearing pass is opened and ended.
	//
	// Parameters:
	//   - src: where passes are opened, normally the Renderer inside BeginFrame/EndFrame
	//
	// Returns:
	//   - error: an error if a pass could not be opened; layer render errors are reported but
	//     do not stop the frame
	Render(src PassSource) error

	// InterceptInput writes the id of the topmost visible layer under the pointer to the
	// captured-layer field while the button is held, and the -1 sentinel otherwise.
	//
	// Returns:
	//   - int: the captured layer id or shared_state.NoLayer
	InterceptInput() int

	// Teardown removes and tears down every layer, topmost first.
	Teardown()
}

var _ Compositor = &compositor{}

// ErrLayerAdded is returned by Add for a layer that already belongs to a compositor.
var ErrLayerAdded = errors.New("layer already added")

// NewCompositor creates an empty Compositor over ctx.
//
// Parameters:
//   - ctx: the rendering context shared with every layer
//
// Returns:
//   - Compositor: the compositor
func NewCompositor(ctx *Context) Compositor {
	return &compositor{ctx: ctx}
}

func (c *compositor) Add(l Layer) (int, error) {
	b := l.base()
	if b.ctx != nil || b.id != shared_state.NoLayer {
		return shared_state.NoLayer, fmt.Errorf("%s: %w", b.name, ErrLayerAdded)
	}
	if err := l.Init(c.ctx); err != nil {
		l.Teardown()
		b.detach()
		return shared_state.NoLayer, fmt.Errorf("init layer %s: %w", b.name, err)
	}
	id := c.nextID
	c.nextID++
	b.id = id
	c.layers = append(c.layers, l)
	diagnostics.Logger().Debug("layer added", "layer", b.name, "id", id)
	return id, nil
}

func (c *compositor) Remove(l Layer) bool {
	for i, existing := range c.layers {
		if existing != l {
			continue
		}
		c.layers = append(c.layers[:i], c.layers[i+1:]...)
		l.Teardown()
		l.base().detach()
		return true
	}
	return false
}

func (c *compositor) Layers() []Layer {
	return append([]Layer(nil), c.layers...)
}

func (c *compositor) Layer(id int) Layer {
	for _, l := range c.layers {
		if l.ID() == id {
			return l
		}
	}
	return nil
}

func (c *compositor) Update(now time.Time) {
	c.InterceptInput()
	for _, l := range c.layers {
		if l.Visible() {
			l.Update(now)
		}
	}
}

func (c *compositor) InterceptInput() int {
	r := c.ctx.Shared.Reader()
	w := c.ctx.Shared.Render()
	if !r.ButtonDown() {
		w.SetCapturedLayer(shared_state.NoLayer)
		return shared_state.NoLayer
	}
	px, py := r.Pointer()
	for i := len(c.layers) - 1; i >= 0; i-- {
		l := c.layers[i]
		if !l.Visible() {
			continue
		}
		if vp := l.Viewport(); vp == nil || vp.Contains(px, py) {
			w.SetCapturedLayer(l.ID())
			return l.ID()
		}
	}
	w.SetCapturedLayer(shared_state.NoLayer)
	return shared_state.NoLayer
}

func (c *compositor) Render(src PassSource) error {
	var pass renderer.RenderPass
	for _, l := range c.layers {
		if !l.Visible() {
			continue
		}
		if pass == nil || l.NeedsNewPass() {
			fresh := pass == nil
			if pass != nil {
				pass.End()
			}
			next, err := src.BeginPass(l.Name(), fresh)
			if err != nil {
				return fmt.Errorf("begin pass for %s: %w", l.Name(), err)
			}
			pass = next
		}
		if err := l.Render(pass); err != nil {
			diagnostics.Report(c.ctx.Reporter, l.Name(), err, diagnostics.KindRender)
		}
	}
	if pass == nil {
		var err error
		if pass, err = src.BeginPass("clear", true); err != nil {
			return fmt.Errorf("begin clear pass: %w", err)
		}
	}
	pass.End()
	return nil
}

func (c *compositor) Teardown() {
	for i := len(c.layers) - 1; i >= 0; i-- {
		c.layers[i].Teardown()
		c.layers[i].base().detach()
	}
	c.layers = nil
}
