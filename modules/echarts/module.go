// Package echarts mounts charts on [data-viz] elements. The attribute value
// picks a named renderer (ricker, ricker-scrolly); anything else is a generic
// chart whose option object comes from data-options.
package echarts

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/loom/internal/ctxlog"
	"github.com/vk/loom/internal/dom"
	"github.com/vk/loom/internal/viz"
)

const (
	// HandlerName is the handler name used by the default catalog.
	HandlerName = "echarts"
	// KindAttr selects the renderer.
	KindAttr = "data-viz"
)

// RenderFunc mounts a named chart kind on one element.
type RenderFunc func(ctx context.Context, el *dom.Element, opts viz.Options) (viz.Instance, error)

// Applier is implemented by instances that accept step updates.
type Applier interface {
	Apply(payload viz.Payload) error
}

// Module implements the viz.Module interface for this package.
type Module struct{}

// Register registers the handler with the registry.
func (m *Module) Register(h viz.Handlers) {
	h.RegisterHandler(HandlerName, NewHandler())
}

// Handler routes elements to named renderers.
type Handler struct {
	mu        sync.RWMutex
	renderers map[string]RenderFunc
}

// NewHandler returns a Handler with the built-in named renderers.
func NewHandler() *Handler {
	h := &Handler{renderers: make(map[string]RenderFunc)}
	h.RegisterRenderer("ricker", RenderRicker)
	h.RegisterRenderer("ricker-scrolly", RenderRickerScrolly)
	return h
}

// RegisterRenderer adds a named renderer. It panics on a duplicate name.
func (h *Handler) RegisterRenderer(name string, fn RenderFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.renderers[name]; exists {
		panic(fmt.Sprintf("echarts renderer '%s' is already registered", name))
	}
	h.renderers[name] = fn
}

// Render dispatches on the element's data-viz value.
func (h *Handler) Render(ctx context.Context, el *dom.Element, opts viz.Options) (viz.Instance, error) {
	kind, _ := el.Attr(KindAttr)

	h.mu.RLock()
	fn, named := h.renderers[kind]
	h.mu.RUnlock()

	if named {
		ctxlog.FromContext(ctx).Debug("Rendering named chart.", "kind", kind, "element", el.ID())
		return fn(ctx, el, opts)
	}
	c, err := NewChart(el, opts)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Update merges a generic chart's payload into its option, or hands the
// payload to a named widget. Instances that take no updates ignore it.
func (h *Handler) Update(ctx context.Context, el *dom.Element, payload viz.Payload, inst viz.Instance) error {
	switch i := inst.(type) {
	case *Chart:
		return i.SetOption(payload, false)
	case Applier:
		return i.Apply(payload)
	default:
		ctxlog.FromContext(ctx).Debug("Chart instance takes no updates.", "element", el.ID())
		return nil
	}
}
