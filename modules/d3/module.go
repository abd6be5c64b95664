// Package d3 mounts SVG charts on [data-d3] elements. The attribute value
// names a chart factory; bar, line and force are built in and more can be
// added with RegisterChart.
package d3

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/vk/loom/internal/ctxlog"
	"github.com/vk/loom/internal/dom"
	"github.com/vk/loom/internal/viz"
)

const (
	// HandlerName is the handler name used by the default catalog.
	HandlerName = "d3"
	// KindAttr selects the chart factory.
	KindAttr = "data-d3"
)

// Chart is a mounted chart.
type Chart interface {
	Update(data any) error
}

// Factory mounts a chart of one kind. data is the "data" option; opts holds
// every other option.
type Factory func(el *dom.Element, data any, opts viz.Options) (Chart, error)

// Module implements the viz.Module interface for this package.
type Module struct{}

// Register registers the handler with the registry.
func (m *Module) Register(h viz.Handlers) {
	h.RegisterHandler(HandlerName, NewHandler())
}

// Handler holds the chart factories.
type Handler struct {
	mu     sync.RWMutex
	charts map[string]Factory
}

// NewHandler returns a Handler with the built-in chart kinds.
func NewHandler() *Handler {
	h := &Handler{charts: make(map[string]Factory)}
	h.RegisterChart("bar", BarChart)
	h.RegisterChart("line", LineChart)
	h.RegisterChart("force", ForceGraph)
	return h
}

// RegisterChart adds a chart kind. It panics on a duplicate name.
func (h *Handler) RegisterChart(name string, f Factory) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.charts[name]; exists {
		panic(fmt.Sprintf("d3 chart '%s' is already registered", name))
	}
	h.charts[name] = f
}

// Kinds returns the registered chart kinds, sorted.
func (h *Handler) Kinds() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	kinds := make([]string, 0, len(h.charts))
	for k := range h.charts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Render mounts the chart named by data-d3. An unknown kind is logged and
// leaves the element alone.
func (h *Handler) Render(ctx context.Context, el *dom.Element, opts viz.Options) (viz.Instance, error) {
	kind, _ := el.Attr(KindAttr)

	h.mu.RLock()
	factory, ok := h.charts[kind]
	h.mu.RUnlock()
	if !ok {
		ctxlog.FromContext(ctx).Warn("Unknown d3 chart type.",
			"type", kind, "element", el.ID(), "known", strings.Join(h.Kinds(), ", "))
		return nil, nil
	}

	data, ok := opts["data"]
	if !ok || data == nil {
		data = []any{}
	}
	rest := make(viz.Options, len(opts))
	for k, v := range opts {
		if k != "data" {
			rest[k] = v
		}
	}

	chart, err := factory(el, data, rest)
	if err != nil {
		return nil, err
	}
	return chart, nil
}

// Update passes the payload's "data" (or the whole payload) to the chart.
func (h *Handler) Update(ctx context.Context, el *dom.Element, payload viz.Payload, inst viz.Instance) error {
	chart, ok := inst.(Chart)
	if !ok {
		return nil
	}
	if data, ok := payload["data"]; ok {
		return chart.Update(data)
	}
	return chart.Update(map[string]any(payload))
}
