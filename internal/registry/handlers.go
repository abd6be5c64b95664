package registry

import (
	"fmt"
	"log/slog"

	"github.com/vk/loom/internal/viz"
)

// RegisterHandler registers the Go value implementing an adapter. The value
// may implement any subset of the viz capability interfaces.
func (r *Registry) RegisterHandler(name string, handler any) {
	if handler == nil {
		panic(fmt.Sprintf("adapter handler '%s' is nil", name))
	}
	if _, exists := r.handlers[name]; exists {
		panic(fmt.Sprintf("adapter handler with name '%s' already registered", name))
	}
	slog.Debug("Registering adapter handler.", "name", name, "capabilities", capabilities(handler))
	r.handlers[name] = handler
}

// Handler returns the handler registered under name.
func (r *Registry) Handler(name string) (any, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// capabilities lists the viz interfaces a handler implements, for logs.
func capabilities(h any) []string {
	var caps []string
	if _, ok := h.(viz.Detector); ok {
		caps = append(caps, "detect")
	}
	if _, ok := h.(viz.Initializer); ok {
		caps = append(caps, "init")
	}
	if _, ok := h.(viz.Renderer); ok {
		caps = append(caps, "render")
	}
	if _, ok := h.(viz.Updater); ok {
		caps = append(caps, "update")
	}
	return caps
}
