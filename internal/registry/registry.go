package registry

import (
	"github.com/vk/loom/internal/manifest"
	"github.com/vk/loom/internal/viz"
)

// Registry holds the registered handlers and adapter definitions for a single
// application instance.
type Registry struct {
	handlers    map[string]any
	definitions []*manifest.Adapter
	descriptors []*Descriptor
}

// New creates a Registry and lets each module register its handlers.
func New(modules ...viz.Module) *Registry {
	r := &Registry{handlers: make(map[string]any)}
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// AddDefinitions appends manifest definitions in catalog order. Descriptors
// are only built by Validate.
func (r *Registry) AddDefinitions(defs ...*manifest.Adapter) {
	r.definitions = append(r.definitions, defs...)
	r.descriptors = nil
}

// Definitions returns the manifest definitions in catalog order.
func (r *Registry) Definitions() []*manifest.Adapter {
	return r.definitions
}

// Descriptors returns the validated catalog. It is nil until Validate
// succeeds.
func (r *Registry) Descriptors() []*Descriptor {
	if r.descriptors == nil {
		return nil
	}
	out := make([]*Descriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

// Lookup returns the validated descriptor with the given id.
func (r *Registry) Lookup(id string) (*Descriptor, bool) {
	for _, d := range r.descriptors {
		if d.ID == id {
			return d, true
		}
	}
	return nil, false
}
