package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/loom/internal/ctxlog"
	"github.com/vk/loom/internal/dom"
)

// Validate performs a strict parity check between manifests and Go code and,
// on success, builds the ordered descriptor catalog. All problems are
// collected into a single error.
func (r *Registry) Validate(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	seen := make(map[string]string)
	used := make(map[string]struct{})
	descriptors := make([]*Descriptor, 0, len(r.definitions))

	for _, def := range r.definitions {
		if prev, dup := seen[def.ID]; dup {
			errs = append(errs, fmt.Sprintf("adapter '%s': duplicate id (first declared in %s, again in %s)", def.ID, prev, def.FilePath))
			continue
		}
		seen[def.ID] = def.FilePath

		handler, ok := r.handlers[def.Handler]
		if !ok {
			errs = append(errs, fmt.Sprintf("adapter '%s': manifest references handler '%s' which is not registered", def.ID, def.Handler))
			continue
		}
		used[def.Handler] = struct{}{}

		d := NewDescriptor(def, handler)

		if def.Detect.Empty() && !d.HasDetector() {
			errs = append(errs, fmt.Sprintf("adapter '%s': no detect rules in manifest and handler '%s' does not implement Detect", def.ID, def.Handler))
		}
		for _, sel := range def.Detect.Selectors {
			if err := dom.ValidSelector(sel); err != nil {
				errs = append(errs, fmt.Sprintf("adapter '%s': invalid detect selector %q: %v", def.ID, sel, err))
			}
		}
		if d.Renderer() != nil && def.Selector == "" {
			errs = append(errs, fmt.Sprintf("adapter '%s': handler '%s' implements Render but manifest declares no selector", def.ID, def.Handler))
		}
		if def.Selector != "" {
			if err := dom.ValidSelector(def.Selector); err != nil {
				errs = append(errs, fmt.Sprintf("adapter '%s': invalid selector %q: %v", def.ID, def.Selector, err))
			}
		}
		if d.Updater() != nil && d.Renderer() == nil {
			logger.Warn("Adapter handler implements Update without Render; updates will receive a nil instance.", "adapter", def.ID)
		}

		descriptors = append(descriptors, d)
	}

	for name := range r.handlers {
		if _, ok := used[name]; !ok {
			logger.Warn("Adapter handler is registered but no manifest references it.", "handler", name)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	r.descriptors = descriptors
	logger.Debug("Registry validated.", "descriptors", len(descriptors))
	return nil
}
