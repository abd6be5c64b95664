package registry

import (
	"context"

	"github.com/vk/loom/internal/ctxlog"
	"github.com/vk/loom/internal/manifest"
)

// LoadManifests parses the manifests found under paths and appends their
// adapter definitions, keeping file and block order.
func (r *Registry) LoadManifests(ctx context.Context, paths ...string) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Registry loading definitions from manifest paths...", "paths", paths)

	defs, err := manifest.NewLoader().LoadPaths(ctx, paths...)
	if err != nil {
		return err
	}
	r.AddDefinitions(defs...)

	logger.Info("Registry loaded successfully.", "adapter_definitions_loaded", len(r.definitions))
	return nil
}

// LoadSource parses one in-memory manifest, typically the embedded default
// catalog, and appends its definitions.
func (r *Registry) LoadSource(ctx context.Context, filename string, src []byte) error {
	defs, err := manifest.NewLoader().LoadSource(ctx, filename, src)
	if err != nil {
		return err
	}
	r.AddDefinitions(defs...)
	return nil
}
