package manifest

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/loom/internal/ctxlog"
	"github.com/vk/loom/internal/fsutil"
)

// Loader parses manifests from disk or memory. One Loader may be used for
// several sources; its parser caches files by name.
type Loader struct {
	parser *hclparse.Parser
}

// NewLoader returns a Loader with a fresh HCL parser.
func NewLoader() *Loader {
	return &Loader{parser: hclparse.NewParser()}
}

// LoadSource parses one in-memory manifest, such as the embedded default
// catalog.
func (l *Loader) LoadSource(ctx context.Context, filename string, src []byte) ([]*Adapter, error) {
	hclFile, diags := l.parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	adapters, diags := ParseFile(ctx, hclFile, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to process adapter definitions in %s: %w", filename, diags)
	}
	return adapters, nil
}

// LoadPaths parses every manifest found under the given paths. Each path may
// be a file, a directory (searched recursively for .hcl files) or a glob such
// as "manifests/**/*.hcl". Results keep file order, then block order.
func (l *Loader) LoadPaths(ctx context.Context, paths ...string) ([]*Adapter, error) {
	logger := ctxlog.FromContext(ctx)

	var all []*Adapter
	for _, p := range paths {
		logger.Debug("Loading adapter manifests...", "path", p)
		filePaths, err := fsutil.FindFiles(p, ".hcl")
		if err != nil {
			logger.Error("Failed to resolve manifest path", "path", p, "error", err)
			return nil, err
		}
		if len(filePaths) == 0 {
			logger.Warn("No .hcl manifest files found in path", "path", p)
			continue
		}
		logger.Debug("Found HCL files to load", "files", filePaths)

		for _, filePath := range filePaths {
			hclFile, diags := l.parser.ParseHCLFile(filePath)
			if diags.HasErrors() {
				return nil, fmt.Errorf("failed to parse HCL file %s: %w", filePath, diags)
			}
			adapters, diags := ParseFile(ctx, hclFile, filePath)
			if diags.HasErrors() {
				return nil, fmt.Errorf("failed to process adapter definitions in %s: %w", filePath, diags)
			}
			all = append(all, adapters...)
			logger.Debug("Successfully loaded definitions from HCL file", "file", filePath, "adapters", len(adapters))
		}
	}

	logger.Info("Adapter manifests loaded.", "adapter_definitions_loaded", len(all))
	return all, nil
}
