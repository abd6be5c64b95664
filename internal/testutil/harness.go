package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/loom/internal/app"
	"github.com/vk/loom/internal/dom"
	"github.com/vk/loom/internal/viz"
)

// PageFile is the name the harness expects the page under in Files.
const PageFile = "page.html"

// Scenario describes one end-to-end run. Files are written to a temporary
// directory; every file ending in .hcl is loaded as a manifest.
type Scenario struct {
	Files map[string]string
	// Modules replaces the built-in modules when non-empty.
	Modules []viz.Module
	// Configure adjusts the config before the app is built.
	Configure func(cfg *app.Config)
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	Output    string
	Err       error
	App       *app.App
}

// Page parses the rendered output.
func (r *HarnessResult) Page(t *testing.T) *dom.Document {
	t.Helper()
	doc, err := dom.ParseString(r.Output)
	require.NoError(t, err)
	return doc
}

// RunScenario runs a scenario using a default background context.
func RunScenario(t *testing.T, s Scenario) *HarnessResult {
	t.Helper()
	return RunScenarioWithContext(context.Background(), t, s)
}

// RunScenarioWithContext builds the app from the scenario's files and runs it
// once. A startup panic is captured in Err.
func RunScenarioWithContext(ctx context.Context, t *testing.T, s Scenario) *HarnessResult {
	t.Helper()

	dir := t.TempDir()
	var manifests []string
	for name, content := range s.Files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		if strings.HasSuffix(name, ".hcl") {
			manifests = append(manifests, path)
		}
	}
	sort.Strings(manifests)

	cfg := &app.Config{
		PagePath:      filepath.Join(dir, PageFile),
		ManifestPaths: manifests,
		LogFormat:     "text",
		StepEvent:     "story:step",
	}
	if s.Configure != nil {
		s.Configure(cfg)
	}

	var (
		testApp  *app.App
		out      *app.SafeBuffer
		logs     *app.SafeBuffer
		panicErr any
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				if os.Getenv("LOOM_TEST_LOGS") == "true" {
					t.Logf("--- HARNESS RECOVERED PANIC ---\n%q", fmt.Sprintf("%v", r))
				}
				panicErr = r
			}
		}()
		testApp, out, logs = app.SetupAppTest(t, cfg, s.Modules...)
	}()

	if panicErr != nil {
		return &HarnessResult{Err: fmt.Errorf("application startup panicked | %v", panicErr)}
	}

	runErr := testApp.Run(ctx)
	return &HarnessResult{
		LogOutput: logs.String(),
		Output:    out.String(),
		Err:       runErr,
		App:       testApp,
	}
}
