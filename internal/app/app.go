package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/vk/loom/internal/ctxlog"
	"github.com/vk/loom/internal/dom"
	"github.com/vk/loom/internal/orchestrator"
	"github.com/vk/loom/internal/registry"
	"github.com/vk/loom/internal/viz"
	"github.com/vk/loom/modules"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	inR      io.Reader
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry

	mu         sync.RWMutex
	page       *dom.Document
	report     *orchestrator.Report
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own logger and a validated registry.
// Page output goes to outW and logs to logW. Without mods, the built-in
// modules are registered.
func NewApp(outW, logW io.Writer, cfg *Config, mods ...viz.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if len(mods) == 0 {
		mods = modules.Core(cfg.MapboxToken)
	}
	reg := registry.New(mods...)
	logger.Debug("All Go modules registered.", "count", len(mods))

	if !cfg.SkipCatalog {
		if err := reg.LoadSource(ctx, modules.CatalogFile, modules.Catalog); err != nil {
			// The embedded catalog ships with the binary, so this is a build defect.
			panic(fmt.Errorf("failed to load the default catalog: %w", err))
		}
		logger.Debug("Default catalog loaded.")
	}
	if len(cfg.ManifestPaths) > 0 {
		if err := reg.LoadManifests(ctx, cfg.ManifestPaths...); err != nil {
			// A failure to load config is a fatal startup error.
			panic(fmt.Errorf("failed to load adapter manifests: %w", err))
		}
	}

	// Validate the integrity of the registry.
	if err := reg.Validate(ctx); err != nil {
		// This is a mismatch between code and manifests, so we panic.
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	return &App{
		inR:      os.Stdin,
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: reg,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Report returns the report of the last bootstrap pass, or nil.
func (a *App) Report() *orchestrator.Report {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.report
}

func (a *App) setPage(doc *dom.Document) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.page = doc
}

func (a *App) currentPage() *dom.Document {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.page
}

func (a *App) setReport(r *orchestrator.Report) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.report = r
}
