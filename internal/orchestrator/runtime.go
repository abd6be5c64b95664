package orchestrator

import (
	"github.com/google/uuid"
	"github.com/vk/loom/internal/assets"
	"github.com/vk/loom/internal/dom"
	"github.com/vk/loom/internal/inmemorystore"
	"github.com/vk/loom/internal/instances"
	"github.com/vk/loom/internal/narrative"
)

// Runtime is the state owned by one page's bootstrap. Nothing here is
// package-global, so independent pages (or tests) never share instances.
type Runtime struct {
	// ID identifies the run in logs.
	ID        string
	Doc       *dom.Document
	Assets    *assets.Loader
	Instances instances.Store
	Bridge    *narrative.Bridge
}

func newRuntime(doc *dom.Document, fetcher assets.Fetcher) *Runtime {
	store := inmemorystore.New()
	return &Runtime{
		ID:        uuid.NewString(),
		Doc:       doc,
		Assets:    assets.NewLoader(doc, fetcher),
		Instances: store,
		Bridge:    narrative.NewBridge(store),
	}
}
