// Package instances defines the identity-keyed table of mounted
// visualizations built during bootstrap and read by the narrative bridge.
//
// # Lifecycle
//
// Entries are created by the orchestrator during the render phase and are
// never removed: they persist for the page lifetime. The narrative bridge
// only looks entries up and moves them between Rendered and Updating.
//
// # Thread-Safety Requirements
//
// Implementations MUST be safe for concurrent use. Step notifications are
// consumed on their own goroutine and may look up entries while bootstrap is
// still adding them for later adapters.
package instances

import (
	"context"
	"errors"

	"github.com/vk/loom/internal/dom"
	"github.com/vk/loom/internal/registry"
	"github.com/vk/loom/internal/viz"
)

// ErrDuplicateID is returned by Put when the identity is already taken.
var ErrDuplicateID = errors.New("instance id already registered")

// Entry is one mounted visualization.
type Entry struct {
	ID         string
	Descriptor *registry.Descriptor
	Element    *dom.Element
	// Instance is whatever Render returned. Nil means "nothing to update".
	Instance viz.Instance
}

// State is where a visualization is in its lifecycle.
type State int32

const (
	// Undetected is the state of anything the store does not know about.
	Undetected State = iota
	// Loading means the adapter was detected and its bundle is loading.
	Loading
	// Initializing means the adapter's page-wide Init is running.
	Initializing
	// Rendered means the instance is mounted and idle.
	Rendered
	// Updating means a narrative update is being applied.
	Updating
)

func (s State) String() string {
	switch s {
	case Undetected:
		return "UNDETECTED"
	case Loading:
		return "LOADING"
	case Initializing:
		return "INITIALIZING"
	case Rendered:
		return "RENDERED"
	case Updating:
		return "UPDATING"
	default:
		return "UNKNOWN"
	}
}

// Store is the instance registry.
type Store interface {
	// Put registers e in the Rendered state. It fails with ErrDuplicateID if
	// e.ID is already present.
	Put(ctx context.Context, e *Entry) error
	// Get returns the entry registered under id.
	Get(ctx context.Context, id string) (*Entry, bool)
	// SetState records the lifecycle state of a registered entry. Unknown ids
	// are ignored.
	SetState(ctx context.Context, id string, s State)
	// GetState returns the state of id, or Undetected if it is not registered.
	GetState(ctx context.Context, id string) State
	// IDs returns every registered id in registration order.
	IDs(ctx context.Context) []string
}
