// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the instances.Store interface.
//
// # Concurrency Model
//
// Entries and states live in two sync.Maps so that the narrative bridge can
// look entries up and flip their state without contending with the
// orchestrator, which keeps adding entries for later adapters. Registration
// order is kept in a separate slice under a small mutex, because sync.Map has
// no ordering.
package inmemorystore

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/loom/internal/instances"
)

// Store is an in-memory implementation of instances.Store.
//
//   - entries: instance id -> *instances.Entry (written once)
//   - states:  instance id -> instances.State (rewritten on every update)
type Store struct {
	entries sync.Map
	states  sync.Map

	mu    sync.Mutex
	order []string
}

// New creates a new, empty in-memory instance store.
func New() instances.Store {
	return &Store{}
}

// Put registers an entry in the Rendered state.
func (s *Store) Put(ctx context.Context, e *instances.Entry) error {
	if e == nil || e.ID == "" {
		return fmt.Errorf("instance entry must have an id")
	}
	if _, loaded := s.entries.LoadOrStore(e.ID, e); loaded {
		return fmt.Errorf("%w: %s", instances.ErrDuplicateID, e.ID)
	}
	s.states.Store(e.ID, instances.Rendered)

	s.mu.Lock()
	s.order = append(s.order, e.ID)
	s.mu.Unlock()
	return nil
}

// Get retrieves a registered entry.
func (s *Store) Get(ctx context.Context, id string) (*instances.Entry, bool) {
	v, ok := s.entries.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*instances.Entry), true
}

// SetState updates the lifecycle state of a registered entry.
func (s *Store) SetState(ctx context.Context, id string, state instances.State) {
	if _, ok := s.entries.Load(id); !ok {
		return
	}
	s.states.Store(id, state)
}

// GetState retrieves the lifecycle state of an entry. If the id is not
// registered, it returns Undetected.
func (s *Store) GetState(ctx context.Context, id string) instances.State {
	v, ok := s.states.Load(id)
	if !ok {
		return instances.Undetected
	}
	return v.(instances.State)
}

// IDs returns a snapshot of registered ids in registration order.
func (s *Store) IDs(ctx context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
