// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/vk/loom/internal/ctxlog"
	"github.com/vk/loom/internal/instances"
	"github.com/vk/loom/internal/viz"
)

// ErrAlreadySubscribed is returned by a second call to Bridge.Subscribe.
var ErrAlreadySubscribed = errors.New("narrative bridge is already subscribed")

// Bridge applies step updates to instances found in one instance store.
// Handle calls are serialized, so updates to an instance are applied in
// notification order.
type Bridge struct {
	store instances.Store

	subscribed atomic.Bool
	mu         sync.Mutex
}

// NewBridge returns a Bridge reading from store.
func NewBridge(store instances.Store) *Bridge {
	return &Bridge{store: store}
}

// Subscribe attaches the bridge to src and blocks while src delivers
// notifications. A bridge subscribes at most once in its lifetime.
func (b *Bridge) Subscribe(ctx context.Context, src Source) error {
	if !b.subscribed.CompareAndSwap(false, true) {
		return ErrAlreadySubscribed
	}
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Narrative bridge subscribed.")
	err := src.Subscribe(ctx, func(ctx context.Context, n StepNotification) {
		b.Handle(ctx, n)
	})
	logger.Debug("Narrative bridge subscription ended.", "error", err)
	if err != nil {
		return fmt.Errorf("step source: %w", err)
	}
	return nil
}

// Handle applies one notification and returns how many updates succeeded.
func (b *Bridge) Handle(ctx context.Context, n StepNotification) int {
	logger := ctxlog.FromContext(ctx).With("step", n.Step, "index", n.Index, "direction", n.Direction)

	if n.Element == nil {
		return 0
	}
	raw, ok := n.Element.Attr(UpdateAttr)
	if !ok || strings.TrimSpace(raw) == "" {
		return 0
	}
	entries, err := viz.ParseUpdates(raw)
	if err != nil {
		logger.Debug("Dropping step notification, data-update is not a JSON object.", "error", err)
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	applied := 0
	for _, u := range entries {
		if u.Payload == nil {
			logger.Debug("Skipping update entry, payload is not a JSON object.", "instance", u.ID)
			continue
		}
		entry, ok := b.store.Get(ctx, u.ID)
		if !ok || entry.Descriptor == nil {
			continue
		}
		updater := entry.Descriptor.Updater()
		if updater == nil {
			continue
		}
		if b.apply(ctx, entry, updater, u.Payload) {
			applied++
		}
	}
	logger.Debug("Step notification handled.", "entries", len(entries), "applied", applied)
	return applied
}

// apply runs one Update, isolating errors and panics to this entry.
func (b *Bridge) apply(ctx context.Context, entry *instances.Entry, updater viz.Updater, payload viz.Payload) (ok bool) {
	logger := ctxlog.FromContext(ctx).With("adapter", entry.Descriptor.ID, "instance", entry.ID)

	b.store.SetState(ctx, entry.ID, instances.Updating)
	defer b.store.SetState(ctx, entry.ID, instances.Rendered)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Adapter update panicked.", "panic", r)
			ok = false
		}
	}()

	if err := updater.Update(ctx, entry.Element, payload, entry.Instance); err != nil {
		logger.Error("Adapter update failed.", "error", err)
		return false
	}
	return true
}
