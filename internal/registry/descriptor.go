// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package registry

import (
	"github.com/vk/loom/internal/assets"
	"github.com/vk/loom/internal/manifest"
	"github.com/vk/loom/internal/viz"
)

// Descriptor is one adapter as the orchestrator sees it: the manifest
// definition joined with its handler's capabilities.
type Descriptor struct {
	ID       string
	Bundle   assets.Bundle
	Selector string
	Rules    manifest.DetectRules
	Defaults viz.Options

	detector    viz.Detector
	initializer viz.Initializer
	renderer    viz.Renderer
	updater     viz.Updater
}

// NewDescriptor joins a manifest definition with a handler. Capabilities are
// resolved once, here, by type assertion.
func NewDescriptor(def *manifest.Adapter, handler any) *Descriptor {
	d := &Descriptor{
		ID:       def.ID,
		Bundle:   def.Bundle,
		Selector: def.Selector,
		Rules:    def.Detect,
		Defaults: viz.Options(def.Options),
	}
	d.detector, _ = handler.(viz.Detector)
	d.initializer, _ = handler.(viz.Initializer)
	d.renderer, _ = handler.(viz.Renderer)
	d.updater, _ = handler.(viz.Updater)
	return d
}

// Detect evaluates the manifest rules, then the handler's Detector. Any rule
// matching is enough. A panicking predicate counts as not detected.
func (d *Descriptor) Detect(dc *viz.DetectContext) (detected bool) {
	defer func() {
		if r := recover(); r != nil {
			detected = false
		}
	}()

	for _, flag := range d.Rules.Flags {
		if dc.HasFlag(flag) {
			return true
		}
	}
	for _, sel := range d.Rules.Selectors {
		if dc.Exists(sel) {
			return true
		}
	}
	for _, s := range d.Rules.Content {
		if dc.ContentContains(s) {
			return true
		}
	}
	if d.detector != nil {
		return d.detector.Detect(dc)
	}
	return false
}

// Initializer returns the handler's page-wide setup hook, or nil.
func (d *Descriptor) Initializer() viz.Initializer { return d.initializer }

// Renderer returns the handler's per-element mount hook, or nil.
func (d *Descriptor) Renderer() viz.Renderer { return d.renderer }

// Updater returns the handler's incremental update hook, or nil.
func (d *Descriptor) Updater() viz.Updater { return d.updater }

// HasDetector reports whether detection is implemented in Go.
func (d *Descriptor) HasDetector() bool { return d.detector != nil }
