// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package viz

import (
	"context"
	"strings"

	"github.com/vk/loom/internal/dom"
)

// Instance is the opaque handle a Renderer returns for a mounted
// visualization. A nil Instance is valid and means "nothing to update".
type Instance any

// Detector reports whether the adapter is required on the current page.
// Implementations must be pure and fast; a panic counts as "not detected".
type Detector interface {
	Detect(dc *DetectContext) bool
}

// Initializer performs page-wide setup once, after the adapter's bundle has
// been loaded and before any element is rendered.
type Initializer interface {
	Init(ctx context.Context, doc *dom.Document) error
}

// Renderer mounts a visualization on a single element matched by the
// adapter's selector.
type Renderer interface {
	Render(ctx context.Context, el *dom.Element, opts Options) (Instance, error)
}

// Updater applies an incremental change, triggered by a narrative step, to an
// instance previously returned by Render.
type Updater interface {
	Update(ctx context.Context, el *dom.Element, payload Payload, inst Instance) error
}

// Module is implemented by every package that contributes adapter handlers.
type Module interface {
	Register(h Handlers)
}

// Handlers is the registration surface handed to modules.
type Handlers interface {
	RegisterHandler(name string, handler any)
}

// DetectContext is what detection predicates may inspect.
type DetectContext struct {
	Doc *dom.Document
	// Content is the main content root, or nil if the page has none.
	Content *dom.Element
}

// HasFlag reports whether the page carries a feature flag class on <html>
// or, for layouts that put flags there, on <body>.
func (dc *DetectContext) HasFlag(class string) bool {
	if dc == nil || dc.Doc == nil {
		return false
	}
	if root := dc.Doc.Root(); root != nil && root.HasClass(class) {
		return true
	}
	if body := dc.Doc.Body(); body != nil && body.HasClass(class) {
		return true
	}
	return false
}

// Exists reports whether any element on the page matches sel.
func (dc *DetectContext) Exists(sel string) bool {
	if dc == nil || dc.Doc == nil {
		return false
	}
	return dc.Doc.Exists(sel)
}

// ContentContains reports whether the content root's text contains s.
func (dc *DetectContext) ContentContains(s string) bool {
	if dc == nil || dc.Content == nil {
		return false
	}
	return strings.Contains(dc.Content.Text(), s)
}
