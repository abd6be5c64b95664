// Package mermaid normalizes diagram markup so that every diagram on a page
// is a div.mermaid carrying its source text and the page theme.
package mermaid

import (
	"context"

	"github.com/vk/loom/internal/ctxlog"
	"github.com/vk/loom/internal/dom"
	"github.com/vk/loom/internal/viz"
)

const (
	// HandlerName is the handler name used by the default catalog.
	HandlerName = "diagrams"
	// CodeSelector matches fenced code blocks tagged as mermaid.
	CodeSelector = "pre > code.language-mermaid"
	// ThemeAttr is set on every diagram.
	ThemeAttr = "data-mermaid-theme"
)

// Module implements the viz.Module interface for this package.
type Module struct{}

// Register registers the handler with the registry.
func (m *Module) Register(h viz.Handlers) {
	h.RegisterHandler(HandlerName, &Handler{})
}

// Handler is page-wide only; it has no per-element render.
type Handler struct{}

// Init replaces each mermaid code block's <pre> with a div.mermaid and tags
// every diagram with the theme derived from <html data-theme>.
func (h *Handler) Init(ctx context.Context, doc *dom.Document) error {
	logger := ctxlog.FromContext(ctx).With("handler", HandlerName)

	codes, err := doc.QueryAll(CodeSelector)
	if err != nil {
		return err
	}
	for _, code := range codes {
		pre := code.Closest("pre")
		if pre == nil {
			continue
		}
		div := doc.CreateElement("div")
		div.AddClass("mermaid")
		div.SetText(code.Text())
		pre.ReplaceWith(div)
	}

	nodes, err := doc.QueryAll(".mermaid")
	if err != nil {
		return err
	}
	theme := Theme(doc)
	for _, n := range nodes {
		n.SetAttr(ThemeAttr, theme)
	}

	logger.Debug("Diagrams normalized.", "converted", len(codes), "diagrams", len(nodes), "theme", theme)
	return nil
}

// Theme returns "dark" when the page root is in dark mode, else "default".
func Theme(doc *dom.Document) string {
	if root := doc.Root(); root != nil {
		if v, _ := root.Attr("data-theme"); v == "dark" {
			return "dark"
		}
	}
	return "default"
}
