// Package katex marks up TeX delimiters in the content root so a math
// renderer can typeset them.
package katex

import (
	"context"
	"strings"

	"github.com/vk/loom/internal/ctxlog"
	"github.com/vk/loom/internal/dom"
	"github.com/vk/loom/internal/viz"
	"golang.org/x/net/html"
)

// HandlerName is the handler name used by the default catalog.
const HandlerName = "math"

// RootSelector locates the region that is scanned; the body is used when it
// matches nothing.
const RootSelector = ".gh-content"

// Delimiter is one pair of TeX delimiters.
type Delimiter struct {
	Left, Right string
	Display     bool
}

// DefaultDelimiters are tried in order at every position.
var DefaultDelimiters = []Delimiter{
	{Left: "$$", Right: "$$", Display: true},
	{Left: "$", Right: "$", Display: false},
	{Left: `\[`, Right: `\]`, Display: true},
	{Left: `\(`, Right: `\)`, Display: false},
}

// ignoredTags are never scanned.
var ignoredTags = []string{"script", "noscript", "style", "textarea", "pre", "code"}

// Module implements the viz.Module interface for this package.
type Module struct{}

// Register registers the handler with the registry.
func (m *Module) Register(h viz.Handlers) {
	h.RegisterHandler(HandlerName, &Handler{Delimiters: DefaultDelimiters})
}

// Handler rewrites every delimited expression into a span.math-inline or a
// div.math-display holding the raw TeX.
type Handler struct {
	Delimiters []Delimiter
}

// Init scans the content root once per page.
func (h *Handler) Init(ctx context.Context, doc *dom.Document) error {
	logger := ctxlog.FromContext(ctx).With("handler", HandlerName)

	root, err := doc.Query(RootSelector)
	if err != nil {
		return err
	}
	if root == nil {
		root = doc.Body()
	}
	if root == nil {
		logger.Debug("Page has no body, nothing to typeset.")
		return nil
	}

	exprs := 0
	nodes := root.RewriteText(ignoredTags, func(text string) []dom.Fragment {
		frags, n := h.split(text)
		exprs += n
		return frags
	})
	logger.Debug("TeX delimiters marked up.", "text_nodes", nodes, "expressions", exprs)
	return nil
}

// split cuts text into plain and math fragments. It returns nil when text
// holds no complete expression.
func (h *Handler) split(text string) ([]dom.Fragment, int) {
	var frags []dom.Fragment
	var plain strings.Builder
	found := 0

	for i := 0; i < len(text); {
		d, body, end, ok := h.match(text, i)
		if !ok {
			plain.WriteByte(text[i])
			i++
			continue
		}
		if plain.Len() > 0 {
			frags = append(frags, dom.Fragment{Text: plain.String()})
			plain.Reset()
		}
		frags = append(frags, mathFragment(d, body))
		found++
		i = end
	}
	if found == 0 {
		return nil, 0
	}
	if plain.Len() > 0 {
		frags = append(frags, dom.Fragment{Text: plain.String()})
	}
	return frags, found
}

// match tries every delimiter at position i and returns the first one whose
// closing side exists and encloses a non-blank body.
func (h *Handler) match(text string, i int) (Delimiter, string, int, bool) {
	for _, d := range h.Delimiters {
		if !strings.HasPrefix(text[i:], d.Left) {
			continue
		}
		start := i + len(d.Left)
		j := strings.Index(text[start:], d.Right)
		if j < 0 {
			continue
		}
		body := text[start : start+j]
		if strings.TrimSpace(body) == "" {
			continue
		}
		return d, body, start + j + len(d.Right), true
	}
	return Delimiter{}, "", 0, false
}

func mathFragment(d Delimiter, body string) dom.Fragment {
	if d.Display {
		return dom.Fragment{
			Tag:   "div",
			Attrs: []html.Attribute{{Key: "class", Val: "math math-display"}},
			Text:  body,
		}
	}
	return dom.Fragment{
		Tag:   "span",
		Attrs: []html.Attribute{{Key: "class", Val: "math math-inline"}},
		Text:  body,
	}
}
