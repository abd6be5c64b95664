package features

import (
	"context"

	"github.com/vk/loom/internal/dom"
)

// DefaultCodeSelector matches the code blocks of regular posts.
const DefaultCodeSelector = ".gh-content pre > code"

// CopyButtons appends a "Copy" button to every matched <pre><code> block.
type CopyButtons struct {
	// Selector overrides DefaultCodeSelector.
	Selector string
}

func (CopyButtons) Name() string { return "copy-buttons" }

// Apply skips essay pages and blocks that already have a button.
func (c CopyButtons) Apply(ctx context.Context, doc *dom.Document) (int, error) {
	if isEssay(doc) {
		return 0, nil
	}
	sel := c.Selector
	if sel == "" {
		sel = DefaultCodeSelector
	}
	codes, err := doc.QueryAll(sel)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, code := range codes {
		pre := code.Parent()
		if pre == nil {
			continue
		}
		if existing, _ := pre.Query(".copy-btn"); existing != nil {
			continue
		}

		btn := doc.CreateElement("button")
		btn.SetAttr("type", "button")
		btn.SetAttr("class", "copy-btn")
		btn.SetAttr("aria-label", "Copy code to clipboard")
		btn.SetText("Copy")

		pre.SetStyle("position", "relative")
		pre.AppendChild(btn)
		added++
	}
	return added, nil
}
