// Package features holds the page-wide affordances applied after every
// adapter has been bootstrapped. They do not depend on detection.
package features

import (
	"context"

	"github.com/vk/loom/internal/dom"
)

// Feature decorates a whole page. Apply returns how many elements it added.
type Feature interface {
	Name() string
	Apply(ctx context.Context, doc *dom.Document) (int, error)
}

// Defaults returns the features every page gets, in application order.
func Defaults() []Feature {
	return []Feature{ProgressBar{}, CopyButtons{}}
}

// isEssay reports whether the page is an essay; essay pages bring their own
// progress bar and copy buttons.
func isEssay(doc *dom.Document) bool {
	return doc.ElementByID("essay-content") != nil
}
