package features

import (
	"context"

	"github.com/vk/loom/internal/ctxlog"
	"github.com/vk/loom/internal/dom"
)

// ProgressBar mounts the reading-progress indicator on post pages.
type ProgressBar struct{}

func (ProgressBar) Name() string { return "progress-bar" }

// Apply prepends div.essay-progress-bar to <body> on pages that have a
// .post-main and are not essays. It is idempotent.
func (ProgressBar) Apply(ctx context.Context, doc *dom.Document) (int, error) {
	logger := ctxlog.FromContext(ctx)
	if isEssay(doc) || !doc.Exists(".post-main") {
		return 0, nil
	}
	if doc.Exists(".essay-progress-bar") {
		logger.Debug("Progress bar already mounted.")
		return 0, nil
	}
	body := doc.Body()
	if body == nil {
		return 0, nil
	}

	bar := doc.CreateElement("div")
	bar.SetAttr("class", "essay-progress-bar")
	bar.SetAttr("role", "progressbar")
	bar.SetAttr("aria-label", "Reading progress")
	bar.SetAttr("aria-valuemin", "0")
	bar.SetAttr("aria-valuemax", "100")
	bar.SetAttr("aria-valuenow", "0")
	body.Prepend(bar)
	return 1, nil
}
