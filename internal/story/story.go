// Package story drives scrollytelling sections of a page. Prepare marks up
// the sections for assistive technology; a Controller enters steps and
// publishes the resulting step notifications.
//
// Expected markup:
//
//	<section class="story-section">
//	  <div class="story-sticky">
//	    <div class="story-graphic"><div data-viz="ricker-scrolly"></div></div>
//	  </div>
//	  <div class="story-steps">
//	    <div class="story-step" data-step="0">...</div>
//	    <div class="story-step" data-step="1">...</div>
//	  </div>
//	</section>
package story

import (
	"context"
	"fmt"
	"strconv"

	"github.com/vk/loom/internal/assets"
	"github.com/vk/loom/internal/ctxlog"
	"github.com/vk/loom/internal/dom"
)

// ScrollamaURL is the step-detection library the browser needs for story
// pages.
const ScrollamaURL = "https://cdn.jsdelivr.net/npm/scrollama@3/build/scrollama.min.js"

// Section is one prepared story section.
type Section struct {
	Element *dom.Element
	Graphic *dom.Element
	Steps   []*dom.Element
}

// Prepare finds every .story-section that has a graphic and at least one
// step, assigns missing ids, sets the ARIA attributes, and makes sure the
// scrollama script is on the page. loader may be nil.
func Prepare(ctx context.Context, doc *dom.Document, loader *assets.Loader) ([]*Section, error) {
	logger := ctxlog.FromContext(ctx)

	els, err := doc.QueryAll(".story-section")
	if err != nil {
		return nil, err
	}

	var sections []*Section
	for i, el := range els {
		graphic, err := el.Query(".story-graphic")
		if err != nil {
			return nil, err
		}
		steps, err := el.QueryAll(".story-step")
		if err != nil {
			return nil, err
		}
		if graphic == nil || len(steps) == 0 {
			logger.Debug("Skipping story section without graphic or steps.", "index", i)
			continue
		}

		if el.ID() == "" {
			el.SetID(fmt.Sprintf("story-%d", i))
		}
		graphic.SetAttr("aria-live", "polite")
		for j, step := range steps {
			if step.ID() == "" {
				step.SetID(fmt.Sprintf("%s-step-%d", el.ID(), j))
			}
			step.SetAttr("aria-label", fmt.Sprintf("Step %d of %d", j+1, len(steps)))
		}
		sections = append(sections, &Section{Element: el, Graphic: graphic, Steps: steps})
	}

	if len(sections) > 0 && loader != nil {
		select {
		case <-loader.LoadScript(ctx, ScrollamaURL):
		case <-ctx.Done():
			return sections, ctx.Err()
		}
	}
	logger.Debug("Story sections prepared.", "sections", len(sections))
	return sections, nil
}

// stepName is the step's data-step value, or its index.
func stepName(el *dom.Element, index int) string {
	if v, ok := el.Attr("data-step"); ok {
		return v
	}
	return strconv.Itoa(index)
}
