package integrationtests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/loom/internal/app"
	"github.com/vk/loom/internal/testutil"
	"github.com/vk/loom/internal/viz"
)

const storyPage = `<article class="gh-content">
<section class="story-section">
  <div class="story-graphic"><div class="box" id="panel"></div></div>
  <div class="story-steps">
    <div class="story-step" data-update='{"panel": {"label": "one"}, "ghost": {"label": "nobody"}}'>1</div>
    <div class="story-step" data-update='{"panel": {"label": "two"}}'>2</div>
    <div class="story-step">3</div>
  </div>
</section>
</article>`

// TestNarrative_StepsUpdateRenderedInstances replays story steps and checks
// that only registered instances receive their payloads.
func TestNarrative_StepsUpdateRenderedInstances(t *testing.T) {
	// --- Arrange ---
	box := &testutil.RecordingHandler{}

	// --- Act ---
	result := testutil.RunScenario(t, testutil.Scenario{
		Files: map[string]string{
			"box.hcl":         boxManifest,
			testutil.PageFile: storyPage,
		},
		Modules: []viz.Module{boxModule(box)},
		Configure: func(cfg *app.Config) {
			cfg.SkipCatalog = true
			cfg.Steps = []int{0, 1, 2}
		},
	})

	// --- Assert ---
	require.NoError(t, result.Err)

	updates := box.Updates()
	require.Len(t, updates, 2)
	assert.Equal(t, "one", updates[0]["label"])
	assert.Equal(t, "two", updates[1]["label"])

	doc := result.Page(t)
	assert.Equal(t, "two", doc.ElementByID("panel").Text())
	assert.Nil(t, doc.ElementByID("ghost"))
	assert.True(t, doc.Exists(`script[src*="scrollama"]`))
}
