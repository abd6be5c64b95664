package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/loom/internal/dom"
	"github.com/vk/loom/internal/viz"
)

const storyPage = `<!doctype html>
<html><head><title>Cities</title></head>
<body>
<article class="gh-content">
  <section class="story-section">
    <div class="story-sticky"><div class="story-graphic">
      <div data-leaflet id="city-map" data-lat="51.5" data-lng="-0.1" data-zoom="10"></div>
    </div></div>
    <div class="story-steps">
      <div class="story-step" data-step="london">London</div>
      <div class="story-step" data-step="paris"
           data-update='{"city-map": {"lat": 48.858, "lng": 2.295, "zoom": 14}}'>Paris</div>
    </div>
  </section>
</article>
</body></html>`

func writePageFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_BootstrapsAndReplaysSteps(t *testing.T) {
	// --- Arrange ---
	cfg := &Config{PagePath: writePageFile(t, storyPage), Steps: []int{0, 1}}
	a, out, logs := SetupAppTest(t, cfg)

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)

	doc, err := dom.ParseString(out.String())
	require.NoError(t, err)

	m := doc.ElementByID("city-map")
	require.NotNil(t, m)
	center, _ := m.Attr("data-leaflet-center")
	assert.Equal(t, "48.858,2.295", center)

	steps, err := doc.QueryAll(".story-step")
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.False(t, steps[0].HasAttr("data-active"))
	assert.True(t, steps[1].HasAttr("data-active"))

	assert.True(t, doc.Exists(`script[src*="leaflet"]`))
	assert.True(t, doc.Exists(`script[src*="scrollama"]`))

	report := a.Report()
	require.NotNil(t, report)
	assert.Equal(t, []string{"leaflet"}, report.Detected())
	assert.Contains(t, logs.String(), "Step replayed.")
}

func TestRun_StepOutOfRange(t *testing.T) {
	cfg := &Config{PagePath: writePageFile(t, storyPage), Steps: []int{5}}
	a, out, _ := SetupAppTest(t, cfg)

	err := a.Run(context.Background())

	assert.ErrorContains(t, err, "failed to replay step")
	assert.Empty(t, out.String())
}

func TestRun_WritesOutputFile(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "out.html")
	cfg := &Config{PagePath: writePageFile(t, `<p>hello</p>`), OutputPath: outPath}
	a, out, _ := SetupAppTest(t, cfg)

	require.NoError(t, a.Run(context.Background()))

	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(written), "<p>hello</p>")
	assert.Empty(t, out.String())
}

func TestRun_ReadsStdin(t *testing.T) {
	cfg := &Config{PagePath: "-"}
	a, out, _ := SetupAppTest(t, cfg)
	a.inR = strings.NewReader(`<div data-d3="bar" id="c" data-options='{"data":[{"label":"A","value":1}]}'></div>`)

	require.NoError(t, a.Run(context.Background()))

	assert.Contains(t, out.String(), `class="bar"`)
}

func TestRun_MissingPage(t *testing.T) {
	cfg := &Config{PagePath: filepath.Join(t.TempDir(), "nope.html")}
	a, _, _ := SetupAppTest(t, cfg)

	assert.ErrorContains(t, a.Run(context.Background()), "failed to open page")
}

type stampModule struct{}

type stamp struct{}

func (stamp) Render(_ context.Context, el *dom.Element, opts viz.Options) (viz.Instance, error) {
	label, _ := viz.String(opts, "label")
	el.SetText(label)
	return nil, nil
}

func (stampModule) Register(h viz.Handlers) { h.RegisterHandler("stamp", stamp{}) }

func TestNewApp_CustomManifest(t *testing.T) {
	manifest := filepath.Join(t.TempDir(), "stamp.hcl")
	require.NoError(t, os.WriteFile(manifest, []byte(`
adapter "stamp" {
  selector = ".stamp"
  options  = { label = "stamped" }
  detect {
    selectors = [".stamp"]
  }
}
`), 0o600))

	cfg := &Config{PagePath: writePageFile(t, `<p class="stamp"></p>`), SkipCatalog: true, ManifestPaths: []string{manifest}}
	a, out, _ := SetupAppTest(t, cfg, stampModule{})

	_, ok := a.Registry().Lookup("math")
	assert.False(t, ok, "default catalog is skipped")

	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), `<p class="stamp" id="loom-viz-1">stamped</p>`)
}

func TestNewApp_PanicsOnBadManifest(t *testing.T) {
	manifest := filepath.Join(t.TempDir(), "bad.hcl")
	require.NoError(t, os.WriteFile(manifest, []byte(`adapter "x" {`), 0o600))

	cfg := &Config{PagePath: "-", ManifestPaths: []string{manifest}}
	assert.Panics(t, func() { SetupAppTest(t, cfg) })
}

func TestHandler_HealthAndPage(t *testing.T) {
	a, _, _ := SetupAppTest(t, &Config{PagePath: "-"})
	h := a.handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK\n", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/page", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	doc, err := dom.ParseString(`<p>live</p>`)
	require.NoError(t, err)
	a.setPage(doc)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/page", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<p>live</p>")
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
}
