package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/loom/internal/assets"
	"github.com/vk/loom/internal/ctxlog"
	"github.com/vk/loom/internal/dom"
	"github.com/vk/loom/internal/instances"
	"github.com/vk/loom/internal/manifest"
	"github.com/vk/loom/internal/narrative"
	"github.com/vk/loom/internal/registry"
	"github.com/vk/loom/internal/viz"
)

// journal is an ordered log shared by all fake adapters of a test.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(format string, args ...any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, fmt.Sprintf(format, args...))
}

func (j *journal) all() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

// fakeAdapter implements every capability and records each call.
type fakeAdapter struct {
	name      string
	j         *journal
	detected  bool
	initErr   error
	renderErr map[string]error
	panicOn   string
	opts      map[string]viz.Options
	updates   []viz.Payload
}

func (a *fakeAdapter) Detect(*viz.DetectContext) bool {
	a.j.add("%s:detect", a.name)
	return a.detected
}

func (a *fakeAdapter) Init(context.Context, *dom.Document) error {
	a.j.add("%s:init", a.name)
	return a.initErr
}

func (a *fakeAdapter) Render(_ context.Context, el *dom.Element, opts viz.Options) (viz.Instance, error) {
	a.j.add("%s:render:%s", a.name, el.ID())
	if a.opts == nil {
		a.opts = make(map[string]viz.Options)
	}
	a.opts[el.ID()] = opts
	if el.ID() == a.panicOn {
		panic("render exploded")
	}
	if err := a.renderErr[el.ID()]; err != nil {
		return nil, err
	}
	return "instance-of-" + el.ID(), nil
}

func (a *fakeAdapter) Update(_ context.Context, el *dom.Element, payload viz.Payload, inst viz.Instance) error {
	a.j.add("%s:update:%s:%v", a.name, el.ID(), inst)
	a.updates = append(a.updates, payload)
	return nil
}

// renderOnly has no Update.
type renderOnly struct{ j *journal }

func (r renderOnly) Render(_ context.Context, el *dom.Element, _ viz.Options) (viz.Instance, error) {
	r.j.add("static:render:%s", el.ID())
	return nil, nil
}

// scriptRecorder is an assets.Fetcher that logs into the journal.
type scriptRecorder struct{ j *journal }

func (s scriptRecorder) Fetch(_ context.Context, url string, kind assets.Kind) error {
	s.j.add("fetch:%s:%s", kind, url)
	return nil
}

func descriptor(id, selector string, handler any, mutate ...func(*manifest.Adapter)) *registry.Descriptor {
	def := &manifest.Adapter{ID: id, Handler: id, Selector: selector}
	for _, m := range mutate {
		m(def)
	}
	return registry.NewDescriptor(def, handler)
}

func parse(t *testing.T, s string) *dom.Document {
	t.Helper()
	doc, err := dom.ParseString(s)
	require.NoError(t, err)
	return doc
}

func TestRun_DescriptorsAreStrictlySequential(t *testing.T) {
	// --- Arrange ---
	j := &journal{}
	doc := parse(t, `<body><div class="a" id="a1"></div><div class="a" id="a2"></div><div class="b" id="b1"></div></body>`)
	a := &fakeAdapter{name: "A", j: j, detected: true}
	b := &fakeAdapter{name: "B", j: j, detected: true}
	descs := []*registry.Descriptor{
		descriptor("A", ".a", a, func(d *manifest.Adapter) { d.Bundle.Scripts = []string{"https://cdn/a.js"} }),
		descriptor("B", ".b", b, func(d *manifest.Adapter) { d.Bundle.Scripts = []string{"https://cdn/b.js"} }),
	}
	o := New(doc, descs, WithFetcher(scriptRecorder{j: j}), WithFeatures())

	// --- Act ---
	report, err := o.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{
		"A:detect",
		"fetch:script:https://cdn/a.js",
		"A:init",
		"A:render:a1",
		"A:render:a2",
		"B:detect",
		"fetch:script:https://cdn/b.js",
		"B:init",
		"B:render:b1",
	}, j.all())
	assert.Equal(t, []string{"A", "B"}, report.Detected())
	assert.Equal(t, []string{"a1", "a2"}, report.Adapters[0].Instances)
	assert.Equal(t, instances.Rendered, report.Adapters[1].State)
	require.NoError(t, o.Wait())
}

func TestRun_UndetectedAdapterIsSkippedEntirely(t *testing.T) {
	j := &journal{}
	doc := parse(t, `<body><div class="a"></div></body>`)
	a := &fakeAdapter{name: "A", j: j, detected: false}
	o := New(doc, []*registry.Descriptor{
		descriptor("A", ".a", a, func(d *manifest.Adapter) { d.Bundle.Styles = []string{"https://cdn/a.css"} }),
	}, WithFeatures())

	report, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A:detect"}, j.all())
	assert.False(t, doc.HasTagWithAttr("link", "href", "https://cdn/a.css"))
	assert.Equal(t, instances.Undetected, report.Adapters[0].State)
	assert.Empty(t, o.Runtime().Instances.IDs(context.Background()))
}

func TestRun_SharedURLInsertedOnce(t *testing.T) {
	j := &journal{}
	doc := parse(t, `<html><head></head><body></body></html>`)
	shared := func(d *manifest.Adapter) {
		d.Bundle = assets.Bundle{Styles: []string{"https://cdn/shared.css"}, Scripts: []string{"https://cdn/shared.js"}}
	}
	o := New(doc, []*registry.Descriptor{
		descriptor("A", "", &fakeAdapter{name: "A", j: j, detected: true}, shared),
		descriptor("B", "", &fakeAdapter{name: "B", j: j, detected: true}, shared),
	}, WithFetcher(scriptRecorder{j: j}), WithFeatures())

	_, err := o.Run(context.Background())
	require.NoError(t, err)

	scripts, err := doc.QueryAll(`script[src="https://cdn/shared.js"]`)
	require.NoError(t, err)
	assert.Len(t, scripts, 1)
	links, err := doc.QueryAll(`link[href="https://cdn/shared.css"]`)
	require.NoError(t, err)
	assert.Len(t, links, 1)
	assert.Len(t, o.Runtime().Assets.Attempted(), 2)
}

func TestRun_RenderOncePerElementWithDistinctAutoIDs(t *testing.T) {
	j := &journal{}
	doc := parse(t, `<body>
<div class="v"></div>
<div class="v"></div>
<div class="v" id="loom-viz-2"></div>
<div class="v"></div>
</body>`)
	a := &fakeAdapter{name: "A", j: j, detected: true}
	o := New(doc, []*registry.Descriptor{descriptor("A", ".v", a)}, WithFeatures())

	report, err := o.Run(context.Background())
	require.NoError(t, err)

	ids := report.Adapters[0].Instances
	require.Len(t, ids, 4)
	assert.Equal(t, []string{"loom-viz-1", "loom-viz-3", "loom-viz-2", "loom-viz-4"}, ids, "ids already on the page are skipped")

	renders := 0
	for _, e := range j.all() {
		if strings.HasPrefix(e, "A:render:") {
			renders++
		}
	}
	assert.Equal(t, 4, renders)

	entry, ok := o.Runtime().Instances.Get(context.Background(), "loom-viz-3")
	require.True(t, ok)
	assert.Equal(t, "instance-of-loom-viz-3", entry.Instance)
	assert.Equal(t, "A", entry.Descriptor.ID)
}

func TestRun_DuplicateElementIDKeepsFirstEntry(t *testing.T) {
	// --- Arrange ---
	j := &journal{}
	doc := parse(t, `<body><div class="v" id="dup" data-n="1"></div><div class="v" id="dup" data-n="2"></div></body>`)
	a := &fakeAdapter{name: "A", j: j, detected: true}
	var logs bytes.Buffer
	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
	o := New(doc, []*registry.Descriptor{descriptor("A", ".v", a)}, WithFeatures())

	// --- Act ---
	report, err := o.Run(ctx)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{"A:detect", "A:init", "A:render:dup", "A:render:dup"}, j.all())
	assert.Equal(t, []string{"dup"}, report.Adapters[0].Instances)
	assert.Empty(t, report.Diagnostics)
	assert.Empty(t, report.Failures)
	assert.NotContains(t, logs.String(), "level=WARN")

	entry, ok := o.Runtime().Instances.Get(ctx, "dup")
	require.True(t, ok)
	n, _ := entry.Element.Attr("data-n")
	assert.Equal(t, "1", n)
}

func TestRun_ElementsInsertedDuringRenderAreNotPickedUp(t *testing.T) {
	doc := parse(t, `<body><div class="v" id="first"></div></body>`)
	inserter := &insertingRenderer{}
	o := New(doc, []*registry.Descriptor{descriptor("A", ".v", inserter, func(d *manifest.Adapter) {
		d.Detect.Selectors = []string{".v"}
	})}, WithFeatures())

	report, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"first"}, report.Adapters[0].Instances)
	assert.Equal(t, 1, inserter.calls)
	assert.True(t, doc.Exists("#late"))
}

type insertingRenderer struct{ calls int }

func (r *insertingRenderer) Render(_ context.Context, el *dom.Element, _ viz.Options) (viz.Instance, error) {
	r.calls++
	late := el.Document().CreateElement("div")
	late.SetAttr("class", "v")
	late.SetID("late")
	el.Document().Body().AppendChild(late)
	return nil, nil
}

func TestRun_Options(t *testing.T) {
	// --- Arrange ---
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	j := &journal{}
	doc := parse(t, `<body>
<div class="v" id="good" data-options='{"a":1}'></div>
<div class="v" id="bad" data-options='{"a":}'></div>
<div class="v" id="array" data-options='[1,2]'></div>
<div class="v" id="none"></div>
</body>`)
	a := &fakeAdapter{name: "A", j: j, detected: true}
	o := New(doc, []*registry.Descriptor{descriptor("A", ".v", a)}, WithFeatures())

	// --- Act ---
	report, err := o.Run(ctx)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, viz.Options{"a": float64(1)}, a.opts["good"])
	assert.Equal(t, viz.Options{}, a.opts["bad"])
	assert.Equal(t, viz.Options{}, a.opts["array"])
	assert.Equal(t, viz.Options{}, a.opts["none"])
	assert.Len(t, report.Adapters[0].Instances, 4, "the loop is never aborted")

	require.Len(t, report.Diagnostics, 2)
	assert.Equal(t, "bad", report.Diagnostics[0].Element)
	assert.Equal(t, PhaseOptions, report.Diagnostics[0].Phase)
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "Invalid data-options JSON")
}

func TestRun_DefaultsMergeUnderElementOptions(t *testing.T) {
	j := &journal{}
	doc := parse(t, `<body><div class="v" id="m" data-options='{"zoom": 5}'></div></body>`)
	a := &fakeAdapter{name: "A", j: j, detected: true}
	o := New(doc, []*registry.Descriptor{descriptor("A", ".v", a, func(d *manifest.Adapter) {
		d.Options = map[string]any{"zoom": float64(13), "tiles": "osm"}
	})}, WithFeatures())

	_, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, viz.Options{"zoom": float64(5), "tiles": "osm"}, a.opts["m"])
}

func TestRun_FailureIsolation(t *testing.T) {
	// --- Arrange ---
	j := &journal{}
	doc := parse(t, `<body>
<div class="a" id="a1"></div><div class="a" id="a2"></div><div class="a" id="a3"></div>
<div class="b" id="b1"></div>
<div class="c" id="c1"></div>
</body>`)
	a := &fakeAdapter{name: "A", j: j, detected: true, renderErr: map[string]error{"a1": errors.New("no canvas")}, panicOn: "a2"}
	b := &fakeAdapter{name: "B", j: j, detected: true, initErr: errors.New("library missing")}
	c := &fakeAdapter{name: "C", j: j, detected: true}
	o := New(doc, []*registry.Descriptor{
		descriptor("A", ".a", a),
		descriptor("B", ".b", b),
		descriptor("C", ".c", c),
	}, WithFeatures())

	// --- Act ---
	var report *Report
	var err error
	require.NotPanics(t, func() { report, err = o.Run(context.Background()) })

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{"a3"}, report.Adapters[0].Instances)
	assert.Equal(t, instances.Initializing, report.Adapters[1].State)
	assert.Empty(t, report.Adapters[1].Instances)
	assert.Equal(t, []string{"c1"}, report.Adapters[2].Instances)

	require.Len(t, report.Failures, 3)
	assert.Equal(t, Failure{Adapter: "A", Element: "a1", Phase: PhaseRender, Err: errors.New("no canvas")}.Error(), report.Failures[0].Error())
	assert.Equal(t, "a2", report.Failures[1].Element)
	assert.Contains(t, report.Failures[1].Err.Error(), "panic")
	assert.Equal(t, PhaseInit, report.Failures[2].Phase)
	assert.NotContains(t, j.all(), "B:render:b1")
}

func TestRun_PanickingDetectIsNotDetected(t *testing.T) {
	doc := parse(t, `<body><div class="v"></div></body>`)
	o := New(doc, []*registry.Descriptor{descriptor("P", ".v", panicDetector{})}, WithFeatures())

	report, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Adapters[0].Detected)
}

type panicDetector struct{}

func (panicDetector) Detect(*viz.DetectContext) bool { panic("bad predicate") }

func TestRun_ContentRootIsPassedToDetection(t *testing.T) {
	doc := parse(t, `<body><nav>$</nav><article>plain text</article></body>`)
	o := New(doc, []*registry.Descriptor{
		descriptor("math", "", struct{}{}, func(d *manifest.Adapter) { d.Detect.Content = []string{"$"} }),
		descriptor("words", "", struct{}{}, func(d *manifest.Adapter) { d.Detect.Content = []string{"plain"} }),
	}, WithFeatures())

	report, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"words"}, report.Detected(), "only the content root is scanned")
}

func TestRun_Twice(t *testing.T) {
	o := New(parse(t, `<body></body>`), nil, WithFeatures())
	_, err := o.Run(context.Background())
	require.NoError(t, err)
	_, err = o.Run(context.Background())
	require.ErrorIs(t, err, ErrAlreadyRan)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := New(parse(t, `<body></body>`), []*registry.Descriptor{descriptor("A", "", &fakeAdapter{name: "A", j: &journal{}})}, WithFeatures())

	_, err := o.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NoError(t, o.Wait(), "Wait never blocks after an interrupted run")
}

func TestRun_AppliesFeatures(t *testing.T) {
	doc := parse(t, `<body><main class="post-main"><div class="gh-content"><pre><code>x</code></pre></div></main></body>`)
	o := New(doc, nil)

	report, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"progress-bar": 1, "copy-buttons": 1}, report.Features)
}

func TestRun_WiresBridgeToStepSource(t *testing.T) {
	// --- Arrange ---
	j := &journal{}
	doc := parse(t, `<body>
<div class="v" id="foo"></div>
<div class="s" id="static"></div>
<div class="story-step" id="step" data-update='{"foo": {"x": 1}, "static": {"y": 2}, "ghost": {}}'></div>
</body>`)
	a := &fakeAdapter{name: "A", j: j, detected: true}
	emitter := narrative.NewEmitter()
	o := New(doc, []*registry.Descriptor{
		descriptor("A", ".v", a),
		descriptor("S", ".s", renderOnly{j: j}, func(d *manifest.Adapter) { d.Detect.Selectors = []string{".s"} }),
	}, WithStepSource(emitter), WithFeatures())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Act ---
	_, err := o.Run(ctx)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return emitter.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	emitter.Emit(ctx, narrative.StepNotification{Element: doc.ElementByID("step"), Step: "0", Direction: narrative.DirectionDown})

	// --- Assert ---
	require.Len(t, a.updates, 1)
	assert.Equal(t, viz.Payload{"x": float64(1)}, a.updates[0])
	assert.Contains(t, j.all(), "A:update:foo:instance-of-foo")

	cancel()
	select {
	case err := <-waitAsync(o):
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("bridge did not stop after cancel")
	}
}

func waitAsync(o *Orchestrator) <-chan error {
	ch := make(chan error, 1)
	go func() { ch <- o.Wait() }()
	return ch
}
