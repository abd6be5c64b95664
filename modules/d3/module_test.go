package d3

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/loom/internal/ctxlog"
	"github.com/vk/loom/internal/dom"
	"github.com/vk/loom/internal/viz"
)

func mount(t *testing.T, kind string, opts viz.Options) (*Handler, *dom.Element, viz.Instance) {
	t.Helper()
	doc, err := dom.ParseString(`<div id="c" data-d3="` + kind + `"></div>`)
	require.NoError(t, err)
	el := doc.ElementByID("c")
	h := NewHandler()
	inst, err := h.Render(context.Background(), el, opts)
	require.NoError(t, err)
	return h, el, inst
}

func TestBarChart_RenderAndUpdate(t *testing.T) {
	// --- Arrange ---
	data := []any{
		map[string]any{"label": "Apples", "value": 42.0},
		map[string]any{"label": "Pears", "value": 21.0},
	}

	// --- Act ---
	h, el, inst := mount(t, "bar", viz.Options{"data": data, "color": "#123456"})

	// --- Assert ---
	require.NotNil(t, inst)
	bars, err := el.QueryAll("rect.bar")
	require.NoError(t, err)
	require.Len(t, bars, 2)
	w0, _ := bars[0].Attr("width")
	w1, _ := bars[1].Attr("width")
	assert.Equal(t, "496", w0, "the largest value spans the inner width")
	assert.Equal(t, "248", w1)
	fill, _ := bars[0].Attr("fill")
	assert.Equal(t, "#123456", fill)

	labels, err := el.QueryAll(".bar-label")
	require.NoError(t, err)
	assert.Equal(t, "42", labels[0].Text())

	// An update with three rows redraws three bars.
	err = h.Update(context.Background(), el, viz.Payload{"data": append(data, map[string]any{"label": "Plums", "value": 7.0})}, inst)
	require.NoError(t, err)
	bars, err = el.QueryAll("rect.bar")
	require.NoError(t, err)
	assert.Len(t, bars, 3)

	// A payload of the wrong shape leaves the chart as it was.
	require.NoError(t, h.Update(context.Background(), el, viz.Payload{"data": "nope"}, inst))
	bars, err = el.QueryAll("rect.bar")
	require.NoError(t, err)
	assert.Len(t, bars, 3)
}

func TestLineChart(t *testing.T) {
	_, el, _ := mount(t, "line", viz.Options{"data": []any{
		map[string]any{"x": 0.0, "value": 0.0},
		map[string]any{"x": 10.0, "value": 5.0},
	}})

	path, err := el.Query("path.line")
	require.NoError(t, err)
	require.NotNil(t, path)
	d, _ := path.Attr("d")
	assert.Equal(t, "M0,264L564,0", d)
}

func TestForceGraph_IsStatic(t *testing.T) {
	h, el, inst := mount(t, "force", viz.Options{"data": map[string]any{
		"nodes": []any{map[string]any{"id": "a"}, map[string]any{"id": "b"}, map[string]any{"id": "c"}},
		"links": []any{map[string]any{"source": "a", "target": "b"}, map[string]any{"source": "a", "target": "zz"}},
	}})

	circles, err := el.QueryAll("circle")
	require.NoError(t, err)
	assert.Len(t, circles, 3)
	lines, err := el.QueryAll("line")
	require.NoError(t, err)
	assert.Len(t, lines, 1, "links to unknown nodes are dropped")

	require.NoError(t, h.Update(context.Background(), el, viz.Payload{"data": map[string]any{"nodes": []any{}}}, inst))
	circles, err = el.QueryAll("circle")
	require.NoError(t, err)
	assert.Len(t, circles, 3)
}

func TestRender_UnknownKindWarns(t *testing.T) {
	var buf bytes.Buffer
	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))
	doc, err := dom.ParseString(`<div id="c" data-d3="scatter"></div>`)
	require.NoError(t, err)

	inst, err := NewHandler().Render(ctx, doc.ElementByID("c"), nil)

	require.NoError(t, err)
	assert.Nil(t, inst)
	assert.Contains(t, buf.String(), "Unknown d3 chart type")
	assert.Contains(t, buf.String(), "bar, force, line")
}

func TestRegisterChart(t *testing.T) {
	h := NewHandler()
	assert.Panics(t, func() { h.RegisterChart("bar", BarChart) })

	var got any
	h.RegisterChart("scatter", func(el *dom.Element, data any, opts viz.Options) (Chart, error) {
		got = data
		return nil, nil
	})
	doc, err := dom.ParseString(`<div id="c" data-d3="scatter"></div>`)
	require.NoError(t, err)

	_, err = h.Render(context.Background(), doc.ElementByID("c"), viz.Options{})
	require.NoError(t, err)
	assert.Equal(t, []any{}, got, "missing data defaults to an empty list")
}
