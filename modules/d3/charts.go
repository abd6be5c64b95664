package d3

import (
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/vk/loom/internal/dom"
	"github.com/vk/loom/internal/viz"
)

const (
	defaultWidth  = 640
	defaultHeight = 320
	defaultColor  = "#F0177A"
	bandPadding   = 0.28
)

type margin struct{ top, right, bottom, left float64 }

// drawFunc returns the SVG markup for data, or false when data has the wrong
// shape for the chart.
type drawFunc func(data any, g geometry, color string) (string, bool)

type geometry struct {
	width, height  float64
	innerW, innerH float64
	m              margin
}

// SVGChart redraws its element's markup from data.
type SVGChart struct {
	mu     sync.Mutex
	el     *dom.Element
	geo    geometry
	color  string
	draw   drawFunc
	static bool
	data   any
}

// Data returns the data last drawn.
func (c *SVGChart) Data() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data
}

// Update redraws with data. Data of the wrong shape is ignored, as is any
// update to a static chart.
func (c *SVGChart) Update(data any) error {
	if c.static {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.redraw(data)
}

func (c *SVGChart) redraw(data any) error {
	markup, ok := c.draw(data, c.geo, c.color)
	if !ok {
		return nil
	}
	if err := c.el.SetInnerHTML(markup); err != nil {
		return err
	}
	c.data = data
	return nil
}

func newSVGChart(el *dom.Element, data any, opts viz.Options, m margin, draw drawFunc, static bool) (Chart, error) {
	w, h := float64(defaultWidth), float64(defaultHeight)
	if v, ok := viz.Number(opts, "width"); ok && v > 0 {
		w = v
	}
	if v, ok := viz.Number(opts, "height"); ok && v > 0 {
		h = v
	}
	color := defaultColor
	if s, ok := viz.String(opts, "color"); ok && s != "" {
		color = s
	}
	c := &SVGChart{
		el:     el,
		geo:    geometry{width: w, height: h, innerW: w - m.left - m.right, innerH: h - m.top - m.bottom, m: m},
		color:  color,
		draw:   draw,
		static: static,
	}
	if err := c.redraw(data); err != nil {
		return nil, err
	}
	return c, nil
}

// BarChart draws horizontal bars from [{label, value}].
func BarChart(el *dom.Element, data any, opts viz.Options) (Chart, error) {
	return newSVGChart(el, data, opts, margin{16, 24, 40, 120}, drawBar, false)
}

// LineChart draws a line from [{x, value}].
func LineChart(el *dom.Element, data any, opts viz.Options) (Chart, error) {
	return newSVGChart(el, data, opts, margin{16, 24, 40, 52}, drawLine, false)
}

// ForceGraph lays out {nodes: [{id}], links: [{source, target}]}. It is
// drawn once; updates are ignored.
func ForceGraph(el *dom.Element, data any, opts viz.Options) (Chart, error) {
	return newSVGChart(el, data, opts, margin{}, drawForce, true)
}

func drawBar(data any, g geometry, color string) (string, bool) {
	rows, ok := data.([]any)
	if !ok {
		return "", false
	}
	labels := make([]string, 0, len(rows))
	values := make([]float64, 0, len(rows))
	for _, r := range rows {
		m, _ := r.(map[string]any)
		v, _ := viz.Number(m, "value")
		labels = append(labels, fmt.Sprint(m["label"]))
		values = append(values, v)
	}
	maxV := maxOr(values, 1)

	n := float64(len(rows))
	step := g.innerH / math.Max(1, n+bandPadding)
	band := step * (1 - bandPadding)

	var sb strings.Builder
	open(&sb, g)
	for i, v := range values {
		y := step*bandPadding + float64(i)*step
		w := v / maxV * g.innerW
		fmt.Fprintf(&sb, `<text class="tick" x="-6" y="%s" dy="0.35em" text-anchor="end">%s</text>`, num(y+band/2), html.EscapeString(labels[i]))
		fmt.Fprintf(&sb, `<rect class="bar" x="0" y="%s" height="%s" width="%s" fill="%s" rx="3"></rect>`, num(y), num(band), num(w), html.EscapeString(color))
		fmt.Fprintf(&sb, `<text class="bar-label" x="%s" y="%s" dy="0.35em" font-size="12" fill="var(--text-2, #6B6860)">%s</text>`, num(w+6), num(y+band/2), strconv.FormatFloat(v, 'f', -1, 64))
	}
	sb.WriteString(`</g></svg>`)
	return sb.String(), true
}

func drawLine(data any, g geometry, color string) (string, bool) {
	rows, ok := data.([]any)
	if !ok {
		return "", false
	}
	xs := make([]float64, 0, len(rows))
	ys := make([]float64, 0, len(rows))
	for _, r := range rows {
		m, _ := r.(map[string]any)
		x, _ := viz.Number(m, "x")
		y, _ := viz.Number(m, "value")
		xs = append(xs, x)
		ys = append(ys, y)
	}
	minX, maxX := extent(xs)
	maxY := maxOr(ys, 1)

	var path strings.Builder
	for i := range xs {
		px := 0.0
		if maxX > minX {
			px = (xs[i] - minX) / (maxX - minX) * g.innerW
		}
		py := g.innerH - ys[i]/maxY*g.innerH
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(&path, "%s%s,%s", cmd, num(px), num(py))
	}

	var sb strings.Builder
	open(&sb, g)
	fmt.Fprintf(&sb, `<path class="line" fill="none" stroke="%s" stroke-width="2.5" d="%s"></path>`, html.EscapeString(color), path.String())
	sb.WriteString(`</g></svg>`)
	return sb.String(), true
}

// drawForce places nodes evenly on a circle around the center; links are
// straight lines between them.
func drawForce(data any, g geometry, color string) (string, bool) {
	graph, ok := data.(map[string]any)
	if !ok {
		return "", false
	}
	nodes, ok := graph["nodes"].([]any)
	if !ok {
		return "", false
	}
	links, _ := graph["links"].([]any)

	cx, cy := g.width/2, g.height/2
	radius := math.Min(g.width, g.height) / 3
	pos := make(map[string][2]float64, len(nodes))
	ids := make([]string, 0, len(nodes))
	for i, n := range nodes {
		m, _ := n.(map[string]any)
		id := fmt.Sprint(m["id"])
		angle := 2 * math.Pi * float64(i) / math.Max(1, float64(len(nodes)))
		pos[id] = [2]float64{cx + radius*math.Cos(angle), cy + radius*math.Sin(angle)}
		ids = append(ids, id)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg width="%s" height="%s" viewBox="0 0 %s %s" aria-hidden="true"><g class="links">`,
		num(g.width), num(g.height), num(g.width), num(g.height))
	for _, l := range links {
		m, _ := l.(map[string]any)
		src, okS := pos[fmt.Sprint(m["source"])]
		dst, okT := pos[fmt.Sprint(m["target"])]
		if !okS || !okT {
			continue
		}
		fmt.Fprintf(&sb, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="var(--border, #ccc)" stroke-width="1.5"></line>`,
			num(src[0]), num(src[1]), num(dst[0]), num(dst[1]))
	}
	sb.WriteString(`</g><g class="nodes">`)
	for _, id := range ids {
		p := pos[id]
		fmt.Fprintf(&sb, `<circle r="7" cx="%s" cy="%s" fill="%s"><title>%s</title></circle>`,
			num(p[0]), num(p[1]), html.EscapeString(color), html.EscapeString(id))
	}
	sb.WriteString(`</g></svg>`)
	return sb.String(), true
}

func open(sb *strings.Builder, g geometry) {
	fmt.Fprintf(sb, `<svg width="%s" height="%s" viewBox="0 0 %s %s" aria-hidden="true"><g transform="translate(%s,%s)">`,
		num(g.width), num(g.height), num(g.width), num(g.height), num(g.m.left), num(g.m.top))
}

func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

func maxOr(vs []float64, def float64) float64 {
	m := 0.0
	for _, v := range vs {
		m = math.Max(m, v)
	}
	if m <= 0 {
		return def
	}
	return m
}

func extent(vs []float64) (lo, hi float64) {
	if len(vs) == 0 {
		return 0, 0
	}
	lo, hi = vs[0], vs[0]
	for _, v := range vs[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
