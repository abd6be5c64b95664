package echarts

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/vk/loom/internal/dom"
	"github.com/vk/loom/internal/viz"
)

// RickerParams are the inputs of one Ricker orbit.
type RickerParams struct {
	R  float64
	X0 float64
	N  int
}

// DefaultRicker is the starting point of the interactive widget.
var DefaultRicker = RickerParams{R: 2.5, X0: 0.1, N: 80}

// ScrollySteps are the regimes shown by the step-driven widget, indexed by
// step: a stable fixed point, a period-2 orbit and chaos.
var ScrollySteps = []RickerParams{
	{R: 1.2, X0: 0.5, N: 80},
	{R: 2.2, X0: 0.5, N: 80},
	{R: 3.0, X0: 0.5, N: 80},
}

// RickerSeries iterates x_{n+1} = x_n * exp(r * (1 - x_n)) and returns n
// values starting with x0.
func RickerSeries(r, x0 float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	xs := make([]float64, n)
	xs[0] = x0
	for i := 1; i < n; i++ {
		xs[i] = xs[i-1] * math.Exp(r*(1-xs[i-1]))
	}
	return xs
}

// Ricker is a mounted Ricker widget: a time series chart and a phase plot
// driven by the same parameters.
type Ricker struct {
	mu       sync.Mutex
	scrolly  bool
	params   RickerParams
	ts       *Chart
	phase    *Chart
	controls map[string]*dom.Element
}

// Params returns the parameters currently plotted.
func (w *Ricker) Params() RickerParams {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.params
}

// Apply handles a step update. The scrolly widget reads "step" (or "index")
// and falls back to the first regime for unknown values; the interactive one
// takes any of "r", "x0" and "n".
func (w *Ricker) Apply(payload viz.Payload) error {
	if w.scrolly {
		return w.set(scrollyParams(payload))
	}
	p := w.Params()
	if r, ok := viz.Number(payload, "r"); ok {
		p.R = r
	}
	if x0, ok := viz.Number(payload, "x0"); ok {
		p.X0 = x0
	}
	if n, ok := viz.Number(payload, "n"); ok {
		p.N = int(n)
	}
	return w.set(clampRicker(p))
}

func (w *Ricker) set(p RickerParams) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	xs := RickerSeries(p.R, p.X0, p.N)
	if err := w.ts.SetOption(timeSeriesOption(xs), true); err != nil {
		return err
	}
	if err := w.phase.SetOption(phaseOption(xs), true); err != nil {
		return err
	}
	w.params = p
	if w.controls != nil {
		w.controls["r"].SetAttr("value", fmt.Sprintf("%.2f", p.R))
		w.controls["r-val"].SetText(fmt.Sprintf("%.2f", p.R))
		w.controls["x0"].SetAttr("value", fmt.Sprintf("%.2f", p.X0))
		w.controls["x0-val"].SetText(fmt.Sprintf("%.2f", p.X0))
		w.controls["n"].SetAttr("value", fmt.Sprint(p.N))
		w.controls["n-val"].SetText(fmt.Sprint(p.N))
	}
	return nil
}

func scrollyParams(payload viz.Payload) RickerParams {
	key, ok := viz.Number(payload, "step")
	if !ok {
		key, ok = viz.Number(payload, "index")
	}
	i := int(key)
	if !ok || i < 0 || i >= len(ScrollySteps) || float64(i) != key {
		return ScrollySteps[0]
	}
	return ScrollySteps[i]
}

// clampRicker keeps parameters within the ranges of the widget's sliders.
func clampRicker(p RickerParams) RickerParams {
	p.R = math.Min(math.Max(p.R, 0), 4)
	p.X0 = math.Min(math.Max(p.X0, 0.01), 0.99)
	p.N = min(max(p.N, 10), 300)
	return p
}

const rickerControls = `<div class="ricker-controls">
<label class="ricker-label"><span>Growth rate <em>r</em></span><div class="ricker-slider-row"><input class="ricker-r" type="range" min="0" max="4" step="0.05"><strong class="ricker-r-val"></strong></div></label>
<label class="ricker-label"><span>Initial value <em>x</em>₀</span><div class="ricker-slider-row"><input class="ricker-x0" type="range" min="0.01" max="0.99" step="0.01"><strong class="ricker-x0-val"></strong></div></label>
<label class="ricker-label"><span>Iterations <em>n</em></span><div class="ricker-slider-row"><input class="ricker-n" type="range" min="10" max="300" step="5"><strong class="ricker-n-val"></strong></div></label>
</div>`

const rickerCharts = `<div class="ricker-charts"><div class="ricker-timeseries"></div><div class="ricker-phase"></div></div>`

// RenderRicker mounts the interactive widget. Options "r", "x0" and "n"
// override DefaultRicker.
func RenderRicker(ctx context.Context, el *dom.Element, opts viz.Options) (viz.Instance, error) {
	if err := el.SetInnerHTML(`<div class="ricker-widget">` + rickerControls + rickerCharts + `</div>`); err != nil {
		return nil, err
	}
	w, err := mountRicker(el, false)
	if err != nil {
		return nil, err
	}
	w.controls = make(map[string]*dom.Element)
	for _, name := range []string{"r", "r-val", "x0", "x0-val", "n", "n-val"} {
		c, err := el.Query(".ricker-" + name)
		if err != nil || c == nil {
			return nil, fmt.Errorf("ricker control %q missing", name)
		}
		w.controls[name] = c
	}

	p := DefaultRicker
	if r, ok := viz.Number(opts, "r"); ok {
		p.R = r
	}
	if x0, ok := viz.Number(opts, "x0"); ok {
		p.X0 = x0
	}
	if n, ok := viz.Number(opts, "n"); ok {
		p.N = int(n)
	}
	if err := w.set(clampRicker(p)); err != nil {
		return nil, err
	}
	return w, nil
}

// RenderRickerScrolly mounts the step-driven widget in its first regime.
func RenderRickerScrolly(ctx context.Context, el *dom.Element, opts viz.Options) (viz.Instance, error) {
	if err := el.SetInnerHTML(`<div class="ricker-widget ricker-widget--scrolly">` + rickerCharts + `</div>`); err != nil {
		return nil, err
	}
	w, err := mountRicker(el, true)
	if err != nil {
		return nil, err
	}
	if err := w.set(ScrollySteps[0]); err != nil {
		return nil, err
	}
	return w, nil
}

func mountRicker(el *dom.Element, scrolly bool) (*Ricker, error) {
	tsEl, err := el.Query(".ricker-timeseries")
	if err != nil || tsEl == nil {
		return nil, fmt.Errorf("ricker time series container missing")
	}
	phEl, err := el.Query(".ricker-phase")
	if err != nil || phEl == nil {
		return nil, fmt.Errorf("ricker phase container missing")
	}
	ts, err := NewChart(tsEl, nil)
	if err != nil {
		return nil, err
	}
	ph, err := NewChart(phEl, nil)
	if err != nil {
		return nil, err
	}
	return &Ricker{scrolly: scrolly, ts: ts, phase: ph}, nil
}

func timeSeriesOption(xs []float64) map[string]any {
	idx := make([]any, len(xs))
	data := make([]any, len(xs))
	for i, x := range xs {
		idx[i] = i
		data[i] = x
	}
	return map[string]any{
		"animation": false,
		"title":     map[string]any{"text": "Time series", "left": 0, "top": 0},
		"grid":      map[string]any{"top": 36, "right": 16, "bottom": 40, "left": 56},
		"xAxis":     map[string]any{"type": "category", "data": idx, "name": "n"},
		"yAxis":     map[string]any{"type": "value", "name": "xₙ", "min": 0},
		"series": []any{map[string]any{
			"type":       "line",
			"data":       data,
			"showSymbol": len(xs) <= 60,
			"symbolSize": 4,
			"lineStyle":  map[string]any{"width": 1.5, "color": Palette[0]},
		}},
		"tooltip": map[string]any{"trigger": "axis"},
	}
}

func phaseOption(xs []float64) map[string]any {
	var pairs []any
	maxVal := 1.5
	for i, x := range xs {
		maxVal = math.Max(maxVal, x)
		if i+1 < len(xs) {
			pairs = append(pairs, []any{x, xs[i+1]})
		}
	}
	symbol := 5
	if len(pairs) > 80 {
		symbol = 3
	}
	return map[string]any{
		"animation": false,
		"title":     map[string]any{"text": "Phase plot", "left": 0, "top": 0},
		"grid":      map[string]any{"top": 36, "right": 16, "bottom": 40, "left": 56},
		"xAxis":     map[string]any{"type": "value", "name": "xₙ", "min": 0},
		"yAxis":     map[string]any{"type": "value", "name": "xₙ₊₁", "min": 0},
		"series": []any{
			map[string]any{
				"type":       "line",
				"data":       []any{[]any{0, 0}, []any{maxVal, maxVal}},
				"showSymbol": false,
				"lineStyle":  map[string]any{"type": "dashed", "color": "#888", "width": 1},
				"silent":     true,
			},
			map[string]any{
				"type":       "scatter",
				"data":       pairs,
				"symbolSize": symbol,
				"itemStyle":  map[string]any{"color": Palette[0], "opacity": 0.65},
			},
		},
		"tooltip": map[string]any{"trigger": "item"},
	}
}
