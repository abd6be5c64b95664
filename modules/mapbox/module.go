// Package mapbox mounts vector maps on [data-map] elements. The attribute
// value may name a preset location.
package mapbox

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/vk/loom/internal/ctxlog"
	"github.com/vk/loom/internal/dom"
	"github.com/vk/loom/internal/viz"
)

const (
	// HandlerName is the handler name used by the default catalog.
	HandlerName = "mapbox"
	// DefaultStyle is used when neither data-style nor the "style" option is set.
	DefaultStyle = "mapbox://styles/mapbox/outdoors-v12"
	// DefaultExaggeration applies when data-terrain carries no usable number.
	DefaultExaggeration = 1.5
	// DefaultZoom applies when nothing else sets a zoom.
	DefaultZoom = 2
	// flyDuration is the animated fly-to duration in milliseconds.
	flyDuration = 1500
)

// Preset is a named camera position.
type Preset struct {
	Center [2]float64 // lng, lat
	Zoom   float64
}

// Presets are the locations authors can name with data-map.
var Presets = map[string]Preset{
	"calgary":   {Center: [2]float64{-114.0719, 51.0447}, Zoom: 11},
	"edmonton":  {Center: [2]float64{-113.4938, 53.5461}, Zoom: 11},
	"vancouver": {Center: [2]float64{-123.1207, 49.2827}, Zoom: 11},
	"toronto":   {Center: [2]float64{-79.3832, 43.6532}, Zoom: 11},
	"world":     {Center: [2]float64{0, 20}, Zoom: 1.5},
	"zermatt":   {Center: [2]float64{7.7491, 46.0207}, Zoom: 13},
	"findelen":  {Center: [2]float64{7.840, 46.012}, Zoom: 13},
	"gorner":    {Center: [2]float64{7.820, 45.970}, Zoom: 12},
	"chamonix":  {Center: [2]float64{6.869, 45.924}, Zoom: 12},
	"peyto":     {Center: [2]float64{-116.530, 51.715}, Zoom: 13},
	"athabasca": {Center: [2]float64{-117.245, 52.190}, Zoom: 12},
}

// Camera is the view of a map.
type Camera struct {
	Center  [2]float64
	Zoom    float64
	Pitch   float64
	Bearing float64
}

// Map is a mounted map.
type Map struct {
	mu     sync.Mutex
	el     *dom.Element
	camera Camera
	// Style is the map style URL.
	Style string
	// Terrain is the terrain exaggeration, or 0 when terrain is off.
	Terrain float64
	lastFly int
}

// Camera returns the current view.
func (m *Map) Camera() Camera {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.camera
}

// LastFlyDuration returns the duration of the last fly-to in milliseconds.
func (m *Map) LastFlyDuration() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastFly
}

func (m *Map) sync() {
	c := m.camera
	m.el.SetAttr("data-map-camera", fmt.Sprintf("%s,%s,%s,%s,%s",
		fmtNum(c.Center[0]), fmtNum(c.Center[1]), fmtNum(c.Zoom), fmtNum(c.Pitch), fmtNum(c.Bearing)))
}

// Module implements the viz.Module interface for this package.
type Module struct {
	// Token is the site-wide access token, used when an element has no
	// data-token.
	Token string
}

// Register registers the handler with the registry.
func (m *Module) Register(h viz.Handlers) {
	h.RegisterHandler(HandlerName, &Handler{Token: m.Token})
}

// Handler renders and updates maps.
type Handler struct {
	Token string
}

// Render resolves the token (data-token, then the site token) and the camera
// (data-* attributes, then options, then the preset, then defaults). Without
// a token the element shows an error placeholder and no instance is kept.
func (h *Handler) Render(ctx context.Context, el *dom.Element, opts viz.Options) (viz.Instance, error) {
	logger := ctxlog.FromContext(ctx).With("handler", HandlerName, "element", el.ID())

	if _, ok := el.Style("height"); !ok {
		el.SetStyle("height", "400px")
	}

	token, _ := el.Attr("data-token")
	if token == "" {
		token = h.Token
	}
	if token == "" {
		logger.Warn("No Mapbox access token, rendering a placeholder.")
		return nil, showError(el, "Map unavailable: no Mapbox access token found.<br>"+
			"Set <code>LOOM_MAPBOX_TOKEN</code> or <code>data-token</code> on the element.")
	}

	key, _ := el.Attr("data-map")
	preset := Presets[key]

	cam := Camera{Zoom: DefaultZoom}
	switch {
	case parseCenter(attr(el, "data-center"), &cam.Center):
	case optCenter(opts, &cam.Center):
	default:
		cam.Center = preset.Center
	}
	if preset.Zoom != 0 {
		cam.Zoom = preset.Zoom
	}
	cam.Zoom = number(el, "data-zoom", opts, "zoom", cam.Zoom)
	cam.Pitch = number(el, "data-pitch", opts, "pitch", 0)
	cam.Bearing = number(el, "data-bearing", opts, "bearing", 0)

	m := &Map{el: el, camera: cam, Style: DefaultStyle}
	if s, ok := el.Attr("data-style"); ok {
		m.Style = s
	} else if s, ok := viz.String(opts, "style"); ok {
		m.Style = s
	}
	if raw, ok := el.Attr("data-terrain"); ok {
		m.Terrain = DefaultExaggeration
		if f, err := strconv.ParseFloat(raw, 64); err == nil && f != 0 {
			m.Terrain = f
		}
		el.SetAttr("data-terrain-exaggeration", fmtNum(m.Terrain))
	}

	el.SetAttr("data-map-style", m.Style)
	m.sync()
	return m, nil
}

// Update flies to any of "center" ([lng, lat]), "zoom", "pitch" and
// "bearing". "animate" defaults to true.
func (h *Handler) Update(ctx context.Context, el *dom.Element, payload viz.Payload, inst viz.Instance) error {
	m, ok := inst.(*Map)
	if !ok || m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.camera
	changed := optCenter(viz.Options(payload), &next.Center)
	if z, ok := viz.Number(payload, "zoom"); ok {
		next.Zoom, changed = z, true
	}
	if p, ok := viz.Number(payload, "pitch"); ok {
		next.Pitch, changed = p, true
	}
	if b, ok := viz.Number(payload, "bearing"); ok {
		next.Bearing, changed = b, true
	}
	if !changed {
		return nil
	}

	m.lastFly = flyDuration
	if animate, ok := viz.Bool(payload, "animate"); ok && !animate {
		m.lastFly = 0
	}
	m.camera = next
	m.sync()
	return nil
}

// showError replaces the element's content with a centered message.
func showError(el *dom.Element, message string) error {
	el.SetStyle("display", "flex")
	el.SetStyle("align-items", "center")
	el.SetStyle("justify-content", "center")
	el.SetStyle("background", "var(--bg3, #EEECEA)")
	el.SetStyle("border-radius", "var(--radius, 12px)")
	return el.SetInnerHTML(`<p class="map-error" style="color:var(--text-3,#9C9890);font-size:0.875rem;padding:16px;text-align:center;">` + message + `</p>`)
}

// parseCenter reads "lng,lat".
func parseCenter(s string, out *[2]float64) bool {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return false
	}
	lng, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lat, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return false
	}
	*out = [2]float64{lng, lat}
	return true
}

// optCenter reads a [lng, lat] array.
func optCenter(opts viz.Options, out *[2]float64) bool {
	arr, ok := opts["center"].([]any)
	if !ok || len(arr) != 2 {
		return false
	}
	pair := map[string]any{"lng": arr[0], "lat": arr[1]}
	lng, ok1 := viz.Number(pair, "lng")
	lat, ok2 := viz.Number(pair, "lat")
	if !ok1 || !ok2 {
		return false
	}
	*out = [2]float64{lng, lat}
	return true
}

func number(el *dom.Element, name string, opts viz.Options, key string, def float64) float64 {
	if raw, ok := el.Attr(name); ok {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	}
	if f, ok := viz.Number(opts, key); ok {
		return f
	}
	return def
}

func attr(el *dom.Element, name string) string {
	v, _ := el.Attr(name)
	return v
}

func fmtNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
