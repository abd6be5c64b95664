// Package leaflet mounts tile maps on [data-leaflet] elements and moves them
// in response to narrative steps.
package leaflet

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/vk/loom/internal/ctxlog"
	"github.com/vk/loom/internal/dom"
	"github.com/vk/loom/internal/viz"
)

// HandlerName is the handler name used by the default catalog.
const HandlerName = "leaflet"

// Fallback camera used when neither attributes nor options set one.
const (
	DefaultLat  = 51.505
	DefaultLng  = -0.09
	DefaultZoom = 13
	DefaultTile = "osm"
)

// flyDuration is the animated fly-to duration in seconds.
const flyDuration = 1.5

// TilePreset is a named tile layer.
type TilePreset struct {
	URL         string
	Attribution string
	MaxZoom     int
}

const (
	osmAttr   = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a>`
	cartoAttr = osmAttr + ` &copy; <a href="https://carto.com/attributions">CARTO</a>`
)

// TilePresets are the tile styles authors can pick with data-tiles.
var TilePresets = map[string]TilePreset{
	"osm": {
		URL:         "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: osmAttr,
		MaxZoom:     19,
	},
	"carto": {
		URL:         "https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}{r}.png",
		Attribution: cartoAttr,
		MaxZoom:     20,
	},
	"carto-dark": {
		URL:         "https://{s}.basemaps.cartocdn.com/dark_all/{z}/{x}/{y}{r}.png",
		Attribution: cartoAttr,
		MaxZoom:     20,
	},
	"stadia": {
		URL:         "https://tiles.stadiamaps.com/tiles/alidade_smooth/{z}/{x}/{y}{r}.png",
		Attribution: `&copy; <a href="https://stadiamaps.com/">Stadia Maps</a>, ` + osmAttr,
		MaxZoom:     20,
	},
}

// Marker is one entry of data-markers.
type Marker struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Label string  `json:"label,omitempty"`
}

// Move records how the camera last changed.
type Move struct {
	Kind     string // "flyTo" or "setZoom"
	Duration float64
	Animate  bool
}

// Map is a mounted map.
type Map struct {
	mu       sync.Mutex
	el       *dom.Element
	lat, lng float64
	zoom     float64
	layer    string
	lastMove Move
}

// View returns the current camera.
func (m *Map) View() (lat, lng, zoom float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lat, m.lng, m.zoom
}

// Layer returns the key of the active tile preset.
func (m *Map) Layer() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.layer
}

// LastMove returns the most recent camera change.
func (m *Map) LastMove() Move {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastMove
}

func (m *Map) sync() {
	m.el.SetAttr("data-leaflet-center", strconv.FormatFloat(m.lat, 'f', -1, 64)+","+strconv.FormatFloat(m.lng, 'f', -1, 64))
	m.el.SetAttr("data-leaflet-zoom", strconv.FormatFloat(m.zoom, 'f', -1, 64))
}

// Module implements the viz.Module interface for this package.
type Module struct{}

// Register registers the handler with the registry.
func (m *Module) Register(h viz.Handlers) {
	h.RegisterHandler(HandlerName, &Handler{})
}

// Handler renders and updates leaflet maps.
type Handler struct{}

// Render reads the camera from data-lat, data-lng and data-zoom, falling back
// to options and then to the defaults. The tile layer follows the page theme.
func (h *Handler) Render(ctx context.Context, el *dom.Element, opts viz.Options) (viz.Instance, error) {
	logger := ctxlog.FromContext(ctx).With("handler", HandlerName, "element", el.ID())

	m := &Map{
		el:   el,
		lat:  number(el, "data-lat", opts, "lat", DefaultLat),
		lng:  number(el, "data-lng", opts, "lng", DefaultLng),
		zoom: number(el, "data-zoom", opts, "zoom", DefaultZoom),
	}

	tileKey, ok := el.Attr("data-tiles")
	if !ok {
		if s, ok := viz.String(opts, "tiles"); ok {
			tileKey = s
		} else {
			tileKey = DefaultTile
		}
	}
	if _, known := TilePresets[tileKey]; !known {
		logger.Warn("Unknown tile preset, using the default.", "tiles", tileKey)
		tileKey = DefaultTile
	}
	darkKey, ok := el.Attr("data-tiles-dark")
	if !ok {
		darkKey = tileKey
		if tileKey == "carto" {
			darkKey = "carto-dark"
		}
	}
	if _, known := TilePresets[darkKey]; !known {
		darkKey = tileKey
	}

	m.layer = tileKey
	if root := el.Document().Root(); root != nil {
		if theme, _ := root.Attr("data-theme"); theme == "dark" {
			m.layer = darkKey
		}
	}
	preset := TilePresets[m.layer]
	el.AddClass("leaflet-container")
	el.SetAttr("data-tile-url", preset.URL)
	el.SetAttr("data-tile-attribution", preset.Attribution)
	el.SetAttr("data-tile-max-zoom", strconv.Itoa(preset.MaxZoom))
	m.sync()

	if raw, ok := el.Attr("data-markers"); ok {
		var markers []Marker
		if err := json.Unmarshal([]byte(raw), &markers); err != nil {
			logger.Warn("Invalid data-markers JSON, rendering without markers.", "error", err)
		} else {
			for _, mk := range markers {
				pin := el.Document().CreateElement("div")
				pin.AddClass("leaflet-marker")
				pin.SetAttr("data-lat", strconv.FormatFloat(mk.Lat, 'f', -1, 64))
				pin.SetAttr("data-lng", strconv.FormatFloat(mk.Lng, 'f', -1, 64))
				if mk.Label != "" {
					pin.SetAttr("title", mk.Label)
				}
				el.AppendChild(pin)
			}
		}
	}
	return m, nil
}

// Update flies to "lat"/"lng" (keeping the zoom unless "zoom" is given), or
// only zooms when the payload has just "zoom". "animate" defaults to true.
func (h *Handler) Update(ctx context.Context, el *dom.Element, payload viz.Payload, inst viz.Instance) error {
	m, ok := inst.(*Map)
	if !ok || m == nil {
		return nil
	}
	animate := true
	if a, ok := viz.Bool(payload, "animate"); ok {
		animate = a
	}
	lat, hasLat := viz.Number(payload, "lat")
	lng, hasLng := viz.Number(payload, "lng")
	zoom, hasZoom := viz.Number(payload, "zoom")

	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case hasLat && hasLng:
		m.lat, m.lng = lat, lng
		if hasZoom {
			m.zoom = zoom
		}
		m.lastMove = Move{Kind: "flyTo", Animate: animate}
		if animate {
			m.lastMove.Duration = flyDuration
		}
	case hasZoom:
		m.zoom = zoom
		m.lastMove = Move{Kind: "setZoom", Animate: animate}
	default:
		return nil
	}
	m.sync()
	return nil
}

// number resolves a numeric setting: attribute first, then option, then def.
func number(el *dom.Element, attr string, opts viz.Options, key string, def float64) float64 {
	if raw, ok := el.Attr(attr); ok {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	}
	if f, ok := viz.Number(opts, key); ok {
		return f
	}
	return def
}
