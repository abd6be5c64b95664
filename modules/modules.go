// Package modules bundles the built-in adapter handlers and the default
// catalog that declares them.
package modules

import (
	_ "embed"

	"github.com/vk/loom/internal/viz"
	"github.com/vk/loom/modules/d3"
	"github.com/vk/loom/modules/echarts"
	"github.com/vk/loom/modules/katex"
	"github.com/vk/loom/modules/leaflet"
	"github.com/vk/loom/modules/mapbox"
	"github.com/vk/loom/modules/mermaid"
)

// CatalogFile is the name the embedded catalog is parsed under.
const CatalogFile = "catalog.hcl"

// Catalog is the default adapter manifest.
//
//go:embed catalog.hcl
var Catalog []byte

// Core returns every module compiled into the binary. mapboxToken is the
// site-wide token handed to the mapbox handler.
func Core(mapboxToken string) []viz.Module {
	return []viz.Module{
		&katex.Module{},
		&mermaid.Module{},
		&echarts.Module{},
		&leaflet.Module{},
		&d3.Module{},
		&mapbox.Module{Token: mapboxToken},
	}
}
