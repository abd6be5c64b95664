// Package manifest parses adapter manifests.
//
// A manifest is an HCL file with one or more `adapter` blocks. Each block is
// the declarative half of an adapter descriptor: how to detect that the page
// needs it, which stylesheets and scripts it depends on, which elements it
// mounts on, and which registered Go handler implements its lifecycle.
//
//	adapter "leaflet" {
//	  handler  = "leaflet"
//	  selector = "[data-leaflet]"
//
//	  detect {
//	    flags     = ["tag-hash-leaflet"]
//	    selectors = ["[data-leaflet]"]
//	  }
//
//	  cdn {
//	    styles  = ["https://unpkg.com/leaflet@1.9/dist/leaflet.css"]
//	    scripts = ["https://unpkg.com/leaflet@1.9/dist/leaflet.js"]
//	  }
//
//	  options = { tiles = "osm" }
//	}
//
// Block order is significant: it becomes the detection and bootstrap order.
package manifest
