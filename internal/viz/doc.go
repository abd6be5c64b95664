// Package viz defines the adapter contract shared by the runtime and every
// visualization module.
//
// An adapter handler is any Go value registered under a name. What it can do
// is discovered through capability interfaces rather than by calling
// arbitrary functions:
//
//   - Detector    decides whether the adapter is needed on a page
//   - Initializer runs page-wide setup at most once per page
//   - Renderer    mounts a visualization on one matched element
//   - Updater     applies a partial update to a mounted instance
//
// A handler may implement any subset. Detection can also be declared in the
// adapter manifest, in which case a handler without Detector is still valid.
//
// Options and update payloads stay untyped (map[string]any) at this
// boundary; their schema belongs to each adapter.
package viz
