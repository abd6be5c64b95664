// Package registry provides the central "glue" for the adapter system.
//
// The Registry stores the mapping between the handler names used in adapter
// manifests (e.g. handler = "echarts") and the compiled Go values that
// implement them. Each manifest block joined with its handler becomes a
// Descriptor; the ordered list of descriptors is the catalog the orchestrator
// walks.
//
// During application startup, the registry is populated and then validated to
// ensure that the Go code and the manifests are in sync, preventing a wide
// class of runtime errors (unknown handlers, renderers without selectors,
// invalid selectors, adapters that can never be detected).
package registry
