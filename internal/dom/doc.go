// Package dom provides the in-memory page model the runtime operates on.
//
// A Document wraps a parsed golang.org/x/net/html tree and exposes a small,
// DOM-like API (selectors, attributes, classes, text and tree edits) that
// adapters and the orchestrator share. Every exported operation takes the
// document lock, so a single call is atomic with respect to other goroutines
// (for example the narrative bridge applying updates while bootstrap is still
// rendering later adapters). Sequences of calls are not atomic.
package dom
