// Package orchestrator runs the bootstrap pass over one page.
//
// For each descriptor, in catalog order, the orchestrator detects, loads the
// asset bundle, runs the page-wide Init once, and renders every element the
// descriptor's selector matches at that moment. One descriptor finishes
// completely before the next one is even detected. Then the page-wide
// features are applied and the narrative bridge is wired to the step source.
//
// Nothing that goes wrong inside an adapter is fatal: failures are logged,
// recorded in the Report, and the pass moves on.
package orchestrator
