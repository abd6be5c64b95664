// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/vk/loom/internal/assets"
	"github.com/vk/loom/internal/ctxlog"
	"github.com/vk/loom/internal/dom"
	"github.com/vk/loom/internal/features"
	"github.com/vk/loom/internal/instances"
	"github.com/vk/loom/internal/narrative"
	"github.com/vk/loom/internal/registry"
	"github.com/vk/loom/internal/viz"
)

const (
	// DefaultContentSelector locates the main content root used by detection.
	DefaultContentSelector = ".gh-content, .essay-content, .post-content, article"
	// OptionsAttr holds per-element JSON options.
	OptionsAttr = "data-options"
	// AutoIDPrefix prefixes identities assigned to elements without an id.
	AutoIDPrefix = "loom-viz-"
)

// ErrAlreadyRan is returned by a second call to Run.
var ErrAlreadyRan = errors.New("bootstrap pass already ran for this page")

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithFetcher makes the asset loader download what it inserts.
func WithFetcher(f assets.Fetcher) Option {
	return func(o *Orchestrator) { o.fetcher = f }
}

// WithFeatures replaces the default page features.
func WithFeatures(fs ...features.Feature) Option {
	return func(o *Orchestrator) { o.features = fs }
}

// WithStepSource sets the source the narrative bridge subscribes to once the
// pass is over.
func WithStepSource(src narrative.Source) Option {
	return func(o *Orchestrator) { o.source = src }
}

// WithContentSelector overrides DefaultContentSelector.
func WithContentSelector(sel string) Option {
	return func(o *Orchestrator) { o.contentSelector = sel }
}

// Orchestrator runs one bootstrap pass over one page.
type Orchestrator struct {
	descriptors     []*registry.Descriptor
	fetcher         assets.Fetcher
	features        []features.Feature
	source          narrative.Source
	contentSelector string

	rt     *Runtime
	autoID int
	ran    atomic.Bool
	wait   chan error
}

// New prepares a pass over doc using descriptors in the given order.
func New(doc *dom.Document, descriptors []*registry.Descriptor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		descriptors:     descriptors,
		features:        features.Defaults(),
		contentSelector: DefaultContentSelector,
		wait:            make(chan error, 1),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.rt = newRuntime(doc, o.fetcher)
	return o
}

// Runtime exposes the page state built by the pass.
func (o *Orchestrator) Runtime() *Runtime { return o.rt }

// Run performs the bootstrap pass. The returned error is non-nil only when
// the pass could not run to the end (ctx cancelled, or a second call); adapter
// failures are reported in the Report instead.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	if !o.ran.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRan
	}

	ctx, logger := ctxlog.With(ctx, "run_id", o.rt.ID)
	logger.Info("🚀 Starting bootstrap pass...", "adapters", len(o.descriptors))

	report := &Report{RunID: o.rt.ID, Features: make(map[string]int)}

	content, err := o.rt.Doc.Query(o.contentSelector)
	if err != nil {
		logger.Warn("Content selector is invalid, detection runs without a content root.", "selector", o.contentSelector, "error", err)
	}
	dc := &viz.DetectContext{Doc: o.rt.Doc, Content: content}

	for _, d := range o.descriptors {
		if err := ctx.Err(); err != nil {
			close(o.wait)
			return report, fmt.Errorf("bootstrap interrupted before adapter '%s': %w", d.ID, err)
		}
		report.Adapters = append(report.Adapters, o.bootstrap(ctx, d, dc, report))
	}

	o.applyFeatures(ctx, report)
	o.wire(ctx)

	logger.Info("🏁 Bootstrap pass finished.",
		"detected", report.Detected(),
		"instances", report.InstanceCount(),
		"failures", len(report.Failures),
		"diagnostics", len(report.Diagnostics),
	)
	return report, nil
}

// Wait blocks until the bridge's subscription ends and returns its error.
// Without a step source it returns as soon as Run has finished.
func (o *Orchestrator) Wait() error {
	return <-o.wait
}

// bootstrap takes one descriptor through detect, load, init and render.
func (o *Orchestrator) bootstrap(ctx context.Context, d *registry.Descriptor, dc *viz.DetectContext, report *Report) AdapterResult {
	logger := ctxlog.FromContext(ctx).With("adapter", d.ID)
	res := AdapterResult{ID: d.ID, State: instances.Undetected}

	if !d.Detect(dc) {
		logger.Debug("Adapter not detected, skipping.")
		return res
	}
	res.Detected = true

	res.State = instances.Loading
	logger.Info("▶️ Adapter detected, loading bundle.", "styles", len(d.Bundle.Styles), "scripts", len(d.Bundle.Scripts))
	o.rt.Assets.LoadBundle(ctx, d.Bundle)

	if init := d.Initializer(); init != nil {
		res.State = instances.Initializing
		logger.Debug("Running adapter init.")
		if err := safeInit(ctx, init, o.rt.Doc); err != nil {
			logger.Error("Adapter init failed, skipping its elements.", "error", err)
			report.Failures = append(report.Failures, Failure{Adapter: d.ID, Phase: PhaseInit, Err: err})
			return res
		}
	}

	if d.Selector == "" {
		res.State = instances.Rendered
		logger.Info("✅ Adapter ready.")
		return res
	}

	els, err := o.rt.Doc.QueryAll(d.Selector)
	if err != nil {
		logger.Error("Adapter selector failed.", "selector", d.Selector, "error", err)
		report.Failures = append(report.Failures, Failure{Adapter: d.ID, Phase: PhaseRender, Err: err})
		return res
	}

	for _, el := range els {
		id := o.ensureID(ctx, el)
		elLogger := logger.With("element", id)
		opts := o.options(ctx, d, el, id, report)

		var inst viz.Instance
		if r := d.Renderer(); r != nil {
			inst, err = safeRender(ctx, r, el, opts)
			if err != nil {
				elLogger.Error("Adapter render failed.", "error", err)
				report.Failures = append(report.Failures, Failure{Adapter: d.ID, Element: id, Phase: PhaseRender, Err: err})
				continue
			}
		}

		entry := &instances.Entry{ID: id, Descriptor: d, Element: el, Instance: inst}
		if err := o.rt.Instances.Put(ctx, entry); err != nil {
			// The first element registered under an id keeps it.
			elLogger.Info("Rendered element shares an id already registered, it will not receive updates.", "error", err)
			continue
		}
		res.Instances = append(res.Instances, id)
		elLogger.Debug("Element rendered.", "has_instance", inst != nil)
	}

	res.State = instances.Rendered
	logger.Info("✅ Adapter rendered.", "elements", len(els), "instances", len(res.Instances))
	return res
}

// ensureID returns el's id, assigning the next free auto id if it has none.
func (o *Orchestrator) ensureID(ctx context.Context, el *dom.Element) string {
	if id := el.ID(); id != "" {
		return id
	}
	for {
		o.autoID++
		id := fmt.Sprintf("%s%d", AutoIDPrefix, o.autoID)
		if o.rt.Doc.ElementByID(id) != nil {
			continue
		}
		if _, taken := o.rt.Instances.Get(ctx, id); taken {
			continue
		}
		el.SetID(id)
		return id
	}
}

// options decodes el's data-options and merges the descriptor defaults under
// them. Malformed JSON yields a diagnostic and the defaults alone.
func (o *Orchestrator) options(ctx context.Context, d *registry.Descriptor, el *dom.Element, id string, report *Report) viz.Options {
	opts := viz.Options{}
	raw, ok := el.Attr(OptionsAttr)
	if ok && strings.TrimSpace(raw) != "" {
		parsed, err := viz.ParseOptions(raw)
		if err != nil {
			ctxlog.FromContext(ctx).Warn("Invalid data-options JSON, using empty options.", "adapter", d.ID, "element", id, "error", err)
			report.Diagnostics = append(report.Diagnostics, Failure{Adapter: d.ID, Element: id, Phase: PhaseOptions, Err: err})
		} else {
			opts = parsed
		}
	}
	return viz.MergeOptions(d.Defaults, opts)
}

func (o *Orchestrator) applyFeatures(ctx context.Context, report *Report) {
	logger := ctxlog.FromContext(ctx)
	for _, f := range o.features {
		n, err := safeFeature(ctx, f, o.rt.Doc)
		if err != nil {
			logger.Error("Page feature failed.", "feature", f.Name(), "error", err)
			report.Failures = append(report.Failures, Failure{Adapter: f.Name(), Phase: PhaseFeature, Err: err})
			continue
		}
		report.Features[f.Name()] = n
		logger.Debug("Page feature applied.", "feature", f.Name(), "added", n)
	}
}

// wire subscribes the bridge to the step source in the background.
func (o *Orchestrator) wire(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	if o.source == nil {
		logger.Debug("No step source configured, narrative bridge stays idle.")
		close(o.wait)
		return
	}
	go func() {
		defer close(o.wait)
		err := o.rt.Bridge.Subscribe(ctx, o.source)
		if err != nil {
			logger.Error("Narrative bridge stopped.", "error", err)
		}
		o.wait <- err
	}()
	logger.Debug("Narrative bridge wired.")
}

func safeInit(ctx context.Context, init viz.Initializer, doc *dom.Document) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return init.Init(ctx, doc)
}

func safeRender(ctx context.Context, r viz.Renderer, el *dom.Element, opts viz.Options) (inst viz.Instance, err error) {
	defer func() {
		if p := recover(); p != nil {
			inst, err = nil, fmt.Errorf("panic: %v", p)
		}
	}()
	return r.Render(ctx, el, opts)
}

func safeFeature(ctx context.Context, f features.Feature, doc *dom.Document) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("panic: %v", r)
		}
	}()
	return f.Apply(ctx, doc)
}
