// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package manifest

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/vk/loom/internal/assets"
	"github.com/vk/loom/internal/ctxlog"
)

// Adapter is the format-agnostic representation of one `adapter` block.
type Adapter struct {
	ID          string
	Description string
	// Handler names the registered Go handler. Defaults to ID.
	Handler  string
	Selector string
	Detect   DetectRules
	Bundle   assets.Bundle
	// Options are defaults merged under each element's data-options.
	Options map[string]any

	FilePath string
	DefRange hcl.Range
}

// DetectRules are declarative detection predicates. The adapter is detected
// when any single rule matches.
type DetectRules struct {
	// Flags are feature-flag classes on <html> or <body>.
	Flags []string
	// Selectors match if any element on the page matches.
	Selectors []string
	// Content matches if the content root's text contains the substring.
	Content []string
}

// Empty reports whether no rule is declared.
func (r DetectRules) Empty() bool {
	return len(r.Flags) == 0 && len(r.Selectors) == 0 && len(r.Content) == 0
}

// adapterBody is the gohcl decoding target for the body of an adapter block.
type adapterBody struct {
	Description string         `hcl:"description,optional"`
	Handler     string         `hcl:"handler,optional"`
	Selector    string         `hcl:"selector,optional"`
	Detect      *detectBlock   `hcl:"detect,block"`
	CDN         *cdnBlock      `hcl:"cdn,block"`
	Options     hcl.Expression `hcl:"options,optional"`
}

type detectBlock struct {
	Flags     []string `hcl:"flags,optional"`
	Selectors []string `hcl:"selectors,optional"`
	Content   []string `hcl:"content,optional"`
}

type cdnBlock struct {
	Styles  []string `hcl:"styles,optional"`
	Scripts []string `hcl:"scripts,optional"`
}

var rootSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "adapter", LabelNames: []string{"id"}},
	},
}

// ParseFile decodes every adapter block in hclFile, in declaration order.
func ParseFile(ctx context.Context, hclFile *hcl.File, filePath string) ([]*Adapter, hcl.Diagnostics) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Parsing adapter definitions from file", "file_path", filePath)

	var allDiags hcl.Diagnostics
	if hclFile == nil {
		allDiags = append(allDiags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "HCL file is nil",
		})
		return nil, allDiags
	}

	content, diags := hclFile.Body.Content(rootSchema)
	allDiags = append(allDiags, diags...)
	if diags.HasErrors() {
		return nil, allDiags
	}

	adapters := make([]*Adapter, 0, len(content.Blocks))
	for _, block := range content.Blocks {
		var body adapterBody
		bodyDiags := gohcl.DecodeBody(block.Body, nil, &body)
		allDiags = append(allDiags, bodyDiags...)
		if bodyDiags.HasErrors() {
			continue // Skip this adapter but keep collecting diagnostics.
		}

		def := &Adapter{
			ID:          block.Labels[0],
			Description: body.Description,
			Handler:     body.Handler,
			Selector:    body.Selector,
			FilePath:    filePath,
			DefRange:    block.DefRange,
		}
		if def.Handler == "" {
			def.Handler = def.ID
		}
		if body.Detect != nil {
			def.Detect = DetectRules{
				Flags:     body.Detect.Flags,
				Selectors: body.Detect.Selectors,
				Content:   body.Detect.Content,
			}
		}
		if body.CDN != nil {
			def.Bundle = assets.Bundle{Styles: body.CDN.Styles, Scripts: body.CDN.Scripts}
		}

		opts, optDiags := decodeOptions(body.Options, block.DefRange)
		allDiags = append(allDiags, optDiags...)
		if optDiags.HasErrors() {
			continue
		}
		def.Options = opts

		adapters = append(adapters, def)
	}

	if allDiags.HasErrors() {
		return nil, allDiags
	}

	logger.Debug("Successfully parsed adapter definitions", "count", len(adapters))
	return adapters, allDiags
}

// decodeOptions evaluates the optional `options` attribute, which must be an
// object (or absent).
func decodeOptions(expr hcl.Expression, rng hcl.Range) (map[string]any, hcl.Diagnostics) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid adapter options",
			Detail:   fmt.Sprintf("options must be an object, got %s", val.Type().FriendlyName()),
			Subject:  expr.Range().Ptr(),
			Context:  rng.Ptr(),
		}}
	}
	goVal, err := CtyToGo(val)
	if err != nil {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid adapter options",
			Detail:   err.Error(),
			Subject:  expr.Range().Ptr(),
		}}
	}
	m, _ := goVal.(map[string]any)
	return m, nil
}
