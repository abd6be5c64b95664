package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/loom/internal/assets"
	"github.com/zclconf/go-cty/cty"
)

const twoAdapters = `
adapter "math" {
  description = "KaTeX"
  detect {
    flags     = ["tag-hash-math"]
    selectors = [".math, .math-inline, .math-display"]
    content   = ["$"]
  }
  cdn {
    styles  = ["https://cdn.example/katex.css"]
    scripts = ["https://cdn.example/katex.js", "https://cdn.example/auto-render.js"]
  }
}

adapter "leaflet" {
  handler  = "leaflet-maps"
  selector = "[data-leaflet]"
  detect {
    selectors = ["[data-leaflet]"]
  }
  options = {
    tiles = "osm"
    zoom  = 13
    view  = { animate = true, layers = ["a", "b"] }
  }
}
`

func TestLoadSource_DecodesAdaptersInOrder(t *testing.T) {
	adapters, err := NewLoader().LoadSource(context.Background(), "catalog.hcl", []byte(twoAdapters))
	require.NoError(t, err)
	require.Len(t, adapters, 2)

	m := adapters[0]
	assert.Equal(t, "math", m.ID)
	assert.Equal(t, "math", m.Handler, "handler defaults to the adapter id")
	assert.Equal(t, "KaTeX", m.Description)
	assert.Empty(t, m.Selector)
	assert.Equal(t, DetectRules{
		Flags:     []string{"tag-hash-math"},
		Selectors: []string{".math, .math-inline, .math-display"},
		Content:   []string{"$"},
	}, m.Detect)
	assert.Equal(t, assets.Bundle{
		Styles:  []string{"https://cdn.example/katex.css"},
		Scripts: []string{"https://cdn.example/katex.js", "https://cdn.example/auto-render.js"},
	}, m.Bundle)
	assert.Nil(t, m.Options)
	assert.Equal(t, "catalog.hcl", m.FilePath)

	l := adapters[1]
	assert.Equal(t, "leaflet-maps", l.Handler)
	assert.Equal(t, "[data-leaflet]", l.Selector)
	assert.True(t, l.Bundle.Empty())
	want := map[string]any{
		"tiles": "osm",
		"zoom":  float64(13),
		"view":  map[string]any{"animate": true, "layers": []any{"a", "b"}},
	}
	if diff := cmp.Diff(want, l.Options); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSource_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		src    string
		errSub string
	}{
		{
			name:   "syntax error",
			src:    `adapter "x" {`,
			errSub: "failed to parse HCL file",
		},
		{
			name:   "options must be an object",
			src:    `adapter "x" { options = "nope" }`,
			errSub: "options must be an object",
		},
		{
			name:   "unknown attribute",
			src:    `adapter "x" { colour = "red" }`,
			errSub: "failed to process adapter definitions",
		},
		{
			name:   "missing label",
			src:    `adapter { }`,
			errSub: "failed to process adapter definitions",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLoader().LoadSource(context.Background(), "bad.hcl", []byte(tc.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errSub)
		})
	}
}

func TestLoadPaths_KeepsFileOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20-late.hcl"), []byte(`
adapter "late" {
  detect {
    flags = ["l"]
  }
}
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "10-early.hcl"), []byte(`
adapter "first" {
  detect {
    flags = ["f"]
  }
}

adapter "second" {
  detect {
    flags = ["s"]
  }
}
`), 0644))

	adapters, err := NewLoader().LoadPaths(context.Background(), dir)
	require.NoError(t, err)

	var ids []string
	for _, a := range adapters {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"first", "second", "late"}, ids)
}

func TestCtyToGo(t *testing.T) {
	val := cty.ObjectVal(map[string]cty.Value{
		"s":    cty.StringVal("x"),
		"n":    cty.NumberFloatVal(1.5),
		"b":    cty.False,
		"null": cty.NullVal(cty.String),
		"list": cty.ListVal([]cty.Value{cty.NumberIntVal(1), cty.NumberIntVal(2)}),
	})

	got, err := CtyToGo(val)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"s":    "x",
		"n":    1.5,
		"b":    false,
		"null": nil,
		"list": []any{float64(1), float64(2)},
	}, got)

	_, err = CtyToGo(cty.UnknownVal(cty.String))
	require.Error(t, err)
}
