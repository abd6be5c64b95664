package echarts

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/vk/loom/internal/dom"
)

const (
	// OptionAttr carries the chart's current option object as JSON.
	OptionAttr = "data-echarts-option"
	// ThemeAttr names the chart theme.
	ThemeAttr = "data-echarts-theme"
	// ThemeName is the palette every chart is initialized with.
	ThemeName = "loom"
)

// Palette is the series color cycle of the loom theme.
var Palette = []string{
	"#F0177A", "#10B981", "#F59E0B", "#1B6FEE",
	"#8B5CF6", "#06B6D4", "#EF4444", "#84CC16",
}

// Chart is a mounted chart. Its option is mirrored to OptionAttr after every
// change.
type Chart struct {
	mu     sync.Mutex
	el     *dom.Element
	option map[string]any
}

// NewChart mounts a chart on el, replacing any chart already there.
func NewChart(el *dom.Element, option map[string]any) (*Chart, error) {
	c := &Chart{el: el}
	el.SetAttr(ThemeAttr, ThemeName)
	if err := c.SetOption(option, true); err != nil {
		return nil, err
	}
	return c, nil
}

// SetOption applies option. With notMerge the current option is replaced;
// otherwise option is deep-merged into it.
func (c *Chart) SetOption(option map[string]any, notMerge bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := option
	if !notMerge {
		next = merge(c.option, option)
	}
	raw, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encoding chart option: %w", err)
	}
	c.option = next
	c.el.SetAttr(OptionAttr, string(raw))
	return nil
}

// Option returns the current option. The result must not be modified.
func (c *Chart) Option() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.option
}

// merge returns dst overlaid by src. Nested objects merge recursively, and
// arrays merge element-wise when both sides hold objects at an index.
func merge(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		out[k] = mergeValue(out[k], v)
	}
	return out
}

func mergeValue(dst, src any) any {
	switch s := src.(type) {
	case map[string]any:
		if d, ok := dst.(map[string]any); ok {
			return merge(d, s)
		}
	case []any:
		d, ok := dst.([]any)
		if !ok {
			return s
		}
		out := make([]any, len(s))
		for i, v := range s {
			if i < len(d) {
				out[i] = mergeValue(d[i], v)
			} else {
				out[i] = v
			}
		}
		return out
	}
	return src
}
