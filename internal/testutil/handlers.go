package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/vk/loom/internal/dom"
	"github.com/vk/loom/internal/viz"
)

// RecordingHandler renders by writing its label into the element and records
// every update it receives.
type RecordingHandler struct {
	Label string

	mu      sync.Mutex
	updates []viz.Payload
}

func (h *RecordingHandler) Render(_ context.Context, el *dom.Element, opts viz.Options) (viz.Instance, error) {
	label := h.Label
	if s, ok := viz.String(opts, "label"); ok {
		label = s
	}
	el.SetText(label)
	return label, nil
}

func (h *RecordingHandler) Update(_ context.Context, el *dom.Element, payload viz.Payload, _ viz.Instance) error {
	h.mu.Lock()
	h.updates = append(h.updates, payload)
	h.mu.Unlock()
	if s, ok := viz.String(viz.Options(payload), "label"); ok {
		el.SetText(s)
	}
	return nil
}

// Updates returns a copy of the payloads received so far.
func (h *RecordingHandler) Updates() []viz.Payload {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]viz.Payload(nil), h.updates...)
}

// FailingHandler fails every render with Err, or panics when Panic is set.
type FailingHandler struct {
	Err   error
	Panic bool
}

func (h FailingHandler) Render(context.Context, *dom.Element, viz.Options) (viz.Instance, error) {
	if h.Panic {
		panic("render exploded")
	}
	if h.Err == nil {
		return nil, errors.New("render failed")
	}
	return nil, h.Err
}
