package story

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/loom/internal/ctxlog"
	"github.com/vk/loom/internal/narrative"
)

// Publisher receives the notifications a Controller produces.
// narrative.Emitter satisfies it.
type Publisher interface {
	Emit(ctx context.Context, n narrative.StepNotification) int
}

// Controller tracks the active step of each section.
type Controller struct {
	sections []*Section
	pub      Publisher

	mu     sync.Mutex
	active []int
}

// NewController returns a Controller with no active steps.
func NewController(sections []*Section, pub Publisher) *Controller {
	active := make([]int, len(sections))
	for i := range active {
		active[i] = -1
	}
	return &Controller{sections: sections, pub: pub, active: active}
}

// Len returns the number of steps across all sections.
func (c *Controller) Len() int {
	n := 0
	for _, s := range c.sections {
		n += len(s.Steps)
	}
	return n
}

// Enter activates step index of section and publishes the notification.
// Direction is down unless the section's previous step was later.
func (c *Controller) Enter(ctx context.Context, section, index int) (narrative.StepNotification, error) {
	if section < 0 || section >= len(c.sections) {
		return narrative.StepNotification{}, fmt.Errorf("story section %d out of range [0,%d)", section, len(c.sections))
	}
	s := c.sections[section]
	if index < 0 || index >= len(s.Steps) {
		return narrative.StepNotification{}, fmt.Errorf("step %d out of range [0,%d) in section %s", index, len(s.Steps), s.Element.ID())
	}

	c.mu.Lock()
	dir := narrative.DirectionDown
	if c.active[section] > index {
		dir = narrative.DirectionUp
	}
	c.active[section] = index
	for _, step := range s.Steps {
		step.RemoveAttr("data-active")
		step.SetAttr("aria-hidden", "true")
	}
	el := s.Steps[index]
	el.SetAttr("data-active", "")
	el.RemoveAttr("aria-hidden")
	c.mu.Unlock()

	n := narrative.StepNotification{
		Element:   el,
		Index:     index,
		Step:      stepName(el, index),
		Direction: dir,
	}
	ctxlog.FromContext(ctx).Debug("Story step entered.", "section", s.Element.ID(), "step", n.Step, "direction", dir)
	if c.pub != nil {
		c.pub.Emit(ctx, n)
	}
	return n, nil
}

// EnterGlobal activates the step at position i when all sections' steps are
// numbered consecutively in document order.
func (c *Controller) EnterGlobal(ctx context.Context, i int) (narrative.StepNotification, error) {
	if i >= 0 {
		offset := i
		for si, s := range c.sections {
			if offset < len(s.Steps) {
				return c.Enter(ctx, si, offset)
			}
			offset -= len(s.Steps)
		}
	}
	return narrative.StepNotification{}, fmt.Errorf("step %d out of range [0,%d)", i, c.Len())
}
