package narrative

import (
	"context"
	"fmt"

	"github.com/vk/loom/internal/dom"
)

// UpdateAttr is the step element attribute holding the update mapping.
const UpdateAttr = "data-update"

// Direction is the scroll direction that activated a step.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// ParseDirection validates a direction received from outside the process.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionUp, DirectionDown:
		return Direction(s), nil
	default:
		return "", fmt.Errorf("invalid step direction %q (want up or down)", s)
	}
}

// StepNotification announces that a story step became active.
type StepNotification struct {
	// Element is the active step element. It carries data-update.
	Element   *dom.Element
	Index     int
	Step      string
	Direction Direction
}

// HandleFunc consumes one notification.
type HandleFunc func(ctx context.Context, n StepNotification)

// Source is a stream of step notifications. Subscribe delivers notifications
// to handle, one at a time and in arrival order, and blocks until ctx ends or
// the source is exhausted.
type Source interface {
	Subscribe(ctx context.Context, handle HandleFunc) error
}
