package narrative

import (
	"context"
	"errors"
	"sync"

	"github.com/vk/loom/internal/ctxlog"
)

// Emitter is an in-process Source. Emit dispatches synchronously on the
// caller's goroutine to every current subscriber; with no subscriber the
// notification is dropped.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[int]HandleFunc
	next     int

	closed    chan struct{}
	closeOnce sync.Once
	first     chan struct{}
	firstOnce sync.Once
}

// ErrEmitterClosed is returned when waiting on an emitter that was closed.
var ErrEmitterClosed = errors.New("emitter is closed")

// NewEmitter returns an open Emitter.
func NewEmitter() *Emitter {
	return &Emitter{
		handlers: make(map[int]HandleFunc),
		closed:   make(chan struct{}),
		first:    make(chan struct{}),
	}
}

// Subscribe registers handle and blocks until ctx ends or the emitter is
// closed.
func (e *Emitter) Subscribe(ctx context.Context, handle HandleFunc) error {
	select {
	case <-e.closed:
		return nil
	default:
	}

	e.mu.Lock()
	id := e.next
	e.next++
	e.handlers[id] = handle
	e.mu.Unlock()
	e.firstOnce.Do(func() { close(e.first) })

	defer func() {
		e.mu.Lock()
		delete(e.handlers, id)
		e.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
	case <-e.closed:
	}
	return nil
}

// Emit delivers n to every subscriber and returns how many received it.
func (e *Emitter) Emit(ctx context.Context, n StepNotification) int {
	e.mu.RLock()
	handlers := make([]HandleFunc, 0, len(e.handlers))
	for _, h := range e.handlers {
		handlers = append(handlers, h)
	}
	e.mu.RUnlock()

	if len(handlers) == 0 {
		ctxlog.FromContext(ctx).Debug("Step notification dropped, no subscribers.", "step", n.Step, "index", n.Index)
		return 0
	}
	for _, h := range handlers {
		h(ctx, n)
	}
	return len(handlers)
}

// WaitForSubscriber blocks until something has subscribed, ctx ends or the
// emitter is closed.
func (e *Emitter) WaitForSubscriber(ctx context.Context) error {
	select {
	case <-e.first:
		return nil
	default:
	}
	select {
	case <-e.first:
		return nil
	case <-e.closed:
		return ErrEmitterClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribers returns the number of active subscriptions.
func (e *Emitter) Subscribers() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers)
}

// Close ends every subscription. It is safe to call more than once.
func (e *Emitter) Close() {
	e.closeOnce.Do(func() { close(e.closed) })
}
