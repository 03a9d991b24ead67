package events

import (
	"context"
	"fmt"
	"sync"
)

// HandlerFunc handles a dispatched event.
type HandlerFunc func(ctx context.Context, event DomainEvent) error

type namedHandler struct {
	name    string
	handler HandlerFunc
}

// Dispatcher routes events to handlers registered by type. Handlers
// registered for "*" see every event.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]namedHandler
	// ContinueOnError runs all handlers and collects failures instead of
	// stopping at the first one.
	ContinueOnError bool
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string][]namedHandler)}
}

// RegisterHandler registers handler under name for the given event types.
func (d *Dispatcher) RegisterHandler(name string, handler HandlerFunc, eventTypes ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, eventType := range eventTypes {
		d.handlers[eventType] = append(d.handlers[eventType], namedHandler{name: name, handler: handler})
	}
}

// RegisterWildcard registers a handler for all events.
func (d *Dispatcher) RegisterWildcard(name string, handler HandlerFunc) {
	d.RegisterHandler(name, handler, "*")
}

// Dispatch runs the handlers for event in registration order, wildcard
// handlers last. A nil dispatcher drops the event.
func (d *Dispatcher) Dispatch(ctx context.Context, event DomainEvent) error {
	if d == nil {
		return nil
	}
	d.mu.RLock()
	handlers := append([]namedHandler{}, d.handlers[event.EventType()]...)
	handlers = append(handlers, d.handlers["*"]...)
	d.mu.RUnlock()

	var errs []error
	for _, nh := range handlers {
		if err := nh.handler(ctx, event); err != nil {
			handlerErr := fmt.Errorf("handler %s failed for event %s: %w", nh.name, event.EventType(), err)
			if !d.ContinueOnError {
				return handlerErr
			}
			errs = append(errs, handlerErr)
		}
	}
	if len(errs) > 0 {
		return &DispatchError{Errors: errs}
	}
	return nil
}

// HandlerCount returns how many handlers would see an event of eventType.
func (d *Dispatcher) HandlerCount(eventType string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	count := len(d.handlers[eventType])
	if eventType != "*" {
		count += len(d.handlers["*"])
	}
	return count
}

// DispatchError contains multiple errors from event dispatch.
type DispatchError struct {
	Errors []error
}

func (e *DispatchError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("multiple dispatch errors (%d)", len(e.Errors))
}

func (e *DispatchError) Unwrap() []error { return e.Errors }
