package events

import (
	"context"
	"fmt"
	"log/slog"
)

// LoggingHandler writes every event to a structured logger.
type LoggingHandler struct {
	logger *slog.Logger
}

func NewLoggingHandler(logger *slog.Logger) *LoggingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingHandler{logger: logger}
}

func (h *LoggingHandler) Handle(ctx context.Context, event DomainEvent) error {
	attrs := []any{"event", event.EventType(), "project", event.AggregateID()}
	if be, ok := event.(*BaseEvent); ok {
		for k, v := range be.Metadata {
			attrs = append(attrs, k, v)
		}
	}
	h.logger.InfoContext(ctx, "event", attrs...)
	return nil
}

// PersistingHandler appends events to a store.
type PersistingHandler struct {
	store EventStore
}

func NewPersistingHandler(store EventStore) *PersistingHandler {
	return &PersistingHandler{store: store}
}

func (h *PersistingHandler) Handle(ctx context.Context, event DomainEvent) error {
	be, ok := event.(*BaseEvent)
	if !ok {
		return fmt.Errorf("cannot persist event of type %T", event)
	}
	return h.store.Append(be)
}

// Wire registers the logging handler and, when store is not nil, the
// persisting handler on d.
func Wire(d *Dispatcher, logger *slog.Logger, store EventStore) {
	d.RegisterWildcard("log", NewLoggingHandler(logger).Handle)
	if store != nil {
		d.RegisterWildcard("persist", NewPersistingHandler(store).Handle)
	}
}
