package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/autostack/autostack/pkg/domain/events"
)

// Broker fans dispatched events out to SSE and WebSocket clients.
type Broker struct {
	mu      sync.RWMutex
	clients map[chan *events.BaseEvent]struct{}
}

func NewBroker() *Broker {
	return &Broker{clients: make(map[chan *events.BaseEvent]struct{})}
}

// Handle is an events.HandlerFunc. Slow clients miss events rather than
// block the dispatcher.
func (b *Broker) Handle(_ context.Context, event events.DomainEvent) error {
	be, ok := event.(*events.BaseEvent)
	if !ok {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- be:
		default:
		}
	}
	return nil
}

// Clients returns the number of connected streams.
func (b *Broker) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *Broker) subscribe() chan *events.BaseEvent {
	ch := make(chan *events.BaseEvent, 64)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) unsubscribe(ch chan *events.BaseEvent) {
	b.mu.Lock()
	delete(b.clients, ch)
	b.mu.Unlock()
}

// ServeHTTP streams events. The types query parameter takes a comma
// separated list of event types to keep.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	filter := typeFilter(r)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.subscribe()
	defer b.unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case event := <-ch:
			if len(filter) > 0 && !filter[event.Type] {
				continue
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			_, _ = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Type, data)
			flusher.Flush()
		}
	}
}

// typeFilter reads the comma separated types query parameter.
func typeFilter(r *http.Request) map[string]bool {
	filter := make(map[string]bool)
	if types := r.URL.Query().Get("types"); types != "" {
		for _, t := range strings.Split(types, ",") {
			if t = strings.TrimSpace(t); t != "" {
				filter[t] = true
			}
		}
	}
	return filter
}
