// Package watch follows a project directory and reports changes in
// debounced batches.
package watch

import (
	"sync"
	"time"
)

// Batcher collects items and hands them to flush once no new item has
// arrived for the window. Items with the same key are kept once, the
// latest winning.
type Batcher[T any] struct {
	window time.Duration
	key    func(T) string
	flush  func([]T)

	mu    sync.Mutex
	timer *time.Timer
	order []string
	items map[string]T
}

func NewBatcher[T any](window time.Duration, key func(T) string, flush func([]T)) *Batcher[T] {
	return &Batcher[T]{window: window, key: key, flush: flush, items: map[string]T{}}
}

// Add queues item and restarts the quiet window.
func (b *Batcher[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := b.key(item)
	if _, seen := b.items[k]; !seen {
		b.order = append(b.order, k)
	}
	b.items[k] = item
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.window, b.fire)
}

func (b *Batcher[T]) fire() {
	b.mu.Lock()
	batch := make([]T, 0, len(b.order))
	for _, k := range b.order {
		batch = append(batch, b.items[k])
	}
	b.order = nil
	b.items = map[string]T{}
	b.mu.Unlock()

	if len(batch) > 0 {
		b.flush(batch)
	}
}

// Stop drops pending items.
func (b *Batcher[T]) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
	}
	b.order = nil
	b.items = map[string]T{}
}
