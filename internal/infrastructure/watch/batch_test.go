package watch

import (
	"sync"
	"testing"
	"time"
)

func TestBatcherCoalesces(t *testing.T) {
	var mu sync.Mutex
	var batches [][]ChangeEvent
	b := NewBatcher(30*time.Millisecond, func(e ChangeEvent) string { return e.Path }, func(batch []ChangeEvent) {
		mu.Lock()
		batches = append(batches, batch)
		mu.Unlock()
	})

	b.Add(ChangeEvent{Path: "a", ChangeType: "create"})
	b.Add(ChangeEvent{Path: "b", ChangeType: "write"})
	b.Add(ChangeEvent{Path: "a", ChangeType: "write"})

	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	got := batches[0]
	if len(got) != 2 {
		t.Fatalf("expected 2 distinct paths, got %v", got)
	}
	if got[0].Path != "a" || got[0].ChangeType != "write" {
		t.Errorf("expected latest change for a first, got %+v", got[0])
	}
	if got[1].Path != "b" {
		t.Errorf("expected b second, got %+v", got[1])
	}
}

func TestBatcherStop(t *testing.T) {
	fired := make(chan struct{}, 1)
	b := NewBatcher(20*time.Millisecond, func(s string) string { return s }, func([]string) {
		fired <- struct{}{}
	})
	b.Add("x")
	b.Stop()

	select {
	case <-fired:
		t.Fatal("stopped batcher must not flush")
	case <-time.After(80 * time.Millisecond):
	}
}
