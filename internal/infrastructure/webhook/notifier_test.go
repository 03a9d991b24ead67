package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/autostack/autostack/pkg/domain/events"
)

func TestNotifierDeliversAndSigns(t *testing.T) {
	var (
		mu      sync.Mutex
		sig     string
		payload Payload
		raw     []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		sig = r.Header.Get(SignatureHeader)
		raw, _ = io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &payload)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	n := NewNotifier([]Endpoint{{Name: "hook", URL: server.URL, Secret: "s3cret"}}, nil, nil)
	d := events.NewDispatcher()
	d.RegisterWildcard("webhook", n.Handle)
	ev := events.New(events.EventTypeTaskConfirmed, "blog", events.ActorAgent, map[string]interface{}{"task_id": "t1"})
	if err := d.Dispatch(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	n.Wait()

	mu.Lock()
	defer mu.Unlock()
	if payload.EventType != events.EventTypeTaskConfirmed || payload.Project != "blog" {
		t.Errorf("payload = %+v", payload)
	}
	if payload.Data == nil || payload.Data.ID != ev.ID {
		t.Errorf("payload data = %+v", payload.Data)
	}
	if sig != Sign(raw, "s3cret") {
		t.Errorf("signature %q does not match body", sig)
	}
}

func TestNotifierFiltersEvents(t *testing.T) {
	var received atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
	}))
	defer server.Close()

	n := NewNotifier([]Endpoint{{Name: "hook", URL: server.URL, Events: []string{events.EventTypePlanFinished}}}, nil, nil)
	n.Notify(context.Background(), events.New(events.EventTypeActionExecuted, "blog", events.ActorAgent, nil))
	n.Notify(context.Background(), events.New(events.EventTypePlanFinished, "blog", events.ActorAgent, nil))
	n.Wait()

	if got := received.Load(); got != 1 {
		t.Errorf("deliveries = %d, want 1", got)
	}
}

func TestNotifierRetriesThenDeadLetters(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	store := NewDeadLetterStore(filepath.Join(t.TempDir(), ".autostack", DeadLetterFile))
	n := NewNotifier([]Endpoint{{
		Name:       "flaky",
		URL:        server.URL,
		MaxRetries: 2,
		RetryDelay: 5 * time.Millisecond,
	}}, store, nil)
	n.Notify(context.Background(), events.New(events.EventTypePlanFinished, "blog", events.ActorAgent, nil))
	n.Wait()

	if got := attempts.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
	letters, err := store.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(letters) != 1 {
		t.Fatalf("dead letters = %d, want 1", len(letters))
	}
	dl := letters[0]
	if dl.WebhookName != "flaky" || dl.EventType != events.EventTypePlanFinished || dl.Attempts != 2 {
		t.Errorf("dead letter = %+v", dl)
	}
}

func TestNotifierRecoversAfterRetry(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer server.Close()

	store := NewDeadLetterStore(filepath.Join(t.TempDir(), DeadLetterFile))
	n := NewNotifier([]Endpoint{{Name: "hook", URL: server.URL, RetryDelay: time.Millisecond}}, store, nil)
	n.Notify(context.Background(), events.New(events.EventTypeGoalSet, "blog", events.ActorHuman, nil))
	n.Wait()

	letters, _ := store.ReadAll()
	if attempts.Load() != 2 || len(letters) != 0 {
		t.Errorf("attempts = %d, dead letters = %d", attempts.Load(), len(letters))
	}
}

func TestDeadLetterStoreMissingFile(t *testing.T) {
	letters, err := NewDeadLetterStore(filepath.Join(t.TempDir(), "none.jsonl")).ReadAll()
	if err != nil || letters != nil {
		t.Errorf("ReadAll = %v, %v", letters, err)
	}
}
