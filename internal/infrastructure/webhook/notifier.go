// Package webhook posts dispatched events to configured HTTP endpoints.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/autostack/autostack/pkg/domain/events"
	"github.com/felixgeelhaar/fortify/retry"
)

// SignatureHeader carries the HMAC-SHA256 of the body when the endpoint
// has a secret.
const SignatureHeader = "X-Autostack-Signature"

// Endpoint is one webhook receiver.
type Endpoint struct {
	Name   string
	URL    string
	Secret string
	// Events limits delivery to these event types. Empty means all.
	Events     []string
	MaxRetries int
	RetryDelay time.Duration
}

func (e Endpoint) accepts(eventType string) bool {
	return len(e.Events) == 0 || slices.Contains(e.Events, eventType)
}

// Payload is the JSON body sent to endpoints.
type Payload struct {
	EventType string            `json:"event_type"`
	Project   string            `json:"project"`
	Timestamp time.Time         `json:"timestamp"`
	Data      *events.BaseEvent `json:"data"`
}

// Notifier delivers events in the background. Wait blocks until queued
// deliveries have finished or been dead-lettered.
type Notifier struct {
	endpoints  []Endpoint
	client     *http.Client
	deadLetter *DeadLetterStore
	logger     *slog.Logger
	wg         sync.WaitGroup
}

func NewNotifier(endpoints []Endpoint, deadLetter *DeadLetterStore, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		endpoints:  endpoints,
		client:     &http.Client{Timeout: 10 * time.Second},
		deadLetter: deadLetter,
		logger:     logger,
	}
}

// Handle is an events.HandlerFunc.
func (n *Notifier) Handle(ctx context.Context, event events.DomainEvent) error {
	be, ok := event.(*events.BaseEvent)
	if !ok {
		return nil
	}
	n.Notify(ctx, be)
	return nil
}

// Notify queues event for every endpoint that accepts its type.
func (n *Notifier) Notify(ctx context.Context, event *events.BaseEvent) {
	body, err := json.Marshal(Payload{
		EventType: event.Type,
		Project:   event.Aggregate,
		Timestamp: event.Timestamp,
		Data:      event,
	})
	if err != nil {
		n.logger.Warn("webhook payload", "error", err)
		return
	}
	// Deliveries outlive the dispatching call.
	ctx = context.WithoutCancel(ctx)
	for _, ep := range n.endpoints {
		if !ep.accepts(event.Type) {
			continue
		}
		n.wg.Add(1)
		go func(ep Endpoint) {
			defer n.wg.Done()
			n.deliver(ctx, ep, event.Type, body)
		}(ep)
	}
}

// Wait blocks until every queued delivery has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) deliver(ctx context.Context, ep Endpoint, eventType string, body []byte) {
	attempts := ep.MaxRetries
	if attempts <= 0 {
		attempts = 3
	}
	delay := ep.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}
	r := retry.New[struct{}](retry.Config{
		MaxAttempts:   attempts,
		InitialDelay:  delay,
		BackoffPolicy: retry.BackoffExponential,
	})
	_, err := r.Do(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, n.send(ctx, ep, body)
	})
	if err == nil {
		return
	}

	n.logger.Warn("webhook delivery failed", "webhook", ep.Name, "event", eventType, "error", err)
	if n.deadLetter == nil {
		return
	}
	if dlErr := n.deadLetter.Append(DeadLetter{
		Timestamp:   time.Now(),
		WebhookName: ep.Name,
		URL:         ep.URL,
		EventType:   eventType,
		Payload:     string(body),
		Error:       err.Error(),
		Attempts:    attempts,
	}); dlErr != nil {
		n.logger.Error("dead letter append failed", "error", dlErr)
	}
}

func (n *Notifier) send(ctx context.Context, ep Endpoint, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Autostack-Webhook/1.0")
	if ep.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(body, ep.Secret))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the signature header value for payload.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
