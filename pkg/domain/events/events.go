// Package events defines the events a planning run emits and the
// dispatcher that fans them out to logging and persistence.
package events

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	EventTypeProjectInitialized = "project.initialized"
	EventTypeGoalSet            = "plan.goal_set"
	EventTypePlanDecomposed     = "plan.decomposed"
	EventTypePlanFinished       = "plan.finished"
	EventTypeTaskPerformed      = "task.performed"
	EventTypeTaskReviewed       = "task.reviewed"
	EventTypeTaskConfirmed      = "task.confirmed"
	EventTypeActionExecuted     = "action.executed"
	EventTypeModuleScaffolded   = "module.scaffolded"
	EventTypeContainerStarted   = "container.started"
	EventTypeFileChanged        = "file.changed"
)

// Actors.
const (
	ActorAgent = "agent"
	ActorHuman = "human"
)

// DomainEvent is what the dispatcher routes.
type DomainEvent interface {
	EventType() string
	AggregateID() string
	OccurredAt() time.Time
}

// BaseEvent is the one concrete event shape. AggregateID is the project
// name; Metadata carries event specific fields such as task_id.
type BaseEvent struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Aggregate string                 `json:"aggregate_id"`
	Timestamp time.Time              `json:"timestamp"`
	Actor     string                 `json:"actor"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	PrevHash  string                 `json:"prev_hash,omitempty"`
	Hash      string                 `json:"hash,omitempty"`
}

// New creates an event stamped with a fresh id and the current time.
func New(eventType, aggregateID, actor string, metadata map[string]interface{}) *BaseEvent {
	return &BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Aggregate: aggregateID,
		Timestamp: time.Now().UTC(),
		Actor:     actor,
		Metadata:  metadata,
	}
}

func (e *BaseEvent) EventType() string     { return e.Type }
func (e *BaseEvent) AggregateID() string   { return e.Aggregate }
func (e *BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// CalculateHash generates a deterministic SHA256 hash of the event.
func (e *BaseEvent) CalculateHash() string {
	h := sha256.New()
	h.Write([]byte(e.PrevHash))
	h.Write([]byte(e.ID))
	h.Write([]byte(e.Timestamp.Format(time.RFC3339Nano)))
	h.Write([]byte(e.Type))
	h.Write([]byte(e.Aggregate))
	h.Write([]byte(e.Actor))
	h.Write([]byte(canonicalJSON(e.Metadata)))
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalJSON produces a deterministic JSON representation.
func canonicalJSON(m map[string]interface{}) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]byte, 0, 256)
	ordered = append(ordered, '{')
	for i, k := range keys {
		if i > 0 {
			ordered = append(ordered, ',')
		}
		keyJSON, _ := json.Marshal(k)
		valJSON, _ := json.Marshal(m[k])
		ordered = append(ordered, keyJSON...)
		ordered = append(ordered, ':')
		ordered = append(ordered, valJSON...)
	}
	ordered = append(ordered, '}')
	return string(ordered)
}

// VerifyChain checks that every event hashes to its stored Hash and links
// to its predecessor. It returns the index of the first broken event, or -1.
func VerifyChain(events []*BaseEvent) int {
	prev := ""
	for i, e := range events {
		if e.PrevHash != prev || e.CalculateHash() != e.Hash {
			return i
		}
		prev = e.Hash
	}
	return -1
}
