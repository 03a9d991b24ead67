package events

// EventStore persists events as a hash chained log.
type EventStore interface {
	// Append chains event to the last stored one and writes it.
	Append(event *BaseEvent) error

	// LoadAll returns all events in order.
	LoadAll() ([]*BaseEvent, error)

	// LoadByType returns events of a specific type.
	LoadByType(eventType string) ([]*BaseEvent, error)

	// Count returns the total number of events.
	Count() (int, error)
}
