package events

import "time"

// Event is the contract every bus event implements.
type Event interface {
	// EventType returns the event's unique code, e.g. "INDEXING_STARTED".
	EventType() string

	// Payload returns the data carried by the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is a plain value implementation for events without behavior.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
