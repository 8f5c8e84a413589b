package db

import "time"

// DefaultColor is recorded the first time the current color is read from an
// empty store.
const (
	DefaultColor  = "RED"
	DefaultSource = "default"
)

type ColorChange struct {
	ID        int64
	Color     string
	Source    string
	ChangedAt time.Time
}

// CloudEvent is a received event as recorded by the sink.
type CloudEvent struct {
	ID         int64
	EventID    string
	EventType  string
	Source     string
	Subject    string
	Data       string
	OccurredAt time.Time
}
