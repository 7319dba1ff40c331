package events

import (
	"time"

	"github.com/google/uuid"
)

// Event is the envelope that flows through the event bus.
// Every published result (predictions, rankings) is wrapped in one.
type Event struct {
	ID        string
	Type      EventType
	EventKey  string
	Timestamp time.Time
	Payload   any
}

type EventType string

const (
	EventPredictionsUpdated EventType = "predictions_updated"
	EventRankingsUpdated    EventType = "rankings_updated"
)

// New stamps a fresh event with a random ID and the current time.
func New(t EventType, eventKey string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		EventKey:  eventKey,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}
