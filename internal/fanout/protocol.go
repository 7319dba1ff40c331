package fanout

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/events"
)

// Envelope is the wire format for events sent over the fanout WebSocket.
type Envelope struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	EventKey  string          `json:"event_key"`
	Timestamp time.Time       `json:"ts"`
	Payload   json.RawMessage `json:"payload"`
}

// MarshalEvent serializes an Event into a JSON-encoded Envelope.
func MarshalEvent(evt events.Event) ([]byte, error) {
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	env := Envelope{
		Type:      string(evt.Type),
		ID:        evt.ID,
		EventKey:  evt.EventKey,
		Timestamp: evt.Timestamp,
		Payload:   payload,
	}
	return json.Marshal(env)
}

// UnmarshalEvent deserializes a JSON Envelope back into a typed Event.
func UnmarshalEvent(data []byte) (events.Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return events.Event{}, fmt.Errorf("unmarshal envelope: %w", err)
	}

	evt := events.Event{
		ID:        env.ID,
		Type:      events.EventType(env.Type),
		EventKey:  env.EventKey,
		Timestamp: env.Timestamp,
	}

	switch evt.Type {
	case events.EventPredictionsUpdated:
		var pu events.PredictionsUpdated
		if err := json.Unmarshal(env.Payload, &pu); err != nil {
			return evt, fmt.Errorf("unmarshal predictions_updated: %w", err)
		}
		evt.Payload = pu
	case events.EventRankingsUpdated:
		var ru events.RankingsUpdated
		if err := json.Unmarshal(env.Payload, &ru); err != nil {
			return evt, fmt.Errorf("unmarshal rankings_updated: %w", err)
		}
		evt.Payload = ru
	default:
		return evt, fmt.Errorf("unknown event type: %s", env.Type)
	}

	return evt, nil
}
