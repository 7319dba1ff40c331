package events

import (
	"sync"

	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/telemetry"
)

// Handler processes an event. Returning an error logs it but does not stop dispatch.
type Handler func(Event) error

// Types lists every event type the daemon publishes.
var Types = []EventType{EventPredictionsUpdated, EventRankingsUpdated}

// Bus is a synchronous in-process event bus.
// Subscribers are invoked in registration order on the publisher's goroutine,
// so a slow handler delays the recompute that published the event.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType EventType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], h)
}

// SubscribeAll registers h for every type in Types.
func (b *Bus) SubscribeAll(h Handler) {
	for _, t := range Types {
		b.Subscribe(t, h)
	}
}

// Publish dispatches an event to all registered handlers for its type.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := b.handlers[e.Type]
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(e); err != nil {
			telemetry.Metrics.HandlerErrors.Inc()
			telemetry.Warnf("bus: %s handler for %s: %v", e.Type, e.EventKey, err)
		}
	}
}

// PublishAll publishes evts in order. A result's predictions always reach
// subscribers before its rankings.
func (b *Bus) PublishAll(evts []Event) {
	for _, e := range evts {
		b.Publish(e)
	}
}
