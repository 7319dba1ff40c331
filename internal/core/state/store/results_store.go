package store

import (
	"sort"
	"sync"
	"time"

	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/orchestrator"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/ranking"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/events"
)

// EventResult is the latest computed output for one event.
type EventResult struct {
	EventKey    string
	Year        int
	SourceMod   time.Time // mtime of the input the result was computed from
	UpdatedAt   time.Time
	Predictions *orchestrator.EventPredictions
	Ranking     *ranking.Result // nil when rankings could not be computed
}

// ResultsStore is a thread-safe map of the latest result per event key.
// Stored results are replaced wholesale, never mutated in place.
type ResultsStore struct {
	mu      sync.RWMutex
	results map[string]*EventResult
}

func New() *ResultsStore {
	return &ResultsStore{
		results: make(map[string]*EventResult),
	}
}

func (s *ResultsStore) Get(eventKey string) (*EventResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[eventKey]
	return r, ok
}

func (s *ResultsStore) Put(r *EventResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[r.EventKey] = r
}

func (s *ResultsStore) Delete(eventKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.results, eventKey)
}

// Stale reports whether an input modified at mod needs recomputing.
func (s *ResultsStore) Stale(eventKey string, mod time.Time) bool {
	r, ok := s.Get(eventKey)
	return !ok || mod.After(r.SourceMod)
}

// All returns every result ordered by event key. Safe for iteration.
func (s *ResultsStore) All() []*EventResult {
	s.mu.RLock()
	out := make([]*EventResult, 0, len(s.results))
	for _, r := range s.results {
		out = append(out, r)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].EventKey < out[j].EventKey })
	return out
}

func (s *ResultsStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

// Events rebuilds the bus events for a result, predictions first.
func (r *EventResult) Events() []events.Event {
	var out []events.Event
	if r.Predictions != nil {
		out = append(out, events.New(events.EventPredictionsUpdated, r.EventKey, events.PredictionsUpdated{
			EventKey:    r.EventKey,
			Year:        r.Year,
			Predictions: r.Predictions,
		}))
	}
	if r.Ranking != nil {
		out = append(out, events.New(events.EventRankingsUpdated, r.EventKey, events.RankingsUpdated{
			EventKey:        r.EventKey,
			Year:            r.Year,
			LastPlayedMatch: r.Ranking.LastPlayedMatch,
			Ranking:         r.Ranking,
		}))
	}
	return out
}

// Latest returns the current events for one event key, or for every event
// when eventKey is "*".
func (s *ResultsStore) Latest(eventKey string) []events.Event {
	if eventKey != "*" {
		r, ok := s.Get(eventKey)
		if !ok {
			return nil
		}
		return r.Events()
	}
	var out []events.Event
	for _, r := range s.All() {
		out = append(out, r.Events()...)
	}
	return out
}
