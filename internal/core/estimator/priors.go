package estimator

import "sync"

// HistoryDecay weights a team's earlier-event history: the entry d events
// back counts HistoryDecay^d.
const HistoryDecay = 0.1

// PriorSource supplies contribution history from earlier events of the same
// season. It is read-only from the estimator's point of view.
type PriorSource interface {
	// History returns the team's final contributions to stat at earlier
	// events, most recent first. Nil when the team has none.
	History(team, stat string) []Contribution
}

// NoPriors is a PriorSource with no history; every team falls back to the
// event average or the season default.
type NoPriors struct{}

func (NoPriors) History(string, string) []Contribution { return nil }

type historyKey struct {
	team string
	stat string
}

// HistoryIndex is an in-memory PriorSource. Entries are added oldest first.
type HistoryIndex struct {
	mu      sync.RWMutex
	entries map[historyKey][]Contribution
}

func NewHistoryIndex() *HistoryIndex {
	return &HistoryIndex{entries: make(map[historyKey][]Contribution)}
}

// Add appends one event's final contribution for a team. Calls must be made
// in chronological event order.
func (h *HistoryIndex) Add(team, stat string, c Contribution) {
	h.mu.Lock()
	defer h.mu.Unlock()
	k := historyKey{team, stat}
	h.entries[k] = append(h.entries[k], c)
}

func (h *HistoryIndex) History(team, stat string) []Contribution {
	h.mu.RLock()
	defer h.mu.RUnlock()
	src := h.entries[historyKey{team, stat}]
	if len(src) == 0 {
		return nil
	}
	out := make([]Contribution, len(src))
	for i, c := range src {
		out[len(src)-1-i] = c
	}
	return out
}

// Len is the number of (team, stat) pairs with history.
func (h *HistoryIndex) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// decayedAverage weights hist (most recent first) by HistoryDecay^d.
func decayedAverage(hist []Contribution, pick func(Contribution) float64) float64 {
	var num, den float64
	w := 1.0
	for _, c := range hist {
		num += w * pick(c)
		den += w
		w *= HistoryDecay
	}
	return num / den
}

func meanOf(c Contribution) float64 { return c.Mean }
func varOf(c Contribution) float64  { return c.Var }
