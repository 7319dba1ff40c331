package events

import (
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/orchestrator"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/ranking"
)

// PredictionsUpdated is published after an event's match predictions are
// recomputed.
type PredictionsUpdated struct {
	EventKey    string                         `json:"event_key"`
	Year        int                            `json:"year"`
	Predictions *orchestrator.EventPredictions `json:"predictions"`
}

// RankingsUpdated is published after an event's ranking projection is
// recomputed. LastPlayedMatch lets subscribers detect stale projections.
type RankingsUpdated struct {
	EventKey        string          `json:"event_key"`
	Year            int             `json:"year"`
	LastPlayedMatch string          `json:"last_played_match"`
	Ranking         *ranking.Result `json:"ranking"`
}
