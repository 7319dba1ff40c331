// Package orchestrator runs the estimator and predictor causally over an
// event's qualification and playoff phases.
package orchestrator

import (
	"time"

	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/estimator"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/match"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/predictor"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/rules"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/telemetry"
)

// Event is everything known about one event's schedule and results.
type Event struct {
	Key       string        `json:"key"`
	Year      int           `json:"year"`
	StartDate time.Time     `json:"start_date"`
	Matches   []match.Match `json:"matches"`
}

type PhaseName string

const (
	PhaseQual    PhaseName = "qual"
	PhasePlayoff PhaseName = "playoff"
)

// Phase is the output for one phase. MeanVars holds each statistic's final
// snapshot, the phase's contribution estimate after every played match.
type Phase struct {
	Predictions map[string]predictor.MatchPrediction `json:"predictions"`
	Order       []string                             `json:"order"`
	Stats       AccuracySummary                      `json:"stats"`
	MeanVars    map[string]estimator.Snapshot        `json:"mean_vars"`
}

// EventPredictions is the full output for one event. A phase with no
// matches is nil.
type EventPredictions struct {
	EventKey string `json:"event_key"`
	Year     int    `json:"year"`
	Qual     *Phase `json:"qual,omitempty"`
	Playoff  *Phase `json:"playoff,omitempty"`
}

// Predictions merges both phases' predictions keyed by match key.
func (ep *EventPredictions) Predictions() map[string]predictor.MatchPrediction {
	out := make(map[string]predictor.MatchPrediction)
	for _, p := range []*Phase{ep.Qual, ep.Playoff} {
		if p == nil {
			continue
		}
		for k, v := range p.Predictions {
			out[k] = v
		}
	}
	return out
}

// Run predicts every match of ev. It returns nil when the event has no
// matches or its season is not in table; both mean "nothing to predict".
// priors may be nil.
func Run(table rules.Table, ev Event, priors estimator.PriorSource) *EventPredictions {
	if len(ev.Matches) == 0 {
		return nil
	}
	season, ok := table.Lookup(ev.Year)
	if !ok {
		telemetry.Debugf("[PREDICT] %s: no rules for season %d", ev.Key, ev.Year)
		return nil
	}
	if priors == nil {
		priors = estimator.NoPriors{}
	}

	quals, playoffs := match.SplitPhases(ev.Matches)
	telemetry.Debugf("[PREDICT] %s: %d qual, %d playoff matches", ev.Key, len(quals), len(playoffs))
	return &EventPredictions{
		EventKey: ev.Key,
		Year:     ev.Year,
		Qual:     runPhase(season, quals, priors, PhaseQual),
		Playoff:  runPhase(season, playoffs, priors, PhasePlayoff),
	}
}

// runPhase restarts estimation from the priors; contributions are assumed
// to shift between phases.
func runPhase(season rules.Season, matches []match.Match, priors estimator.PriorSource, name PhaseName) *Phase {
	if len(matches) == 0 {
		return nil
	}

	series := make(map[string][]estimator.Snapshot, len(season.Stats))
	for _, st := range season.Stats {
		series[st.Name] = estimator.Run(st, matches, priors)
	}

	phase := &Phase{
		Predictions: make(map[string]predictor.MatchPrediction, len(matches)),
		Order:       make([]string, 0, len(matches)),
		MeanVars:    make(map[string]estimator.Snapshot, len(season.Stats)),
	}
	acc := newAccuracy()
	for i, m := range matches {
		before := make(predictor.Snapshots, len(series))
		for stat, snaps := range series {
			before[stat] = snaps[i]
		}
		pred := predictor.Predict(season, m, before)
		phase.Predictions[m.Key] = pred
		phase.Order = append(phase.Order, m.Key)
		if m.HasBeenPlayed() {
			acc.record(season, m, pred, name == PhaseQual)
		}
	}
	for stat, snaps := range series {
		phase.MeanVars[stat] = snaps[len(snaps)-1]
	}
	phase.Stats = acc.Summary()
	return phase
}
