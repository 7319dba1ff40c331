// Package predictor turns per-statistic contribution snapshots into a match
// outcome prediction.
package predictor

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/estimator"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/match"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/rules"
)

// AlliancePrediction is one color's predicted outcome.
type AlliancePrediction struct {
	Score    float64                           `json:"score"`
	ScoreVar float64                           `json:"score_var"`
	Stats    map[string]estimator.Contribution `json:"stats"`
	Probs    map[string]float64                `json:"probs,omitempty"`
}

// MatchPrediction is the full prediction for one match.
//
// Tied is set when both predicted scores are exactly equal. WinningAlliance
// is then red, the first-listed color; the label does not resolve the tie.
type MatchPrediction struct {
	Alliances       map[match.Color]AlliancePrediction `json:"alliances"`
	WinningAlliance match.Color                        `json:"winning_alliance"`
	Prob            float64                            `json:"prob"`
	Tied            bool                               `json:"tied,omitempty"`
}

// Alliance returns one color's prediction.
func (p MatchPrediction) Alliance(c match.Color) AlliancePrediction { return p.Alliances[c] }

// Snapshots holds one estimator snapshot per statistic name, all taken
// before the same match.
type Snapshots map[string]estimator.Snapshot

// Predict builds the prediction for m. Teams missing from a snapshot use the
// season's default prior for that statistic.
func Predict(season rules.Season, m match.Match, snaps Snapshots) MatchPrediction {
	bonuses := season.BonusRules()
	pred := MatchPrediction{Alliances: make(map[match.Color]AlliancePrediction, len(match.Colors))}

	for _, c := range match.Colors {
		ap := AlliancePrediction{
			Stats: make(map[string]estimator.Contribution, len(season.Stats)),
			Probs: make(map[string]float64),
		}
		for _, st := range season.Stats {
			ap.Stats[st.Name] = allianceSum(st, m.Teams(c), snaps[st.Name])
		}

		score := ap.Stats[rules.ScoreStat]
		ap.Score, ap.ScoreVar = score.Mean, score.Var

		for _, st := range season.Stats {
			b, ok := bonuses[st.Name]
			if !ok {
				continue
			}
			p := BonusProbability(ap.Stats[st.Name], b.Threshold)
			ap.Probs[rules.ProbKey(b.Name)] = p
			if m.CompLevel.IsPlayoff() {
				ap.Score += p * b.PlayoffPoints
			}
		}
		if season.Derive != nil {
			season.Derive(ap.Probs)
		}
		pred.Alliances[c] = ap
	}

	red, blue := pred.Alliances[match.Red], pred.Alliances[match.Blue]
	switch {
	case red.Score > blue.Score:
		pred.WinningAlliance = match.Red
	case blue.Score > red.Score:
		pred.WinningAlliance = match.Blue
	default:
		pred.WinningAlliance = match.Colors[0]
		pred.Tied = true
	}
	pred.Prob = WinProbability(red.Score, red.ScoreVar, blue.Score, blue.ScoreVar)
	return pred
}

func allianceSum(st rules.Stat, teams []string, snap estimator.Snapshot) estimator.Contribution {
	var out estimator.Contribution
	for _, team := range teams {
		c, ok := snap[team]
		if !ok {
			c = estimator.Contribution{Mean: st.PriorMean, Var: st.PriorVar}
		}
		out.Mean += c.Mean
		out.Var += c.Var
	}
	return out
}

// BonusProbability is P(value ≥ threshold) for a normal alliance value.
// With zero variance it is a step at the threshold.
func BonusProbability(c estimator.Contribution, threshold float64) float64 {
	if c.Var <= 0 {
		if c.Mean >= threshold {
			return 1
		}
		return 0
	}
	return distuv.UnitNormal.CDF((c.Mean - threshold) / math.Sqrt(c.Var))
}

// WinProbability is the probability that the predicted winner wins. Zero
// combined variance carries no information and yields 0.5.
func WinProbability(redScore, redVar, blueScore, blueVar float64) float64 {
	combined := redVar + blueVar
	if combined <= 0 {
		return 0.5
	}
	p := distuv.UnitNormal.CDF(math.Abs(redScore-blueScore) / math.Sqrt(combined))
	if math.IsNaN(p) {
		return 0.5
	}
	return p
}
