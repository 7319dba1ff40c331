package orchestrator

import (
	"math"

	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/match"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/predictor"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/rules"
)

// WinLossKey is the Brier accumulator for the match winner.
const WinLossKey = "win_loss"

// ConfidentProb is the win probability above which a prediction counts as
// confident.
const ConfidentProb = 0.75

type brier struct {
	sum   float64
	count int
}

func (b *brier) add(p, outcome float64) {
	b.sum += (p - outcome) * (p - outcome)
	b.count++
}

// Accuracy accumulates benchmarks over the played matches of one phase.
type Accuracy struct {
	Played           int
	Confident        int
	Correct          int
	CorrectConfident int

	errSum   float64
	errSqSum float64
	errCount int

	brier map[string]*brier
}

func newAccuracy() *Accuracy {
	return &Accuracy{brier: make(map[string]*brier)}
}

func (a *Accuracy) brierFor(key string) *brier {
	b, ok := a.brier[key]
	if !ok {
		b = &brier{}
		a.brier[key] = b
	}
	return b
}

// record folds one played match. Ranking bonus outcomes are scored only
// when withBonuses is set and the match carries a breakdown.
func (a *Accuracy) record(season rules.Season, m match.Match, pred predictor.MatchPrediction, withBonuses bool) {
	a.Played++
	confident := pred.Prob > ConfidentProb
	if confident {
		a.Confident++
	}

	winner, tie := m.Winner()
	if !tie && winner == pred.WinningAlliance {
		a.Correct++
		if confident {
			a.CorrectConfident++
		}
		for _, c := range match.Colors {
			e := math.Abs(pred.Alliance(c).Score - float64(m.Alliances[c].Score))
			a.errSum += e
			a.errSqSum += e * e
			a.errCount++
		}
	}

	redProb := pred.Prob
	if pred.WinningAlliance != match.Red {
		redProb = 1 - pred.Prob
	}
	outcome := 0.5
	if !tie {
		outcome = 0
		if winner == match.Red {
			outcome = 1
		}
	}
	a.brierFor(WinLossKey).add(redProb, outcome)

	if !withBonuses || season.Ranking == nil || !m.HasBreakdown() {
		return
	}
	for _, c := range match.Colors {
		actual := season.Ranking(m.ScoreBreakdown[c])
		probs := pred.Alliance(c).Probs
		for i, key := range season.RankingProbs {
			p, ok := probs[key]
			if !ok || i >= len(actual.BonusRP) {
				continue
			}
			hit := 0.0
			if actual.BonusRP[i] {
				hit = 1
			}
			a.brierFor(key).add(p, hit)
		}
	}
}

// AccuracySummary is the reported benchmark for one phase. Accuracies are
// percentages; ErrMean and ErrVar describe the absolute alliance score error
// over correctly predicted matches.
type AccuracySummary struct {
	Played            int                `json:"played"`
	Confident         int                `json:"confident"`
	WinLossAccuracy   float64            `json:"win_loss_accuracy"`
	WinLossAccuracy75 float64            `json:"win_loss_accuracy_75"`
	ErrMean           float64            `json:"err_mean"`
	ErrVar            float64            `json:"err_var"`
	Brier             map[string]float64 `json:"brier_scores"`
}

func (a *Accuracy) Summary() AccuracySummary {
	s := AccuracySummary{
		Played:    a.Played,
		Confident: a.Confident,
		Brier:     make(map[string]float64, len(a.brier)),
	}
	if a.Played > 0 {
		s.WinLossAccuracy = 100 * float64(a.Correct) / float64(a.Played)
	}
	if a.Confident > 0 {
		s.WinLossAccuracy75 = 100 * float64(a.CorrectConfident) / float64(a.Confident)
	}
	if a.errCount > 0 {
		n := float64(a.errCount)
		s.ErrMean = a.errSum / n
		s.ErrVar = math.Max(0, a.errSqSum/n-s.ErrMean*s.ErrMean)
	}
	for key, b := range a.brier {
		if b.count > 0 {
			s.Brier[key] = b.sum / float64(b.count)
		}
	}
	return s
}
