// Package rules is the single place where season-specific scoring knowledge
// lives: which statistics are tracked, how each one is read out of a score
// breakdown, what bonus thresholds exist and how ranking points are earned.
package rules

import (
	"fmt"
	"sort"

	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/match"
)

// ScoreStat is tracked for every season and forms the base predicted score.
const ScoreStat = "score"

// Extractor reads one statistic's alliance-level value from a played
// alliance result. ok is false when the value cannot be derived (for
// example the match has no score breakdown).
type Extractor func(r match.Result) (value float64, ok bool)

// Stat is a tracked statistic with its default prior.
type Stat struct {
	Name      string
	PriorMean float64
	PriorVar  float64
	Extract   Extractor
}

// Bonus is a threshold on a statistic. The predicted probability of crossing
// it is reported as ProbKey(Name). In elimination matches the probability
// weighted PlayoffPoints are added to the predicted score.
type Bonus struct {
	Name          string
	Stat          string
	Threshold     float64
	PlayoffPoints float64
}

// RankingOutcome is what one alliance earned toward rankings in a played
// qualification match, beyond the win/tie/loss points.
type RankingOutcome struct {
	BonusRP    []bool
	Tiebreaker float64
}

// Season is one year's scoring game.
type Season struct {
	Year    int
	Stats   []Stat
	Bonuses []Bonus

	// Derive adds compounded probabilities to an alliance's probability map.
	// Nil for seasons without compound conditions.
	Derive func(probs map[string]float64)

	// RankingProbs names the predicted probabilities matching each entry of
	// RankingOutcome.BonusRP, in the same order.
	RankingProbs []string
	Ranking      func(b match.Breakdown) RankingOutcome

	WinRP int
	TieRP int
}

// ProbKey is the prediction key for a bonus or derived probability.
func ProbKey(name string) string { return "prob_" + name }

// Stat returns the named statistic. An unknown name is a programming error.
func (s Season) Stat(name string) Stat {
	for _, st := range s.Stats {
		if st.Name == name {
			return st
		}
	}
	panic(fmt.Sprintf("rules: season %d has no statistic %q", s.Year, name))
}

// Extract reads a statistic's alliance-level value from a played result.
func (s Season) Extract(stat string, r match.Result) (float64, bool) {
	return s.Stat(stat).Extract(r)
}

// BonusRules maps statistic name to its bonus rule.
func (s Season) BonusRules() map[string]Bonus {
	out := make(map[string]Bonus, len(s.Bonuses))
	for _, b := range s.Bonuses {
		out[b.Stat] = b
	}
	return out
}

// MatchRP returns the ranking points for a match outcome.
func (s Season) MatchRP(won, tied bool) int {
	switch {
	case won:
		return s.WinRP
	case tied:
		return s.TieRP
	default:
		return 0
	}
}

// Prior overrides a statistic's default prior.
type Prior struct {
	Mean float64
	Var  float64
}

// Table maps season year to its rules. It is built once and never mutated.
type Table struct {
	seasons map[int]Season
}

func NewTable(seasons ...Season) Table {
	t := Table{seasons: make(map[int]Season, len(seasons))}
	for _, s := range seasons {
		t.seasons[s.Year] = s
	}
	return t
}

var defaultTable = NewTable(
	season2016(),
	season2017(),
	season2018(),
	season2019(),
	season2020(),
	season2022(),
	season2023(),
	season2024(),
	season2025(),
)

// Default returns the built-in season table.
func Default() Table { return defaultTable }

// Lookup returns a season's rules. ok is false for unsupported seasons,
// which callers treat as "no prediction available".
func (t Table) Lookup(year int) (Season, bool) {
	s, ok := t.seasons[year]
	return s, ok
}

// StatisticsFor returns the ordered statistics tracked for a year, or nil.
func (t Table) StatisticsFor(year int) []Stat {
	return t.seasons[year].Stats
}

// Years lists supported seasons in ascending order.
func (t Table) Years() []int {
	years := make([]int, 0, len(t.seasons))
	for y := range t.seasons {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// WithPriors returns a copy of the table with stat priors replaced.
// Overrides for unknown seasons are ignored; an unknown stat name panics.
func (t Table) WithPriors(overrides map[int]map[string]Prior) Table {
	out := Table{seasons: make(map[int]Season, len(t.seasons))}
	for year, s := range t.seasons {
		ov, ok := overrides[year]
		if !ok {
			out.seasons[year] = s
			continue
		}
		stats := make([]Stat, len(s.Stats))
		copy(stats, s.Stats)
		for name, p := range ov {
			s.Stat(name)
			for i := range stats {
				if stats[i].Name == name {
					stats[i].PriorMean = p.Mean
					stats[i].PriorVar = p.Var
				}
			}
		}
		s.Stats = stats
		out.seasons[year] = s
	}
	return out
}
