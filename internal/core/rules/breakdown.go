package rules

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/match"
)

// num reads a numeric breakdown field. Missing or malformed fields read as 0.
func num(b match.Breakdown, key string) float64 {
	switch v := b[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	}
	return 0
}

func sum(b match.Breakdown, keys ...string) float64 {
	var total float64
	for _, k := range keys {
		total += num(b, k)
	}
	return total
}

// flag reads a boolean breakdown field. Some seasons encode booleans as
// strings ("Yes", "true").
func flag(b match.Breakdown, key string) bool {
	switch v := b[key].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case int:
		return v != 0
	case string:
		s := strings.ToLower(v)
		return s == "true" || s == "yes"
	}
	return false
}

func countFlags(b match.Breakdown, keys ...string) int {
	n := 0
	for _, k := range keys {
		if flag(b, k) {
			n++
		}
	}
	return n
}

func listLen(b match.Breakdown, key string) float64 {
	if l, ok := b[key].([]any); ok {
		return float64(len(l))
	}
	return 0
}

func flags(b match.Breakdown, keys ...string) []bool {
	out := make([]bool, len(keys))
	for i, k := range keys {
		out[i] = flag(b, k)
	}
	return out
}

// scoreExtractor reads the alliance's match score. It never needs a breakdown.
func scoreExtractor(r match.Result) (float64, bool) {
	return float64(r.Score), true
}

// fromBreakdown wraps a breakdown reader into an Extractor that declines
// results without a breakdown.
func fromBreakdown(f func(b match.Breakdown) float64) Extractor {
	return func(r match.Result) (float64, bool) {
		if r.Breakdown == nil {
			return 0, false
		}
		return f(r.Breakdown), true
	}
}

func field(key string) Extractor {
	return fromBreakdown(func(b match.Breakdown) float64 { return num(b, key) })
}

func scoreStat(mean, variance float64) Stat {
	return Stat{Name: ScoreStat, PriorMean: mean, PriorVar: variance, Extract: scoreExtractor}
}

// unitStat is a secondary statistic with the conventional (0, 1) prior.
func unitStat(name string, extract Extractor) Stat {
	return Stat{Name: name, PriorMean: 0, PriorVar: 1, Extract: extract}
}

func rankingFrom(tiebreaker string, rpKeys ...string) func(match.Breakdown) RankingOutcome {
	return func(b match.Breakdown) RankingOutcome {
		return RankingOutcome{BonusRP: flags(b, rpKeys...), Tiebreaker: num(b, tiebreaker)}
	}
}
