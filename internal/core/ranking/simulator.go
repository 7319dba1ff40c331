// Package ranking projects final qualification standings by replaying the
// unplayed part of the schedule many times.
package ranking

import (
	"math/rand/v2"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/match"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/predictor"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/rules"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/telemetry"
)

const DefaultReplays = 1000

// Simulator configures a projection run. Zero values select the defaults:
// DefaultReplays replays and one worker per CPU.
type Simulator struct {
	Replays int
	Seed    uint64
	Workers int
}

// TeamProjection summarises one team over all replays.
type TeamProjection struct {
	Team       string  `json:"team"`
	MeanRank   float64 `json:"mean_rank"`
	MinRank    int     `json:"min_rank"`
	MedianRank float64 `json:"median_rank"`
	MaxRank    int     `json:"max_rank"`
	MeanRP     float64 `json:"mean_rp"`
	MinRP      int     `json:"min_rp"`
	MaxRP      int     `json:"max_rp"`
}

// Result is the projected standings, best mean rank first. LastPlayedMatch
// is the key of the latest played qualification match, empty if none.
type Result struct {
	Teams           []TeamProjection `json:"teams"`
	LastPlayedMatch string           `json:"last_played_match"`
	Replays         int              `json:"replays"`
}

// slot is one team appearance in one alliance.
type slot struct {
	team    int
	counted bool // false for a surrogate appearance beyond the quota
	dq      bool
}

type plannedMatch struct {
	slots  [2][]slot
	played bool

	// Played matches.
	winner   match.Color
	tie      bool
	outcomes [2]rules.RankingOutcome

	// Unplayed matches.
	pred predictor.MatchPrediction
}

type schedule struct {
	season  rules.Season
	teams   []string
	matches []plannedMatch
	lastKey string
}

// Simulate projects standings for the qualification matches in matches.
// ok is false when there is nothing to rank: no qualification matches, no
// teams in them, a played match without a score breakdown, or an unplayed match without a
// prediction.
func (s Simulator) Simulate(season rules.Season, matches []match.Match, preds map[string]predictor.MatchPrediction) (*Result, bool) {
	sched, ok := plan(season, matches, preds)
	if !ok {
		return nil, false
	}

	replays := s.Replays
	if replays <= 0 {
		replays = DefaultReplays
	}
	workers := s.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	baseRP, baseTB := sched.playedTotals()
	ranks := make([][]int, replays)
	rps := make([][]int, replays)

	var g errgroup.Group
	g.SetLimit(workers)
	for r := 0; r < replays; r++ {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(s.Seed, uint64(r)))
			ranks[r], rps[r] = sched.replay(rng, baseRP, baseTB)
			return nil
		})
	}
	_ = g.Wait()

	return &Result{
		Teams:           aggregate(sched.teams, ranks, rps),
		LastPlayedMatch: sched.lastKey,
		Replays:         replays,
	}, true
}

func plan(season rules.Season, matches []match.Match, preds map[string]predictor.MatchPrediction) (*schedule, bool) {
	var quals []match.Match
	for _, m := range matches {
		if m.CompLevel == match.CompLevelQual {
			quals = append(quals, m)
		}
	}
	if len(quals) == 0 {
		return nil, false
	}
	match.SortByPlayOrder(quals)

	teams := match.TeamsInOrder(quals)
	if len(teams) == 0 {
		return nil, false
	}
	index := make(map[string]int, len(teams))
	for i, t := range teams {
		index[t] = i
	}
	appearances := make([]int, len(teams))
	for _, m := range quals {
		for _, c := range match.Colors {
			for _, t := range m.Teams(c) {
				appearances[index[t]]++
			}
		}
	}
	quota := appearances[0]
	for _, n := range appearances[1:] {
		quota = min(quota, n)
	}

	sched := &schedule{season: season, teams: teams, matches: make([]plannedMatch, len(quals))}
	for i, m := range quals {
		pm := &sched.matches[i]
		for ci, c := range match.Colors {
			a := m.Alliances[c]
			for _, t := range a.Teams {
				ti := index[t]
				pm.slots[ci] = append(pm.slots[ci], slot{
					team:    ti,
					counted: !(a.IsSurrogate(t) && appearances[ti] > quota),
					dq:      a.IsDQ(t),
				})
			}
		}

		if m.HasBeenPlayed() {
			if !m.HasBreakdown() || season.Ranking == nil {
				telemetry.Debugf("[RANKING] %s played without a score breakdown, skipping", m.Key)
				return nil, false
			}
			pm.played = true
			pm.winner, pm.tie = m.Winner()
			for ci, c := range match.Colors {
				pm.outcomes[ci] = season.Ranking(m.ScoreBreakdown[c])
			}
			sched.lastKey = m.Key
			continue
		}
		pred, ok := preds[m.Key]
		if !ok {
			telemetry.Debugf("[RANKING] %s has no prediction, skipping", m.Key)
			return nil, false
		}
		pm.pred = pred
	}
	return sched, true
}

// credit adds one alliance's result to the running totals.
func (sc *schedule) credit(rp []int, tb []float64, slots []slot, won, tie bool, bonus []bool, tiebreaker float64) {
	points := sc.season.MatchRP(won, tie)
	for _, b := range bonus {
		if b {
			points++
		}
	}
	for _, sl := range slots {
		if !sl.counted {
			continue
		}
		if !sl.dq {
			rp[sl.team] += points
		}
		tb[sl.team] += tiebreaker
	}
}

// playedTotals is the same for every replay.
func (sc *schedule) playedTotals() ([]int, []float64) {
	rp := make([]int, len(sc.teams))
	tb := make([]float64, len(sc.teams))
	for _, pm := range sc.matches {
		if !pm.played {
			continue
		}
		for ci, c := range match.Colors {
			won := !pm.tie && pm.winner == c
			o := pm.outcomes[ci]
			sc.credit(rp, tb, pm.slots[ci], won, pm.tie, o.BonusRP, o.Tiebreaker)
		}
	}
	return rp, tb
}

func (sc *schedule) replay(rng *rand.Rand, baseRP []int, baseTB []float64) (ranks, rp []int) {
	rp = append([]int(nil), baseRP...)
	tb := append([]float64(nil), baseTB...)

	bonus := make([]bool, len(sc.season.RankingProbs))
	for _, pm := range sc.matches {
		if pm.played {
			continue
		}
		winner := pm.pred.WinningAlliance
		if rng.Float64() >= pm.pred.Prob {
			winner = winner.Opponent()
		}
		tie := pm.pred.Tied
		for ci, c := range match.Colors {
			ap := pm.pred.Alliance(c)
			for i, key := range sc.season.RankingProbs {
				bonus[i] = rng.Float64() < ap.Probs[key]
			}
			sc.credit(rp, tb, pm.slots[ci], !tie && winner == c, tie, bonus, ap.Score)
		}
	}

	order := make([]int, len(sc.teams))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if rp[a] != rp[b] {
			return rp[a] > rp[b]
		}
		return tb[a] > tb[b]
	})
	ranks = make([]int, len(sc.teams))
	for pos, team := range order {
		ranks[team] = pos + 1
	}
	return ranks, rp
}

func aggregate(teams []string, ranks, rps [][]int) []TeamProjection {
	n := len(ranks)
	out := make([]TeamProjection, len(teams))
	col := make([]int, n)
	for ti, team := range teams {
		p := TeamProjection{Team: team, MinRank: ranks[0][ti], MaxRank: ranks[0][ti], MinRP: rps[0][ti], MaxRP: rps[0][ti]}
		var rankSum, rpSum int
		for r := 0; r < n; r++ {
			rank, rp := ranks[r][ti], rps[r][ti]
			col[r] = rank
			rankSum += rank
			rpSum += rp
			p.MinRank, p.MaxRank = min(p.MinRank, rank), max(p.MaxRank, rank)
			p.MinRP, p.MaxRP = min(p.MinRP, rp), max(p.MaxRP, rp)
		}
		p.MeanRank = float64(rankSum) / float64(n)
		p.MeanRP = float64(rpSum) / float64(n)
		p.MedianRank = median(col)
		out[ti] = p
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MeanRank < out[j].MeanRank })
	return out
}

// median sorts xs in place.
func median(xs []int) float64 {
	sort.Ints(xs)
	mid := len(xs) / 2
	if len(xs)%2 == 1 {
		return float64(xs[mid])
	}
	return float64(xs[mid-1]+xs[mid]) / 2
}
