// Package estimator infers each team's hidden contribution to an alliance
// statistic from the alliance totals observed so far. Estimates are causal:
// the snapshot taken before match i is built only from matches before i.
package estimator

import (
	"math"

	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/match"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/rules"
)

// Contribution is a team's estimated per-match contribution to a statistic.
type Contribution struct {
	Mean float64 `json:"mean"`
	Var  float64 `json:"var"`
}

// Snapshot maps team key to its contribution as of one point in a phase.
type Snapshot map[string]Contribution

// Estimator tracks one statistic over one phase of one event. Teams enter
// scope in roster order as their first match is reached; results only enter
// through Observe.
type Estimator struct {
	stat  rules.Stat
	teams []string
	index map[string]int

	histMean []float64
	histVar  []float64
	hasHist  []bool

	// peerSum[k] and peers[k] total the most recent history mean over the
	// first k roster teams that have any.
	peerSum []float64
	peers   []int
}

// New builds an estimator for roster, which must list teams in order of
// first appearance (see match.TeamsInOrder).
func New(stat rules.Stat, roster []string, priors PriorSource) *Estimator {
	if priors == nil {
		priors = NoPriors{}
	}
	n := len(roster)
	e := &Estimator{
		stat:     stat,
		teams:    roster,
		index:    make(map[string]int, n),
		histMean: make([]float64, n),
		histVar:  make([]float64, n),
		hasHist:  make([]bool, n),
		peerSum:  make([]float64, n+1),
		peers:    make([]int, n+1),
	}

	for i, team := range roster {
		e.index[team] = i
		e.peerSum[i+1], e.peers[i+1] = e.peerSum[i], e.peers[i]
		hist := priors.History(team, stat.Name)
		if len(hist) == 0 {
			continue
		}
		e.hasHist[i] = true
		e.histMean[i] = decayedAverage(hist, meanOf)
		e.histVar[i] = decayedAverage(hist, varOf)
		e.peerSum[i+1] += hist[0].Mean
		e.peers[i+1]++
	}
	return e
}

// Stat returns the tracked statistic.
func (e *Estimator) Stat() rules.Stat { return e.stat }

// extent is the roster prefix covering s's teams plus m's.
func (e *Estimator) extent(s State, m match.Match) int {
	n := s.seen
	for _, c := range match.Colors {
		for _, team := range m.Teams(c) {
			if i, ok := e.index[team]; ok && i >= n {
				n = i + 1
			}
		}
	}
	return n
}

// priorMeans resolves the mean prior of the first scope teams: own history,
// then the average over teams already in s, then the running event average,
// then the season default.
func (e *Estimator) priorMeans(s State, scope int) []float64 {
	eventAvg, hasEventAvg := s.EventAverage()
	var peerMean float64
	hasPeer := e.peers[s.seen] > 0
	if hasPeer {
		peerMean = e.peerSum[s.seen] / float64(e.peers[s.seen])
	}
	out := make([]float64, scope)
	for i := range out {
		switch {
		case e.hasHist[i]:
			out[i] = e.histMean[i]
		case hasPeer:
			out[i] = peerMean
		case hasEventAvg:
			out[i] = eventAvg
		default:
			out[i] = e.stat.PriorMean
		}
	}
	return out
}

// priorVars has no peer or event fallback.
func (e *Estimator) priorVars(scope int) []float64 {
	out := make([]float64, scope)
	for i := range out {
		if e.hasHist[i] {
			out[i] = e.histVar[i]
		} else {
			out[i] = e.stat.PriorVar
		}
	}
	return out
}

// Estimate produces the snapshot implied by everything folded into s. It
// covers the teams of the matches folded so far.
func (e *Estimator) Estimate(s State) Snapshot {
	return e.estimate(s, s.seen)
}

// Before is the snapshot valid before m: Estimate(s) widened to m's teams.
// Teams first seen in m only get priors; the peer average still comes from
// earlier matches.
func (e *Estimator) Before(s State, m match.Match) Snapshot {
	return e.estimate(s, e.extent(s, m))
}

func (e *Estimator) estimate(s State, scope int) Snapshot {
	means := solveMMSE(e.priorMeans(s, scope), s.rows, func(o observation) float64 { return o.value })
	vars := solveMMSE(e.priorVars(scope), s.rows, func(o observation) float64 { return o.outcomeVar })

	snap := make(Snapshot, scope)
	for i, team := range e.teams[:scope] {
		snap[team] = Contribution{Mean: means[i], Var: math.Max(0, vars[i])}
	}
	return snap
}

// Observe folds a match's results into s. before must be the snapshot taken
// before m; it supplies the predicted alliance means that the best-fit
// outcome variance is measured against. m's teams always enter scope;
// unplayed matches and alliances whose statistic cannot be extracted add
// no rows.
func (e *Estimator) Observe(s State, m match.Match, before Snapshot) State {
	s.seen = e.extent(s, m)
	for _, c := range match.Colors {
		r, ok := m.Result(c)
		if !ok {
			return s
		}
		value, ok := e.stat.Extract(r)
		if !ok {
			continue
		}

		var members []int
		var predicted float64
		for _, team := range m.Teams(c) {
			i, known := e.index[team]
			if !known {
				continue
			}
			members = append(members, i)
			predicted += before[team].Mean
		}
		if len(members) == 0 {
			continue
		}
		s = s.with(observation{
			members:    members,
			value:      value,
			outcomeVar: BestFitVariance(value, predicted),
		})
	}
	return s
}

// Run folds stat over a phase's matches, already in play order, and returns
// len(matches)+1 snapshots: entry i is valid before match i and the last is
// the phase's final estimate. No matches yields nil.
func Run(stat rules.Stat, matches []match.Match, priors PriorSource) []Snapshot {
	if len(matches) == 0 {
		return nil
	}
	e := New(stat, match.TeamsInOrder(matches), priors)
	snaps := make([]Snapshot, 0, len(matches)+1)
	var s State
	for _, m := range matches {
		before := e.Before(s, m)
		snaps = append(snaps, before)
		s = e.Observe(s, m, before)
	}
	return append(snaps, e.Estimate(s))
}
