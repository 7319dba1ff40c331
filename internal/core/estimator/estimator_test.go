package estimator

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/match"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/rules"
)

var scoreStat = rules.Stat{
	Name:      rules.ScoreStat,
	PriorMean: 0,
	PriorVar:  1,
	Extract: func(r match.Result) (float64, bool) {
		return float64(r.Score), true
	},
}

func qual(n int, red, blue []string, redScore, blueScore int) match.Match {
	return match.Match{
		Key:         match.DefaultKey("2017test", match.CompLevelQual, 1, n),
		EventKey:    "2017test",
		Year:        2017,
		CompLevel:   match.CompLevelQual,
		SetNumber:   1,
		MatchNumber: n,
		Alliances: map[match.Color]match.Alliance{
			match.Red:  {Teams: red, Score: redScore},
			match.Blue: {Teams: blue, Score: blueScore},
		},
	}
}

// syntheticEvent schedules n noiseless two-team-alliance matches among the
// given teams; each alliance scores exactly the sum of its members' truth.
func syntheticEvent(n int, truth map[string]int, teams []string, seed uint64) []match.Match {
	rng := rand.New(rand.NewPCG(seed, 0))
	out := make([]match.Match, 0, n)
	for i := 1; i <= n; i++ {
		p := rng.Perm(len(teams))
		red := []string{teams[p[0]], teams[p[1]]}
		blue := []string{teams[p[2]], teams[p[3]]}
		out = append(out, qual(i, red, blue,
			truth[red[0]]+truth[red[1]], truth[blue[0]]+truth[blue[1]]))
	}
	return out
}

func TestRunEmpty(t *testing.T) {
	assert.Nil(t, Run(scoreStat, nil, NoPriors{}))
}

func TestRunSnapshotCount(t *testing.T) {
	matches := []match.Match{
		qual(1, []string{"frc1", "frc2"}, []string{"frc3", "frc4"}, 10, 20),
		qual(2, []string{"frc1", "frc3"}, []string{"frc2", "frc4"}, 15, 15),
	}
	snaps := Run(scoreStat, matches, NoPriors{})
	require.Len(t, snaps, 3)
	for _, s := range snaps {
		assert.Len(t, s, 4)
	}
	// Nothing observed yet: every team sits on the season default.
	for _, c := range snaps[0] {
		assert.Equal(t, Contribution{Mean: 0, Var: 1}, c)
	}
}

func TestSnapshotsAreCausal(t *testing.T) {
	truth := map[string]int{"frc1": 10, "frc2": 20, "frc3": 30, "frc4": 40, "frc5": 50, "frc6": 60}
	teams := []string{"frc1", "frc2", "frc3", "frc4", "frc5", "frc6"}
	base := syntheticEvent(12, truth, teams, 7)

	hist := NewHistoryIndex()
	hist.Add("frc5", rules.ScoreStat, Contribution{Mean: 45, Var: 3})
	hist.Add("frc9", rules.ScoreStat, Contribution{Mean: 80, Var: 4})
	want := Run(scoreStat, base, hist)

	for cut := 0; cut < len(base); cut++ {
		mutated := make([]match.Match, len(base))
		copy(mutated, base)
		for i := cut; i < len(mutated); i++ {
			m := mutated[i]
			blue := append([]string{}, m.Teams(match.Blue)...)
			blue[len(blue)-1] = "frc9"
			m.Alliances = map[match.Color]match.Alliance{
				match.Red:  {Teams: m.Teams(match.Red), Score: 999},
				match.Blue: {Teams: blue, Score: match.Unplayed},
			}
			mutated[i] = m
		}
		got := Run(scoreStat, mutated, hist)
		for i := 0; i < cut; i++ {
			assert.Equal(t, want[i], got[i], "snapshot before match %d with matches from %d mutated", i, cut)
		}
		// Before the first mutated match, every team already seen keeps its
		// estimate even though the new team list is in scope.
		for _, team := range match.TeamsInOrder(base[:cut]) {
			assert.InDelta(t, want[cut][team].Mean, got[cut][team].Mean, 1e-9, "%s before match %d", team, cut)
			assert.InDelta(t, want[cut][team].Var, got[cut][team].Var, 1e-9, "%s before match %d", team, cut)
		}
	}
}

func TestPeerPriorOnlyUsesEarlierTeams(t *testing.T) {
	hist := NewHistoryIndex()
	hist.Add("frc9", rules.ScoreStat, Contribution{Mean: 80, Var: 4})
	base := []match.Match{
		qual(1, []string{"frc1", "frc2"}, []string{"frc3", "frc4"}, match.Unplayed, match.Unplayed),
		qual(2, []string{"frc1", "frc3"}, []string{"frc2", "frc4"}, match.Unplayed, match.Unplayed),
		qual(3, []string{"frc1", "frc4"}, []string{"frc2", "frc3"}, match.Unplayed, match.Unplayed),
		qual(4, []string{"frc1", "frc2"}, []string{"frc3", "frc4"}, match.Unplayed, match.Unplayed),
	}
	later := append([]match.Match{}, base...)
	later[3] = qual(4, []string{"frc1", "frc2"}, []string{"frc3", "frc9"}, match.Unplayed, match.Unplayed)

	want := Run(scoreStat, base, hist)
	got := Run(scoreStat, later, hist)
	assert.Equal(t, Contribution{Mean: 0, Var: 1}, got[0]["frc1"])
	assert.Equal(t, want[0], got[0])
	assert.NotContains(t, got[2], "frc9")

	// frc9 enters scope with its own history; teams without history only
	// pick up its mean once a match containing it has been folded.
	assert.Equal(t, Contribution{Mean: 80, Var: 4}, got[3]["frc9"])
	assert.Equal(t, 0.0, got[3]["frc1"].Mean)
	assert.Equal(t, 80.0, got[4]["frc1"].Mean)
}

func TestEstimatesConvergeToTruth(t *testing.T) {
	truth := map[string]int{"frc1": 10, "frc2": 20, "frc3": 30, "frc4": 40, "frc5": 50, "frc6": 60}
	teams := []string{"frc1", "frc2", "frc3", "frc4", "frc5", "frc6"}
	matches := syntheticEvent(60, truth, teams, 42)
	snaps := Run(scoreStat, matches, NoPriors{})

	meanAbsErr := func(s Snapshot) float64 {
		var total float64
		for team, v := range truth {
			total += math.Abs(s[team].Mean - float64(v))
		}
		return total / float64(len(truth))
	}

	early := meanAbsErr(snaps[5])
	mid := meanAbsErr(snaps[20])
	final := meanAbsErr(snaps[len(snaps)-1])
	assert.Less(t, mid, early)
	assert.Less(t, final, mid)
	assert.Less(t, final, 0.5)
}

func TestUnextractableAlliancesAreSkipped(t *testing.T) {
	gears := rules.Stat{Name: "gears", PriorMean: 0, PriorVar: 1, Extract: func(r match.Result) (float64, bool) {
		if r.Breakdown == nil {
			return 0, false
		}
		return 1, true
	}}
	matches := []match.Match{
		qual(1, []string{"frc1", "frc2"}, []string{"frc3", "frc4"}, 10, 20),
	}
	e := New(gears, match.TeamsInOrder(matches), NoPriors{})
	s := e.Observe(State{}, matches[0], e.Before(State{}, matches[0]))
	assert.Zero(t, s.Rows())
}

func TestObserveDoesNotAliasEarlierStates(t *testing.T) {
	matches := []match.Match{
		qual(1, []string{"frc1", "frc2"}, []string{"frc3", "frc4"}, 10, 20),
		qual(2, []string{"frc1", "frc3"}, []string{"frc2", "frc4"}, 15, 15),
		qual(3, []string{"frc1", "frc4"}, []string{"frc2", "frc3"}, 5, 30),
	}
	e := New(scoreStat, match.TeamsInOrder(matches), NoPriors{})
	s1 := e.Observe(State{}, matches[0], e.Before(State{}, matches[0]))
	before := e.Estimate(s1)

	a := e.Observe(s1, matches[1], before)
	b := e.Observe(s1, matches[2], before)
	require.Equal(t, 4, a.Rows())
	require.Equal(t, 4, b.Rows())
	assert.Equal(t, 2, s1.Rows())
	assert.Equal(t, before, e.Estimate(s1))
	assert.NotEqual(t, e.Estimate(a), e.Estimate(b))
}

func TestPriorFallbackChain(t *testing.T) {
	hist := NewHistoryIndex()
	hist.Add("frc1", rules.ScoreStat, Contribution{Mean: 20, Var: 4})
	hist.Add("frc1", rules.ScoreStat, Contribution{Mean: 10, Var: 2})
	hist.Add("frc2", rules.ScoreStat, Contribution{Mean: 30, Var: 9})

	matches := []match.Match{
		qual(1, []string{"frc1"}, []string{"frc2"}, match.Unplayed, match.Unplayed),
		qual(2, []string{"frc1"}, []string{"frc3"}, match.Unplayed, match.Unplayed),
	}
	e := New(scoreStat, match.TeamsInOrder(matches), hist)
	s := e.Observe(State{}, matches[0], e.Before(State{}, matches[0]))
	snap := e.Before(s, matches[1])

	assert.InDelta(t, (10+0.1*20)/1.1, snap["frc1"].Mean, 1e-9)
	assert.InDelta(t, (2+0.1*4)/1.1, snap["frc1"].Var, 1e-9)
	assert.InDelta(t, 30, snap["frc2"].Mean, 1e-9)
	// No history: peer average of most recent means, default variance.
	assert.InDelta(t, 20, snap["frc3"].Mean, 1e-9)
	assert.InDelta(t, scoreStat.PriorVar, snap["frc3"].Var, 1e-9)
	assert.Len(t, e.Estimate(State{}), 0)
}

func TestPriorFallsBackToEventAverage(t *testing.T) {
	matches := []match.Match{
		qual(1, []string{"frc1", "frc2"}, []string{"frc3", "frc4"}, 10, 30),
		qual(2, []string{"frc5", "frc6"}, []string{"frc7", "frc8"}, match.Unplayed, match.Unplayed),
	}
	snaps := Run(scoreStat, matches, NoPriors{})
	require.Len(t, snaps, 3)
	// frc5 has played nothing; its estimate is the event average 40/4.
	assert.InDelta(t, 10, snaps[1]["frc5"].Mean, 1e-9)
	assert.InDelta(t, scoreStat.PriorVar, snaps[1]["frc5"].Var, 1e-9)
	assert.Equal(t, snaps[1], snaps[2])
}

func TestHistoryIndexOrder(t *testing.T) {
	h := NewHistoryIndex()
	assert.Nil(t, h.History("frc1", "score"))
	h.Add("frc1", "score", Contribution{Mean: 1})
	h.Add("frc1", "score", Contribution{Mean: 2})
	got := h.History("frc1", "score")
	require.Len(t, got, 2)
	assert.Equal(t, 2.0, got[0].Mean)
	assert.Equal(t, 1.0, got[1].Mean)
	assert.Equal(t, 1, h.Len())
}

func TestMaximizeUnimodal(t *testing.T) {
	tests := []struct {
		name   string
		f      func(float64) float64
		lo, hi float64
		want   float64
	}{
		{"interior peak", func(x float64) float64 { return -(x - 3) * (x - 3) }, 0, 10, 3},
		{"peak at lower bound", func(x float64) float64 { return -x }, 1, 100, 1},
		{"peak at upper bound", func(x float64) float64 { return x }, 1, 100, 100},
		{"swapped bounds", func(x float64) float64 { return -(x - 7) * (x - 7) }, 10, 0, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, MaximizeUnimodal(tt.f, tt.lo, tt.hi, 1e-6), 1e-4)
		})
	}
}

func TestBestFitVariance(t *testing.T) {
	assert.InDelta(t, 100, BestFitVariance(60, 50), 0.5)
	assert.Equal(t, MinOutcomeVar, BestFitVariance(50, 50))
	assert.Equal(t, MaxOutcomeVar, BestFitVariance(1000, 0))
}
