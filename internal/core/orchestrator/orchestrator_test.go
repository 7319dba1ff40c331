package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/match"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/rules"
)

var (
	red  = []string{"frc254", "frc971", "frc1678"}
	blue = []string{"frc118", "frc148", "frc2056"}
)

func steamworks(level match.CompLevel, set, n, redScore, blueScore int) match.Match {
	m := match.Match{
		Key:         match.DefaultKey("2017casj", level, set, n),
		EventKey:    "2017casj",
		Year:        2017,
		CompLevel:   level,
		SetNumber:   set,
		MatchNumber: n,
		Alliances: map[match.Color]match.Alliance{
			match.Red:  {Teams: red, Score: redScore},
			match.Blue: {Teams: blue, Score: blueScore},
		},
	}
	if redScore != match.Unplayed {
		m.ScoreBreakdown = map[match.Color]match.Breakdown{
			match.Red:  {"autoFuelPoints": 10.0, "teleopFuelPoints": 35.0, "rotor1Engaged": true, "kPaRankingPointAchieved": true},
			match.Blue: {"autoFuelPoints": 0.0, "teleopFuelPoints": 4.0, "rotor1Engaged": true},
		}
	}
	return m
}

func TestRunNothingToPredict(t *testing.T) {
	assert.Nil(t, Run(rules.Default(), Event{Key: "2017casj", Year: 2017}, nil))

	unknown := Event{Key: "2015casj", Year: 2015, Matches: []match.Match{
		steamworks(match.CompLevelQual, 1, 1, 100, 50),
	}}
	assert.Nil(t, Run(rules.Default(), unknown, nil))
}

func TestWinLossAccuracyAllCorrect(t *testing.T) {
	ev := Event{Key: "2017casj", Year: 2017, Matches: []match.Match{
		steamworks(match.CompLevelQual, 1, 2, 300, 150),
		steamworks(match.CompLevelQual, 1, 1, 280, 120),
	}}
	out := Run(rules.Default(), ev, nil)
	require.NotNil(t, out)
	require.NotNil(t, out.Qual)
	assert.Nil(t, out.Playoff)

	assert.Equal(t, []string{"2017casj_qm1", "2017casj_qm2"}, out.Qual.Order)
	stats := out.Qual.Stats
	assert.Equal(t, 2, stats.Played)
	assert.Equal(t, 100.0, stats.WinLossAccuracy)
	assert.Contains(t, stats.Brier, WinLossKey)
	assert.Contains(t, stats.Brier, rules.ProbKey("pressure"))
	assert.Contains(t, stats.Brier, rules.ProbKey("gears"))
	for _, b := range stats.Brier {
		assert.GreaterOrEqual(t, b, 0.0)
		assert.LessOrEqual(t, b, 1.0)
	}

	// The first match is predicted from priors alone: an exact tie labelled red.
	first := out.Qual.Predictions["2017casj_qm1"]
	assert.True(t, first.Tied)
	assert.Equal(t, match.Red, first.WinningAlliance)
	assert.Equal(t, 0.5, first.Prob)
}

func TestPhasesRestartEstimation(t *testing.T) {
	ev := Event{Key: "2017casj", Year: 2017, Matches: []match.Match{
		steamworks(match.CompLevelQual, 1, 1, 300, 150),
		steamworks(match.CompLevelFinal, 1, 1, match.Unplayed, match.Unplayed),
	}}
	out := Run(rules.Default(), ev, nil)
	require.NotNil(t, out)
	require.NotNil(t, out.Playoff)

	final := out.Playoff.Predictions["2017casj_f1m1"]
	assert.True(t, final.Tied, "playoff estimates must not carry qualification results")
	assert.Zero(t, out.Playoff.Stats.Played)
	assert.Empty(t, out.Playoff.Stats.Brier)

	qualMeans := out.Qual.MeanVars[rules.ScoreStat]
	assert.Greater(t, qualMeans["frc254"].Mean, qualMeans["frc118"].Mean)
	assert.Len(t, out.Predictions(), 2)
}

func TestErrorOnlyOnCorrectPredictions(t *testing.T) {
	ev := Event{Key: "2017casj", Year: 2017, Matches: []match.Match{
		steamworks(match.CompLevelQual, 1, 1, 300, 150),
		// Red was favoured after match 1 but loses here.
		steamworks(match.CompLevelQual, 1, 2, 100, 200),
	}}
	out := Run(rules.Default(), ev, nil)
	require.NotNil(t, out)
	stats := out.Qual.Stats
	assert.Equal(t, 50.0, stats.WinLossAccuracy)

	first := out.Qual.Predictions["2017casj_qm1"]
	wantErr := (abs(first.Alliance(match.Red).Score-300) + abs(first.Alliance(match.Blue).Score-150)) / 2
	assert.InDelta(t, wantErr, stats.ErrMean, 1e-9)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
