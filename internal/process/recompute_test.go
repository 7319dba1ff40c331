package process

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/adapters/outbound/snapshot_sqlite"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/ranking"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/rules"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/state/store"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/events"
)

type recorder struct {
	mu  sync.Mutex
	got []events.Event
}

func (r *recorder) handle(e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, e)
	return nil
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, len(r.got))
	for i, e := range r.got {
		out[i] = e.Type
	}
	return out
}

func qual(n int, red, blue string, redScore, blueScore int) string {
	breakdown := ""
	if redScore >= 0 {
		breakdown = fmt.Sprintf(`, "score_breakdown": {"red": {"autoFuelPoints": %d, "rotor1Engaged": true}, "blue": {"autoFuelPoints": %d}}`, redScore/10, blueScore/10)
	}
	return fmt.Sprintf(`{"match_number": %d, "alliances": {"red": {"team_keys": [%s], "score": %d}, "blue": {"team_keys": [%s], "score": %d}}%s}`,
		n, red, redScore, blue, blueScore, breakdown)
}

func writeEvent(t *testing.T, dir, key, start string, matches ...string) string {
	t.Helper()
	body := fmt.Sprintf(`{"key": %q, "start_date": %q, "matches": [%s]}`, key, start, strings.Join(matches, ","))
	p := filepath.Join(dir, key+".json")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func setup(t *testing.T) (*Recomputer, *store.ResultsStore, *snapshot_sqlite.Store, *recorder) {
	t.Helper()
	snaps, err := snapshot_sqlite.Open(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { snaps.Close() })

	bus := events.NewBus()
	rec := &recorder{}
	bus.SubscribeAll(rec.handle)

	results := store.New()
	rc := NewRecomputer(rules.Default(), snaps, results, bus, ranking.Simulator{Replays: 20, Seed: 1}, 2, 0)
	return rc, results, snaps, rec
}

const (
	a = `"frc1", "frc2"`
	b = `"frc3", "frc4"`
	c = `"frc1", "frc3"`
	d = `"frc2", "frc4"`
)

func TestScanRecomputesChangedEvents(t *testing.T) {
	rc, results, snaps, rec := setup(t)
	dir := t.TempDir()
	writeEvent(t, dir, "2017cada", "2017-03-02",
		qual(1, a, b, 200, 100),
		qual(2, c, d, 150, 160),
		qual(3, a, b, -1, -1),
	)

	require.NoError(t, rc.Scan(context.Background(), dir))
	res, ok := results.Get("2017cada")
	require.True(t, ok)
	require.NotNil(t, res.Predictions)
	assert.Len(t, res.Predictions.Predictions(), 3)
	require.NotNil(t, res.Ranking)
	assert.Equal(t, "2017cada_qm2", res.Ranking.LastPlayedMatch)
	assert.Equal(t, []events.EventType{events.EventPredictionsUpdated, events.EventRankingsUpdated}, rec.types())

	// Unchanged files are not recomputed.
	require.NoError(t, rc.Scan(context.Background(), dir))
	assert.Len(t, rec.types(), 2)

	sums, err := snaps.Summaries(10)
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, "2017cada", sums[0].EventKey)
}

func TestLaterEventsSeeEarlierPriors(t *testing.T) {
	rc, results, snaps, _ := setup(t)
	dir := t.TempDir()
	early := writeEvent(t, dir, "2017cada", "2017-03-02", qual(1, a, b, 300, 100))
	require.NoError(t, rc.Recompute(context.Background(), early, time.Now()))

	idx, err := snaps.Priors(2017, time.Date(2017, 3, 9, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotEmpty(t, idx.History("frc1", rules.ScoreStat))

	late := writeEvent(t, dir, "2017casj", "2017-03-09", qual(1, a, b, -1, -1))
	require.NoError(t, rc.Recompute(context.Background(), late, time.Now()))
	res, ok := results.Get("2017casj")
	require.True(t, ok)
	pred := res.Predictions.Qual.Predictions["2017casj_qm1"]
	assert.False(t, pred.Tied, "priors from the earlier event separate the alliances")
	assert.Equal(t, "red", string(pred.WinningAlliance))
}

func TestRecomputeRejectsMismatchedKey(t *testing.T) {
	rc, results, _, _ := setup(t)
	dir := t.TempDir()
	p := writeEvent(t, dir, "2017cada", "2017-03-02", qual(1, a, b, 1, 0))
	renamed := filepath.Join(dir, "other.json")
	require.NoError(t, os.Rename(p, renamed))

	err := rc.Recompute(context.Background(), renamed, time.Now())
	require.Error(t, err)
	assert.Zero(t, results.Count())
}

func TestRecomputeWithoutMatches(t *testing.T) {
	rc, results, _, rec := setup(t)
	dir := t.TempDir()
	p := writeEvent(t, dir, "2017cada", "2017-03-02")

	require.NoError(t, rc.Recompute(context.Background(), p, time.Now()))
	res, ok := results.Get("2017cada")
	require.True(t, ok)
	assert.Equal(t, 2017, res.Year)
	assert.Nil(t, res.Predictions)
	assert.Empty(t, rec.types())
}

func TestRecomputeHonoursCancellation(t *testing.T) {
	snaps, err := snapshot_sqlite.Open(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	defer snaps.Close()
	rc := NewRecomputer(rules.Default(), snaps, store.New(), events.NewBus(), ranking.Simulator{Replays: 1}, 1, 0.001)

	dir := t.TempDir()
	p := writeEvent(t, dir, "2017cada", "2017-03-02", qual(1, a, b, 1, 0))
	require.NoError(t, rc.Recompute(context.Background(), p, time.Now()), "first call uses the burst")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, rc.Recompute(ctx, p, time.Now()))
}
