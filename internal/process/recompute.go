package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/adapters/inbound/eventfile"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/estimator"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/orchestrator"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/ranking"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/rules"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/state/store"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/events"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/telemetry"
)

// SnapshotStore is the persistence the recompute loop needs: priors from
// earlier events and a place to save each event's final estimates.
type SnapshotStore interface {
	Priors(year int, before time.Time) (*estimator.HistoryIndex, error)
	SaveEvent(ev orchestrator.Event, preds *orchestrator.EventPredictions, rank *ranking.Result) error
}

// Recomputer turns event files into predictions and ranking projections.
// Each file must be named <event key>.json.
type Recomputer struct {
	table     rules.Table
	snapshots SnapshotStore
	results   *store.ResultsStore
	bus       *events.Bus
	sim       ranking.Simulator
	workers   int

	limiter *rate.Limiter
	sf      singleflight.Group
}

// NewRecomputer builds a recomputer. perSecond <= 0 disables throttling.
func NewRecomputer(table rules.Table, snapshots SnapshotStore, results *store.ResultsStore, bus *events.Bus, sim ranking.Simulator, workers int, perSecond float64) *Recomputer {
	workers = max(1, workers)
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Recomputer{
		table:     table,
		snapshots: snapshots,
		results:   results,
		bus:       bus,
		sim:       sim,
		workers:   workers,
		limiter:   rate.NewLimiter(limit, workers),
	}
}

type pending struct {
	path string
	mod  time.Time
}

// Scan recomputes every event file in dir that changed since it was last
// computed. Per-file failures are logged and counted, not returned.
func (r *Recomputer) Scan(ctx context.Context, dir string) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return fmt.Errorf("list event files: %w", err)
	}

	var todo []pending
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			telemetry.Warnf("[SCAN] %s: %v", p, err)
			continue
		}
		if !r.results.Stale(eventKeyOf(p), info.ModTime()) {
			telemetry.Metrics.EventsUnchanged.Inc()
			continue
		}
		todo = append(todo, pending{path: p, mod: info.ModTime()})
	}
	if len(todo) == 0 {
		return nil
	}
	telemetry.Debugf("[SCAN] %d of %d event files changed", len(todo), len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, p := range todo {
		g.Go(func() error {
			if err := r.Recompute(ctx, p.path, p.mod); err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				telemetry.Metrics.EventLoadErrors.Inc()
				telemetry.Warnf("[SCAN] %s: %v", filepath.Base(p.path), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Recompute loads one event file, predicts it, projects its rankings,
// persists the estimates and publishes the results. Concurrent calls for the
// same file share one computation.
func (r *Recomputer) Recompute(ctx context.Context, path string, mod time.Time) error {
	_, err, _ := r.sf.Do(path, func() (any, error) {
		start := time.Now()
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
		telemetry.Metrics.RateLimiterWait.Since(start)
		return nil, r.recompute(path, mod)
	})
	return err
}

func (r *Recomputer) recompute(path string, mod time.Time) error {
	ev, err := eventfile.Load(path)
	if errors.Is(err, eventfile.ErrNoMatches) {
		telemetry.Debugf("[PREDICT] %s has no matches yet", ev.Key)
		r.results.Put(&store.EventResult{EventKey: eventKeyOf(path), Year: ev.Year, SourceMod: mod, UpdatedAt: time.Now()})
		return nil
	}
	if err != nil {
		return err
	}
	if key := eventKeyOf(path); ev.Key != key {
		return fmt.Errorf("event key %s does not match file name %s", ev.Key, key)
	}
	telemetry.Metrics.EventsLoaded.Inc()

	var priors estimator.PriorSource
	if idx, err := r.snapshots.Priors(ev.Year, ev.StartDate); err != nil {
		telemetry.Metrics.StoreErrors.Inc()
		telemetry.Warnf("[PREDICT] %s: priors unavailable: %v", ev.Key, err)
	} else {
		priors = idx
	}

	start := time.Now()
	preds := orchestrator.Run(r.table, ev, priors)
	telemetry.Metrics.PredictLatency.Since(start)

	result := &store.EventResult{
		EventKey:    ev.Key,
		Year:        ev.Year,
		SourceMod:   mod,
		UpdatedAt:   time.Now(),
		Predictions: preds,
	}
	if preds == nil {
		r.results.Put(result)
		return nil
	}
	telemetry.Metrics.EventsPredicted.Inc()
	telemetry.Metrics.MatchesPredicted.Add(int64(len(preds.Predictions())))

	result.Ranking = r.rank(ev, preds)

	if err := r.snapshots.SaveEvent(ev, preds, result.Ranking); err != nil {
		telemetry.Metrics.StoreErrors.Inc()
		telemetry.Warnf("[PREDICT] %s: save snapshots: %v", ev.Key, err)
	}

	r.results.Put(result)
	r.bus.PublishAll(result.Events())

	if preds.Qual != nil {
		telemetry.Infof("[PREDICT] %s  matches=%d  played=%d  accuracy=%.1f%%",
			ev.Key, len(preds.Qual.Order), preds.Qual.Stats.Played, preds.Qual.Stats.WinLossAccuracy)
	}
	return nil
}

func (r *Recomputer) rank(ev orchestrator.Event, preds *orchestrator.EventPredictions) *ranking.Result {
	season, ok := r.table.Lookup(ev.Year)
	if !ok || preds.Qual == nil {
		telemetry.Metrics.RankingsSkipped.Inc()
		return nil
	}
	start := time.Now()
	res, ok := r.sim.Simulate(season, ev.Matches, preds.Qual.Predictions)
	telemetry.Metrics.RankingLatency.Since(start)
	if !ok {
		telemetry.Metrics.RankingsSkipped.Inc()
		return nil
	}
	telemetry.Metrics.RankingsComputed.Inc()
	telemetry.Metrics.ReplaysSimulated.Add(int64(res.Replays))
	return res
}

func eventKeyOf(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
