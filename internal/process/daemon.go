// Package process wires the prediction daemon: it watches a directory of
// event files, recomputes predictions and rankings when they change, and
// pushes the results to websocket subscribers.
package process

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/adapters/outbound/discord"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/adapters/outbound/snapshot_sqlite"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/config"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/ranking"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/state/store"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/events"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/fanout"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/telemetry"
)

// Run blocks until SIGINT or SIGTERM.
func Run(cfg *config.Config) {
	telemetry.Infof("Starting prediction daemon  data=%s", cfg.DataDir)

	table, err := config.Table(cfg.SeasonsConfigPath)
	if err != nil {
		telemetry.Errorf("Season config: %v", err)
		os.Exit(1)
	}

	snapshots, err := snapshot_sqlite.Open(cfg.SnapshotDBPath)
	if err != nil {
		telemetry.Errorf("Snapshot store: %v", err)
		os.Exit(1)
	}
	defer snapshots.Close()

	bus := events.NewBus()
	results := store.New()
	sim := ranking.Simulator{Replays: cfg.SimReplays, Seed: cfg.SimSeed, Workers: cfg.SimWorkers}
	discord.NewNotifier(cfg.DiscordWebhookURL).Subscribe(bus)
	rc := NewRecomputer(table, snapshots, results, bus, sim, cfg.PredictWorkers, cfg.RecomputeRate)

	// ── Fanout + metrics ───────────────────────────────────────
	fan := fanout.NewServer(bus, results)
	mux := fan.Mux()
	mux.Handle("/metrics", promhttp.HandlerFor(telemetry.NewRegistry(), promhttp.HandlerOpts{}))
	server := fanout.HTTPServer(cfg.FanoutPort, mux)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			telemetry.Errorf("HTTP server: %v", err)
			os.Exit(1)
		}
	}()
	telemetry.Infof("Fanout listening on %q (/ws, /metrics)", server.Addr)

	// ── Recompute loop ─────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		loop(ctx, rc, cfg.DataDir, cfg.RecomputeInterval)
	}()

	// ── Shutdown ───────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	telemetry.Infof("Shutting down...")
	cancel()
	<-done

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	telemetry.Infof("Shutdown complete  events=%d  matches=%d  rankings=%d  errors=%d",
		telemetry.Metrics.EventsPredicted.Value(),
		telemetry.Metrics.MatchesPredicted.Value(),
		telemetry.Metrics.RankingsComputed.Value(),
		telemetry.Metrics.EventLoadErrors.Value()+telemetry.Metrics.StoreErrors.Value(),
	)
}

func loop(ctx context.Context, rc *Recomputer, dir string, every time.Duration) {
	if every <= 0 {
		every = 30 * time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		if err := rc.Scan(ctx, dir); err != nil && ctx.Err() == nil {
			telemetry.Warnf("[SCAN] %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
