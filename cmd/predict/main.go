package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/adapters/inbound/eventfile"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/adapters/outbound/snapshot_sqlite"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/config"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/estimator"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/match"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/orchestrator"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/ranking"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/telemetry"
)

func main() {
	eventPath := flag.String("event", "", "path to an event JSON file")
	dbPath := flag.String("db", "", "snapshot store for cross-event priors (optional)")
	save := flag.Bool("save", false, "save the final estimates to -db")
	replays := flag.Int("n", ranking.DefaultReplays, "ranking replays (0 skips the projection)")
	seed := flag.Uint64("seed", 0, "ranking simulation seed")
	seasons := flag.String("seasons", "", "season priors YAML (optional)")
	level := flag.String("log", "warn", "log level")
	flag.Parse()

	telemetry.Init(telemetry.ParseLogLevel(*level))

	if *eventPath == "" {
		fmt.Fprintln(os.Stderr, "usage: go run ./cmd/predict -event data/events/2017casj.json [-db data/snapshots.db] [-save] [-n 1000] [-seed 1]")
		os.Exit(1)
	}

	table, err := config.Table(*seasons)
	if err != nil {
		telemetry.Errorf("Season config: %v", err)
		os.Exit(1)
	}
	ev, err := eventfile.Load(*eventPath)
	if err != nil {
		telemetry.Errorf("Load event: %v", err)
		os.Exit(1)
	}

	var snaps *snapshot_sqlite.Store
	var priors estimator.PriorSource
	if *dbPath != "" {
		snaps, err = snapshot_sqlite.Open(*dbPath)
		if err != nil {
			telemetry.Errorf("Snapshot store: %v", err)
			os.Exit(1)
		}
		defer snaps.Close()
		idx, err := snaps.Priors(ev.Year, ev.StartDate)
		if err != nil {
			telemetry.Warnf("Priors unavailable: %v", err)
		} else {
			priors = idx
		}
	}

	preds := orchestrator.Run(table, ev, priors)
	if preds == nil {
		fmt.Printf("%s: nothing to predict (season %d supported: %v)\n", ev.Key, ev.Year, table.Years())
		return
	}

	byKey := make(map[string]match.Match, len(ev.Matches))
	for _, m := range ev.Matches {
		byKey[m.Key] = m
	}
	for _, ph := range []struct {
		title string
		phase *orchestrator.Phase
	}{
		{"Qualification", preds.Qual},
		{"Playoffs", preds.Playoff},
	} {
		if ph.phase != nil {
			printPhase(ph.title, ph.phase, byKey)
		}
	}

	var rank *ranking.Result
	if *replays > 0 && preds.Qual != nil {
		season, _ := table.Lookup(ev.Year)
		sim := ranking.Simulator{Replays: *replays, Seed: *seed}
		if res, ok := sim.Simulate(season, ev.Matches, preds.Qual.Predictions); ok {
			rank = res
			printRanking(res)
		} else {
			fmt.Println("(ranking projection unavailable)")
		}
	}

	if *save {
		if snaps == nil {
			telemetry.Errorf("-save needs -db")
			os.Exit(1)
		}
		if err := snaps.SaveEvent(ev, preds, rank); err != nil {
			telemetry.Errorf("Save: %v", err)
			os.Exit(1)
		}
		fmt.Printf("saved %s to %s\n", ev.Key, *dbPath)
	}
}

func printPhase(title string, ph *orchestrator.Phase, byKey map[string]match.Match) {
	fmt.Printf("=== %s ===\n", title)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MATCH\tRED\tBLUE\tPRED\tWINNER\tPROB\tACTUAL")
	for _, key := range ph.Order {
		p := ph.Predictions[key]
		m := byKey[key]
		winner := string(p.WinningAlliance)
		if p.Tied {
			winner = "tie"
		}
		actual := "-"
		if m.HasBeenPlayed() {
			actual = fmt.Sprintf("%d-%d", m.Alliances[match.Red].Score, m.Alliances[match.Blue].Score)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.0f-%.0f\t%s\t%.2f\t%s\n",
			key,
			strings.Join(m.Teams(match.Red), " "),
			strings.Join(m.Teams(match.Blue), " "),
			p.Alliance(match.Red).Score, p.Alliance(match.Blue).Score,
			winner, p.Prob, actual)
	}
	w.Flush()

	st := ph.Stats
	if st.Played == 0 {
		fmt.Println()
		return
	}
	fmt.Printf("  played=%d  accuracy=%.1f%%  confident=%d (%.1f%%)  err=%.1f±%.1f\n",
		st.Played, st.WinLossAccuracy, st.Confident, st.WinLossAccuracy75, st.ErrMean, math.Sqrt(st.ErrVar))
	keys := make([]string, 0, len(st.Brier))
	for k := range st.Brier {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  brier %-20s %.4f\n", k, st.Brier[k])
	}
	fmt.Println()
}

func printRanking(res *ranking.Result) {
	fmt.Printf("=== Projected rankings (%d replays, through %s) ===\n", res.Replays, orDash(res.LastPlayedMatch))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TEAM\tMEAN\tMIN\tMEDIAN\tMAX\tMEAN RP\tRP RANGE")
	for _, p := range res.Teams {
		fmt.Fprintf(w, "%s\t%.2f\t%d\t%.1f\t%d\t%.2f\t%d-%d\n",
			p.Team, p.MeanRank, p.MinRank, p.MedianRank, p.MaxRank, p.MeanRP, p.MinRP, p.MaxRP)
	}
	w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
