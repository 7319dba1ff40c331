// Backtest replays a directory of completed events in start-date order.
// Each event is predicted with priors from the events before it, then saved
// so later events can use it.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/adapters/inbound/eventfile"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/adapters/outbound/snapshot_sqlite"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/config"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/estimator"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/match"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/orchestrator"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/telemetry"
)

type calBucket struct {
	sumPred float64
	count   int
	wins    int
}

type eventResult struct {
	key     string
	played  int
	correct float64 // percent
	brier   float64
	errMean float64
}

type totals struct {
	played    int
	correct   int
	confident int
	confHits  int
	brierSum  float64
	brierN    int
	bonusSum  map[string]float64
	bonusN    map[string]int
	buckets   [10]calBucket
}

func main() {
	dir := flag.String("dir", "data/events", "directory of event JSON files")
	dbPath := flag.String("db", "", "snapshot store (default: a fresh temporary database)")
	seasons := flag.String("seasons", "", "season priors YAML (optional)")
	year := flag.Int("year", 0, "only replay this season")
	level := flag.String("log", "warn", "log level")
	flag.Parse()

	telemetry.Init(telemetry.ParseLogLevel(*level))

	table, err := config.Table(*seasons)
	if err != nil {
		telemetry.Errorf("Season config: %v", err)
		os.Exit(1)
	}
	evs, err := eventfile.LoadDir(*dir)
	if err != nil {
		telemetry.Errorf("Load events: %v", err)
		os.Exit(1)
	}

	path := *dbPath
	if path == "" {
		tmp, err := os.MkdirTemp("", "backtest")
		if err != nil {
			telemetry.Errorf("Temp dir: %v", err)
			os.Exit(1)
		}
		defer os.RemoveAll(tmp)
		path = filepath.Join(tmp, "snapshots.db")
	}
	snaps, err := snapshot_sqlite.Open(path)
	if err != nil {
		telemetry.Errorf("Snapshot store: %v", err)
		os.Exit(1)
	}
	defer snaps.Close()

	fmt.Printf("=== Backtest: %d events from %s ===\n\n", len(evs), *dir)

	t := totals{bonusSum: make(map[string]float64), bonusN: make(map[string]int)}
	var results []eventResult
	for _, ev := range evs {
		if *year != 0 && ev.Year != *year {
			continue
		}
		var priors estimator.PriorSource
		if idx, err := snaps.Priors(ev.Year, ev.StartDate); err != nil {
			telemetry.Warnf("%s: priors unavailable: %v", ev.Key, err)
		} else {
			priors = idx
		}

		preds := orchestrator.Run(table, ev, priors)
		if preds == nil || preds.Qual == nil {
			continue
		}
		if err := snaps.SaveEvent(ev, preds, nil); err != nil {
			telemetry.Warnf("%s: save: %v", ev.Key, err)
		}

		st := preds.Qual.Stats
		if st.Played == 0 {
			continue
		}
		results = append(results, eventResult{
			key:     ev.Key,
			played:  st.Played,
			correct: st.WinLossAccuracy,
			brier:   st.Brier[orchestrator.WinLossKey],
			errMean: st.ErrMean,
		})
		t.add(ev, preds.Qual)
	}

	if len(results) == 0 {
		fmt.Println("(no played qualification matches)")
		return
	}
	printEvents(results)
	t.print()
}

func (t *totals) add(ev orchestrator.Event, ph *orchestrator.Phase) {
	st := ph.Stats
	t.played += st.Played
	t.correct += int(st.WinLossAccuracy*float64(st.Played)/100 + 0.5)
	t.confident += st.Confident
	t.confHits += int(st.WinLossAccuracy75*float64(st.Confident)/100 + 0.5)
	for key, b := range st.Brier {
		if key == orchestrator.WinLossKey {
			t.brierSum += b * float64(st.Played)
			t.brierN += st.Played
			continue
		}
		t.bonusSum[key] += b * float64(st.Played)
		t.bonusN[key] += st.Played
	}

	for _, m := range ev.Matches {
		if m.CompLevel != match.CompLevelQual || !m.HasBeenPlayed() {
			continue
		}
		p, ok := ph.Predictions[m.Key]
		if !ok {
			continue
		}
		winner, tie := m.Winner()
		if tie {
			continue
		}
		redProb := p.Prob
		if p.WinningAlliance != match.Red {
			redProb = 1 - p.Prob
		}
		addToBucket(t.buckets[:], redProb, winner == match.Red)
	}
}

func addToBucket(buckets []calBucket, pred float64, won bool) {
	idx := int(pred * 10)
	if idx >= len(buckets) {
		idx = len(buckets) - 1
	}
	if idx < 0 {
		idx = 0
	}
	buckets[idx].sumPred += pred
	buckets[idx].count++
	if won {
		buckets[idx].wins++
	}
}

func printEvents(results []eventResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EVENT\tPLAYED\tACCURACY\tBRIER\tERR")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%d\t%.1f%%\t%.4f\t%.1f\n", r.key, r.played, r.correct, r.brier, r.errMean)
	}
	w.Flush()
	fmt.Println()
}

func (t *totals) print() {
	fmt.Println("══════════════════════════════════════")
	fmt.Println("  OVERALL SUMMARY")
	fmt.Println("══════════════════════════════════════")
	fmt.Printf("  Played matches:      %d\n", t.played)
	fmt.Printf("  Win/loss accuracy:   %.1f%%\n", 100*float64(t.correct)/float64(t.played))
	if t.confident > 0 {
		fmt.Printf("  Confident (>%.0f%%):    %d, %.1f%% correct\n", orchestrator.ConfidentProb*100, t.confident, 100*float64(t.confHits)/float64(t.confident))
	}
	if t.brierN > 0 {
		fmt.Printf("  Win/loss Brier:      %.4f\n", t.brierSum/float64(t.brierN))
	}
	keys := make([]string, 0, len(t.bonusSum))
	for k := range t.bonusSum {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-20s %.4f\n", k+" Brier:", t.bonusSum[k]/float64(t.bonusN[k]))
	}
	fmt.Println()

	fmt.Println("  Calibration buckets (red win, predicted vs actual):")
	fmt.Printf("  %-10s %6s %8s %8s %8s\n", "Bucket", "Count", "MeanPred", "ActFreq", "Error")
	for i, b := range t.buckets {
		if b.count == 0 {
			continue
		}
		mean := b.sumPred / float64(b.count)
		freq := float64(b.wins) / float64(b.count)
		fmt.Printf("  %-10s %6d %8.3f %8.3f %+8.3f\n",
			fmt.Sprintf("%.1f-%.1f", float64(i)/10, float64(i+1)/10), b.count, mean, freq, mean-freq)
	}
}
