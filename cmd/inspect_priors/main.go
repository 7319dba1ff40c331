package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/adapters/outbound/snapshot_sqlite"
)

func main() {
	n := flag.Int("n", 10, "number of recent events to display")
	team := flag.String("team", "", "show one team's stored contributions instead (e.g. frc254)")
	year := flag.Int("year", 0, "season for -team")
	dbPath := flag.String("db", "data/snapshots.db", "path to snapshot store")
	flag.Parse()

	if *team != "" && *year == 0 {
		fmt.Fprintln(os.Stderr, "usage: go run ./cmd/inspect_priors [-n 10] | -team frc254 -year 2017")
		os.Exit(1)
	}

	store, err := snapshot_sqlite.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *team != "" {
		printTeam(store, *team, *year)
		return
	}
	printSummaries(store, *n)
}

func printSummaries(store *snapshot_sqlite.Store, n int) {
	rows, err := store.Summaries(n)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("=== Recent events (%d) ===\n", len(rows))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EVENT\tYEAR\tSTART\tPLAYED\tACCURACY\tBRIER\tLAST PLAYED\tCOMPUTED")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%s\t%s\t%s\t%s\n",
			r.EventKey, r.Year, r.StartDate, r.QualPlayed,
			pct(r.WinLossAccuracy), num(r.BrierWinLoss), dash(r.LastPlayedMatch),
			r.ComputedAt.Local().Format("2006-01-02 15:04:05"))
	}
	w.Flush()
}

func printTeam(store *snapshot_sqlite.Store, team string, year int) {
	rows, err := store.TeamHistory(team, year)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query: %v\n", err)
		os.Exit(1)
	}
	if len(rows) == 0 {
		fmt.Printf("(no contributions stored for %s in %d)\n", team, year)
		return
	}
	fmt.Printf("=== %s %d ===\n", team, year)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EVENT\tSTART\tPHASE\tSTAT\tMEAN\tVAR")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%.2f\n", r.EventKey, r.StartDate, r.Phase, r.Stat, r.Mean, r.Var)
	}
	w.Flush()
}

func pct(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", *v)
}

func num(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *v)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
