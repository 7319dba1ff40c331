package snapshot_sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/estimator"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/orchestrator"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/ranking"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/telemetry"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

// Store persists each event's final contribution snapshots and a summary of
// its predictions. Earlier events' qualification snapshots seed the priors
// of later events in the same season.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS contributions (
			event_key  TEXT    NOT NULL,
			year       INTEGER NOT NULL,
			start_date TEXT    NOT NULL,
			phase      TEXT    NOT NULL,
			stat       TEXT    NOT NULL,
			team       TEXT    NOT NULL,
			mean       REAL    NOT NULL,
			var        REAL    NOT NULL,
			PRIMARY KEY (event_key, phase, stat, team)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_contrib_year_date ON contributions(year, start_date)`,
		`CREATE TABLE IF NOT EXISTS event_summaries (
			event_key         TEXT PRIMARY KEY,
			year              INTEGER NOT NULL,
			start_date        TEXT    NOT NULL,
			computed_at       TEXT    NOT NULL,
			qual_played       INTEGER DEFAULT 0,
			win_loss_accuracy REAL,
			brier_win_loss    REAL,
			last_played_match TEXT,
			predictions       TEXT,
			ranking           TEXT
		)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init schema (%s): %w", stmt, err)
		}
	}

	var count int64
	if err := db.QueryRow(`SELECT COUNT(*) FROM event_summaries`).Scan(&count); err != nil {
		db.Close()
		return nil, fmt.Errorf("read row count: %w", err)
	}

	telemetry.Plainf("snapshot store: opened %s  events=%d", path, count)

	return &Store{db: db}, nil
}

// SaveEvent replaces everything stored for ev with the new predictions and
// (optional) ranking projection.
func (s *Store) SaveEvent(ev orchestrator.Event, preds *orchestrator.EventPredictions, rank *ranking.Result) error {
	if preds == nil {
		return nil
	}
	predJSON, err := json.Marshal(preds)
	if err != nil {
		return fmt.Errorf("marshal predictions: %w", err)
	}
	var rankJSON []byte
	var lastPlayed *string
	if rank != nil {
		if rankJSON, err = json.Marshal(rank); err != nil {
			return fmt.Errorf("marshal ranking: %w", err)
		}
		lastPlayed = &rank.LastPlayedMatch
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM contributions WHERE event_key = ?`, ev.Key); err != nil {
		return fmt.Errorf("clear contributions %s: %w", ev.Key, err)
	}

	ins, err := tx.Prepare(`INSERT INTO contributions
		(event_key, year, start_date, phase, stat, team, mean, var)
		VALUES (?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()

	start := ev.StartDate.UTC().Format(dateLayout)
	for _, ph := range []struct {
		name  orchestrator.PhaseName
		phase *orchestrator.Phase
	}{
		{orchestrator.PhaseQual, preds.Qual},
		{orchestrator.PhasePlayoff, preds.Playoff},
	} {
		if ph.phase == nil {
			continue
		}
		for stat, snap := range ph.phase.MeanVars {
			for team, c := range snap {
				if _, err := ins.Exec(ev.Key, ev.Year, start, string(ph.name), stat, team, c.Mean, c.Var); err != nil {
					return fmt.Errorf("insert contribution %s/%s/%s: %w", ev.Key, stat, team, err)
				}
			}
		}
	}

	var played int
	var accuracy, brier *float64
	if preds.Qual != nil {
		played = preds.Qual.Stats.Played
		if played > 0 {
			a := preds.Qual.Stats.WinLossAccuracy
			accuracy = &a
		}
		if b, ok := preds.Qual.Stats.Brier[orchestrator.WinLossKey]; ok {
			brier = &b
		}
	}

	_, err = tx.Exec(`INSERT INTO event_summaries
		(event_key, year, start_date, computed_at, qual_played, win_loss_accuracy, brier_win_loss, last_played_match, predictions, ranking)
		VALUES (?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(event_key) DO UPDATE SET
			year = excluded.year,
			start_date = excluded.start_date,
			computed_at = excluded.computed_at,
			qual_played = excluded.qual_played,
			win_loss_accuracy = excluded.win_loss_accuracy,
			brier_win_loss = excluded.brier_win_loss,
			last_played_match = excluded.last_played_match,
			predictions = excluded.predictions,
			ranking = excluded.ranking`,
		ev.Key, ev.Year, start, time.Now().UTC().Format(time.RFC3339Nano),
		played, accuracy, brier, lastPlayed, string(predJSON), nullableText(rankJSON),
	)
	if err != nil {
		return fmt.Errorf("upsert summary %s: %w", ev.Key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", ev.Key, err)
	}
	return nil
}

// Priors loads the qualification snapshots of every event in year that
// started strictly before the given date.
func (s *Store) Priors(year int, before time.Time) (*estimator.HistoryIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT team, stat, mean, var FROM contributions
		WHERE year = ? AND phase = ? AND start_date < ?
		ORDER BY start_date ASC, event_key ASC`,
		year, string(orchestrator.PhaseQual), before.UTC().Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("query priors: %w", err)
	}
	defer rows.Close()

	idx := estimator.NewHistoryIndex()
	for rows.Next() {
		var team, stat string
		var c estimator.Contribution
		if err := rows.Scan(&team, &stat, &c.Mean, &c.Var); err != nil {
			return nil, fmt.Errorf("scan prior: %w", err)
		}
		idx.Add(team, stat, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate priors: %w", err)
	}
	return idx, nil
}

// Summary is one row of event_summaries without the JSON payloads.
type Summary struct {
	EventKey        string
	Year            int
	StartDate       string
	ComputedAt      time.Time
	QualPlayed      int
	WinLossAccuracy *float64
	BrierWinLoss    *float64
	LastPlayedMatch string
}

// Summaries returns the most recently computed events, newest first.
func (s *Store) Summaries(limit int) ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT event_key, year, start_date, computed_at, qual_played,
		win_loss_accuracy, brier_win_loss, COALESCE(last_played_match, '')
		FROM event_summaries ORDER BY computed_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sm Summary
		var computed string
		if err := rows.Scan(&sm.EventKey, &sm.Year, &sm.StartDate, &computed, &sm.QualPlayed,
			&sm.WinLossAccuracy, &sm.BrierWinLoss, &sm.LastPlayedMatch); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		sm.ComputedAt, _ = time.Parse(time.RFC3339Nano, computed)
		out = append(out, sm)
	}
	return out, rows.Err()
}

// TeamRow is one stored contribution for a team.
type TeamRow struct {
	EventKey  string
	StartDate string
	Phase     string
	Stat      string
	Mean      float64
	Var       float64
}

// TeamHistory returns a team's stored contributions in a season, oldest
// event first and statistics in name order.
func (s *Store) TeamHistory(team string, year int) ([]TeamRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT event_key, start_date, phase, stat, mean, var
		FROM contributions WHERE team = ? AND year = ?
		ORDER BY start_date ASC, event_key ASC, phase DESC, stat ASC`, team, year)
	if err != nil {
		return nil, fmt.Errorf("query team history: %w", err)
	}
	defer rows.Close()

	var out []TeamRow
	for rows.Next() {
		var r TeamRow
		if err := rows.Scan(&r.EventKey, &r.StartDate, &r.Phase, &r.Stat, &r.Mean, &r.Var); err != nil {
			return nil, fmt.Errorf("scan team row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Ranking returns the stored ranking projection for an event, nil if none.
func (s *Store) Ranking(eventKey string) (*ranking.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var raw sql.NullString
	err := s.db.QueryRow(`SELECT ranking FROM event_summaries WHERE event_key = ?`, eventKey).Scan(&raw)
	if err == sql.ErrNoRows || (err == nil && !raw.Valid) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query ranking %s: %w", eventKey, err)
	}
	var res ranking.Result
	if err := json.Unmarshal([]byte(raw.String), &res); err != nil {
		return nil, fmt.Errorf("decode ranking %s: %w", eventKey, err)
	}
	return &res, nil
}

func nullableText(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
