// Package eventfile reads event documents (schedule plus results) from disk.
//
//	{
//	  "key": "2017casj",
//	  "year": 2017,
//	  "start_date": "2017-03-02",
//	  "matches": [ { "comp_level": "qm", "match_number": 1, "alliances": {...}, "score_breakdown": {...} } ]
//	}
package eventfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/match"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/orchestrator"
)

// DateLayout is the layout of start_date.
const DateLayout = "2006-01-02"

var ErrNoMatches = errors.New("event has no matches")

type document struct {
	Key       string        `json:"key"`
	Year      int           `json:"year"`
	StartDate string        `json:"start_date"`
	Matches   []match.Match `json:"matches"`
}

// Load reads one event document. Missing match keys are filled with
// DefaultKey, and a missing year is taken from the event key prefix.
// Like Parse, it returns the event alongside ErrNoMatches.
func Load(path string) (orchestrator.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return orchestrator.Event{}, fmt.Errorf("read event file: %w", err)
	}
	ev, err := Parse(data)
	if err != nil {
		return ev, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return ev, nil
}

// Parse decodes an event document. An alliance without a score is
// unplayed. A document with no matches returns the event and ErrNoMatches.
func Parse(data []byte) (orchestrator.Event, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return orchestrator.Event{}, fmt.Errorf("parse event: %w", err)
	}
	if doc.Key == "" {
		return orchestrator.Event{}, errors.New("event key is required")
	}
	if doc.Year == 0 {
		doc.Year = yearFromKey(doc.Key)
	}
	if doc.Year == 0 {
		return orchestrator.Event{}, fmt.Errorf("event %s: year is required", doc.Key)
	}

	ev := orchestrator.Event{Key: doc.Key, Year: doc.Year, Matches: doc.Matches}
	if doc.StartDate != "" {
		start, err := time.Parse(DateLayout, doc.StartDate)
		if err != nil {
			return orchestrator.Event{}, fmt.Errorf("event %s start_date: %w", doc.Key, err)
		}
		ev.StartDate = start
	}
	if len(ev.Matches) == 0 {
		return ev, ErrNoMatches
	}
	for i := range ev.Matches {
		m := &ev.Matches[i]
		if m.CompLevel == "" {
			m.CompLevel = match.CompLevelQual
		}
		if m.SetNumber == 0 {
			m.SetNumber = 1
		}
		if m.Key == "" {
			m.Key = match.DefaultKey(doc.Key, m.CompLevel, m.SetNumber, m.MatchNumber)
		}
		m.EventKey = doc.Key
		m.Year = doc.Year
		for _, c := range match.Colors {
			if _, ok := m.Alliances[c]; !ok {
				return orchestrator.Event{}, fmt.Errorf("match %s: missing %s alliance", m.Key, c)
			}
		}
	}
	return ev, nil
}

// LoadDir loads every *.json file in dir, earliest start date first.
// Documents without matches are skipped.
func LoadDir(dir string) ([]orchestrator.Event, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list event files: %w", err)
	}
	var out []orchestrator.Event
	for _, p := range paths {
		ev, err := Load(p)
		if errors.Is(err, ErrNoMatches) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

// yearFromKey reads the leading four digits of an event key such as 2017casj.
func yearFromKey(key string) int {
	if len(key) < 4 {
		return 0
	}
	y := 0
	for _, r := range key[:4] {
		if r < '0' || r > '9' {
			return 0
		}
		y = y*10 + int(r-'0')
	}
	return y
}
