package match

import (
	"encoding/json"
	"sort"
	"strconv"
)

// Unplayed is the alliance score sentinel for a match that has not been scored.
const Unplayed = -1

type CompLevel string

const (
	CompLevelQual    CompLevel = "qm"
	CompLevelEighth  CompLevel = "ef"
	CompLevelQuarter CompLevel = "qf"
	CompLevelSemi    CompLevel = "sf"
	CompLevelFinal   CompLevel = "f"
)

var compLevelOrder = map[CompLevel]int{
	CompLevelQual:    1,
	CompLevelEighth:  2,
	CompLevelQuarter: 3,
	CompLevelSemi:    4,
	CompLevelFinal:   5,
}

// IsPlayoff reports whether the level is any elimination sub-level.
func (c CompLevel) IsPlayoff() bool { return c != CompLevelQual }

type Color string

const (
	Red  Color = "red"
	Blue Color = "blue"
)

// Colors lists alliance colors in their canonical order. Red is first-listed.
var Colors = [2]Color{Red, Blue}

// Opponent returns the other alliance color.
func (c Color) Opponent() Color {
	if c == Red {
		return Blue
	}
	return Red
}

// Breakdown is one alliance's raw score breakdown. Keys depend on the season.
type Breakdown map[string]any

// Alliance is one side of a match.
type Alliance struct {
	Teams      []string `json:"team_keys"`
	Surrogates []string `json:"surrogate_team_keys,omitempty"`
	DQs        []string `json:"dq_team_keys,omitempty"`
	Score      int      `json:"score"`
}

// UnmarshalJSON decodes a missing or null score as Unplayed.
func (a *Alliance) UnmarshalJSON(data []byte) error {
	type plain Alliance
	p := plain{Score: Unplayed}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*a = Alliance(p)
	return nil
}

func (a Alliance) IsSurrogate(team string) bool { return contains(a.Surrogates, team) }
func (a Alliance) IsDQ(team string) bool        { return contains(a.DQs, team) }

// Match is a single scheduled or completed match at an event.
type Match struct {
	Key            string              `json:"key"`
	EventKey       string              `json:"event_key"`
	Year           int                 `json:"year,omitempty"`
	CompLevel      CompLevel           `json:"comp_level"`
	SetNumber      int                 `json:"set_number"`
	MatchNumber    int                 `json:"match_number"`
	Alliances      map[Color]Alliance  `json:"alliances"`
	ScoreBreakdown map[Color]Breakdown `json:"score_breakdown,omitempty"`
}

// HasBeenPlayed is true iff both alliance scores are set.
func (m Match) HasBeenPlayed() bool {
	for _, c := range Colors {
		a, ok := m.Alliances[c]
		if !ok || a.Score == Unplayed {
			return false
		}
	}
	return true
}

// PlayOrder gives a deterministic ordering key: comp level, then match
// number, then set number.
func (m Match) PlayOrder() int {
	return compLevelOrder[m.CompLevel]*1_000_000 + m.MatchNumber*1_000 + m.SetNumber
}

// Teams returns the alliance members for a color.
func (m Match) Teams(c Color) []string { return m.Alliances[c].Teams }

// Result is what an alliance actually did in a played match.
type Result struct {
	Score     int
	Breakdown Breakdown // nil when the match carries no breakdown
}

// Result returns the color's result. ok is false until the match has been
// played, so breakdowns are never read early.
func (m Match) Result(c Color) (Result, bool) {
	if !m.HasBeenPlayed() {
		return Result{}, false
	}
	return Result{Score: m.Alliances[c].Score, Breakdown: m.ScoreBreakdown[c]}, true
}

// HasBreakdown reports whether both alliances carry a score breakdown.
func (m Match) HasBreakdown() bool {
	for _, c := range Colors {
		if m.ScoreBreakdown[c] == nil {
			return false
		}
	}
	return true
}

// Winner returns the color with the higher actual score. tie is true when
// the scores are equal. Only meaningful for played matches.
func (m Match) Winner() (winner Color, tie bool) {
	red, blue := m.Alliances[Red].Score, m.Alliances[Blue].Score
	switch {
	case red > blue:
		return Red, false
	case blue > red:
		return Blue, false
	default:
		return "", true
	}
}

// DefaultKey builds a TBA-style match key, e.g. 2017casj_qm12 or 2017casj_sf2m1.
func DefaultKey(eventKey string, level CompLevel, set, number int) string {
	if level == CompLevelQual {
		return eventKey + "_qm" + strconv.Itoa(number)
	}
	return eventKey + "_" + string(level) + strconv.Itoa(set) + "m" + strconv.Itoa(number)
}

// SortByPlayOrder sorts matches in place by PlayOrder, keeping input order
// for equal keys.
func SortByPlayOrder(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].PlayOrder() < matches[j].PlayOrder()
	})
}

// SplitPhases returns qualification and playoff matches, each copied and
// sorted by play order.
func SplitPhases(matches []Match) (quals, playoffs []Match) {
	for _, m := range matches {
		if m.CompLevel.IsPlayoff() {
			playoffs = append(playoffs, m)
		} else {
			quals = append(quals, m)
		}
	}
	SortByPlayOrder(quals)
	SortByPlayOrder(playoffs)
	return quals, playoffs
}

// TeamsInOrder returns every team key in order of first appearance.
func TeamsInOrder(matches []Match) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range matches {
		for _, c := range Colors {
			for _, t := range m.Teams(c) {
				if _, ok := seen[t]; ok {
					continue
				}
				seen[t] = struct{}{}
				out = append(out, t)
			}
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
