package estimator

// observation is one alliance's played value for the estimator's statistic.
type observation struct {
	members    []int
	value      float64
	outcomeVar float64
}

// State is everything observed so far in one phase for one statistic. It is
// a value: Observe returns a new State and never touches the receiver's
// backing storage, so a State captured before match i cannot see match i.
type State struct {
	rows        []observation
	total       float64
	appearances int
	seen        int // roster prefix covered by the matches folded so far
}

// Rows is the number of alliance observations folded in.
func (s State) Rows() int { return len(s.rows) }

// EventAverage is the mean per-team contribution observed so far.
func (s State) EventAverage() (float64, bool) {
	if s.appearances == 0 {
		return 0, false
	}
	return s.total / float64(s.appearances), true
}

func (s State) with(o observation) State {
	s.rows = append(s.rows[:len(s.rows):len(s.rows)], o)
	s.total += o.value
	s.appearances += len(o.members)
	return s
}
