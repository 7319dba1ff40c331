package telemetry

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrettyHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelInfo).With("event", "2017casj")

	log.Debug("hidden")
	log.Warn("ranking skipped", "reason", "no breakdown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN: ranking skipped event=2017casj reason=no breakdown\n")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLogLevel("debug"))
	assert.Equal(t, slog.LevelError, ParseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLogLevel("nonsense"))
}

func TestLatencyTracker(t *testing.T) {
	lt := NewLatencyTracker(3)
	assert.Zero(t, lt.P50())
	for _, ms := range []int{50, 10, 30, 20} {
		lt.Record(time.Duration(ms) * time.Millisecond)
	}
	// Only the last three samples are kept.
	assert.Equal(t, 20*time.Millisecond, lt.P50())
	assert.Equal(t, 10*time.Millisecond, lt.percentile(0))
}

func TestCollectorExportsCounters(t *testing.T) {
	c := NewCollector()
	before := testutil.ToFloat64(counterByName(t, c, "matches_predicted_total"))
	Metrics.MatchesPredicted.Add(3)
	after := testutil.ToFloat64(counterByName(t, c, "matches_predicted_total"))
	assert.Equal(t, before+3, after)

	reg := NewRegistry()
	n, err := testutil.GatherAndCount(reg, "matchpredict_matches_predicted_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// counterByName wraps one counter in a single-metric collector for testutil.
func counterByName(t *testing.T, c *Collector, name string) singleCounter {
	t.Helper()
	for _, cd := range c.counters {
		if bytes.Contains([]byte(cd.desc.String()), []byte(namespace+"_"+name)) {
			return singleCounter{cd}
		}
	}
	t.Fatalf("no counter %s", name)
	return singleCounter{}
}

type singleCounter struct{ cd counterDesc }

func (s singleCounter) Describe(ch chan<- *prometheus.Desc) { ch <- s.cd.desc }
func (s singleCounter) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(s.cd.desc, prometheus.CounterValue, float64(s.cd.c.Value()))
}
