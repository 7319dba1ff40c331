package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "matchpredict"

type counterDesc struct {
	desc *prometheus.Desc
	c    *Counter
}

type latencyDesc struct {
	desc *prometheus.Desc
	lt   *LatencyTracker
}

// Collector exports Metrics to Prometheus. Values are read at scrape time
// so the hot path keeps using plain atomics.
type Collector struct {
	counters      []counterDesc
	fanoutClients *prometheus.Desc
	latencies     []latencyDesc
}

func NewCollector() *Collector {
	counter := func(name, help string, c *Counter) counterDesc {
		return counterDesc{desc: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, nil), c: c}
	}
	latency := func(name, help string, lt *LatencyTracker) latencyDesc {
		return latencyDesc{desc: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, []string{"quantile"}, nil), lt: lt}
	}
	return &Collector{
		counters: []counterDesc{
			counter("events_loaded_total", "Event files loaded", &Metrics.EventsLoaded),
			counter("event_load_errors_total", "Event files that failed to load", &Metrics.EventLoadErrors),
			counter("events_predicted_total", "Events run through the prediction pipeline", &Metrics.EventsPredicted),
			counter("events_unchanged_total", "Scans that found an event unchanged", &Metrics.EventsUnchanged),
			counter("matches_predicted_total", "Match predictions produced", &Metrics.MatchesPredicted),
			counter("rankings_computed_total", "Ranking projections produced", &Metrics.RankingsComputed),
			counter("rankings_skipped_total", "Ranking projections skipped for missing data", &Metrics.RankingsSkipped),
			counter("replays_simulated_total", "Ranking replays simulated", &Metrics.ReplaysSimulated),
			counter("store_errors_total", "Snapshot store errors", &Metrics.StoreErrors),
			counter("fanout_drops_total", "Messages dropped for slow fanout clients", &Metrics.FanoutDrops),
			counter("bus_handler_errors_total", "Event bus handlers that returned an error", &Metrics.HandlerErrors),
		},
		fanoutClients: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "fanout_clients"), "Connected fanout clients", nil, nil),
		latencies: []latencyDesc{
			latency("predict_latency_seconds", "Per-event prediction latency", Metrics.PredictLatency),
			latency("ranking_latency_seconds", "Per-event ranking projection latency", Metrics.RankingLatency),
			latency("rate_limiter_wait_seconds", "Time spent waiting on the recompute limiter", Metrics.RateLimiterWait),
		},
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, cd := range c.counters {
		ch <- cd.desc
	}
	ch <- c.fanoutClients
	for _, ld := range c.latencies {
		ch <- ld.desc
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, cd := range c.counters {
		ch <- prometheus.MustNewConstMetric(cd.desc, prometheus.CounterValue, float64(cd.c.Value()))
	}
	ch <- prometheus.MustNewConstMetric(c.fanoutClients, prometheus.GaugeValue, float64(Metrics.FanoutClients.Value()))
	for _, ld := range c.latencies {
		ch <- prometheus.MustNewConstMetric(ld.desc, prometheus.GaugeValue, ld.lt.P50().Seconds(), "0.5")
		ch <- prometheus.MustNewConstMetric(ld.desc, prometheus.GaugeValue, ld.lt.P99().Seconds(), "0.99")
	}
}

// NewRegistry returns a registry with the collector plus the standard Go
// and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector())
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}
