package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors are the Prometheus metrics exported by the search engine.
type Collectors struct {
	Searches       *prometheus.CounterVec
	SearchDuration prometheus.Histogram
	ResultCount    prometheus.Histogram
	Interactions   *prometheus.CounterVec
	IndexedRecords prometheus.Gauge
	Rebuilds       prometheus.Counter
}

// NewCollectors registers the engine metrics with reg. A nil reg uses the
// default Prometheus registerer.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Collectors{
		// amanfind_searches_total: searches by query kind.
		Searches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "amanfind_searches_total",
				Help: "Total number of searches by query kind",
			},
			[]string{"kind"},
		),
		SearchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "amanfind_search_duration_seconds",
			Help:    "Search latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		ResultCount: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "amanfind_search_results",
			Help:    "Number of results returned per search",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		}),
		// amanfind_interactions_total: recorded interactions by kind.
		Interactions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "amanfind_interactions_total",
				Help: "Total number of recorded interactions by kind",
			},
			[]string{"kind"},
		),
		IndexedRecords: f.NewGauge(prometheus.GaugeOpts{
			Name: "amanfind_indexed_records",
			Help: "Number of records in the live index",
		}),
		Rebuilds: f.NewCounter(prometheus.CounterOpts{
			Name: "amanfind_index_rebuilds_total",
			Help: "Total number of full index rebuilds",
		}),
	}
}

// ObserveSearch records one search.
func (c *Collectors) ObserveSearch(kind QueryKind, results int, latency time.Duration) {
	if c == nil {
		return
	}
	c.Searches.WithLabelValues(string(kind)).Inc()
	c.SearchDuration.Observe(latency.Seconds())
	c.ResultCount.Observe(float64(results))
}

// ObserveInteraction records one interaction of the given kind.
func (c *Collectors) ObserveInteraction(kind string) {
	if c == nil {
		return
	}
	c.Interactions.WithLabelValues(kind).Inc()
}

// SetIndexed sets the indexed record gauge.
func (c *Collectors) SetIndexed(n int) {
	if c == nil {
		return
	}
	c.IndexedRecords.Set(float64(n))
}

// ObserveRebuild counts a completed rebuild.
func (c *Collectors) ObserveRebuild() {
	if c == nil {
		return
	}
	c.Rebuilds.Inc()
}
