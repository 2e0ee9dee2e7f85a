// Package metrics exposes crawl telemetry in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "muniwatch"

// Metrics holds the crawl collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	CrawlRunsTotal      *prometheus.CounterVec
	CrawlDuration       prometheus.Histogram
	SourceHitsTotal     *prometheus.CounterVec
	SourceFailuresTotal *prometheus.CounterVec
	MentionsCreated     prometheus.Counter
}

// New registers the crawl collectors, plus Go runtime and process
// collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		CrawlRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crawl_runs_total",
			Help:      "Crawl runs by outcome",
		}, []string{"outcome"}),
		CrawlDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "crawl_duration_seconds",
			Help:      "Wall-clock duration of crawl runs",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4m
		}),
		SourceHitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_hits_total",
			Help:      "Raw hits with a URL returned per source",
		}, []string{"source"}),
		SourceFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failures_total",
			Help:      "Failed adapter calls per source",
		}, []string{"source"}),
		MentionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mentions_created_total",
			Help:      "Mentions written to the store",
		}),
	}
}

func (m *Metrics) ObserveCrawl(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.CrawlRunsTotal.WithLabelValues(outcome).Inc()
	m.CrawlDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) AddSourceStats(source string, hits, failures int) {
	if m == nil {
		return
	}
	m.SourceHitsTotal.WithLabelValues(source).Add(float64(hits))
	m.SourceFailuresTotal.WithLabelValues(source).Add(float64(failures))
}

func (m *Metrics) AddMentionsCreated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.MentionsCreated.Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
