package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts what the stub pipeline did during a build. Exposed over
// /metrics in serve mode.
type Metrics struct {
	registry *prometheus.Registry

	RefsResolved  prometheus.Counter
	StubsFetched  prometheus.Counter
	StubsSkipped  prometheus.Counter
	RateLimitHits prometheus.Counter
	FetchSeconds  prometheus.Histogram
	Rebuilds      prometheus.Counter
}

// NewMetrics creates a metrics set on its own registry, so tests and
// repeated constructions never collide on the global default.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		RefsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stubdocs_refs_resolved_total",
			Help: "Remote references that survived filtering and deduplication.",
		}),
		StubsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stubdocs_stubs_fetched_total",
			Help: "Stubs fully resolved (filename, content, title).",
		}),
		StubsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stubdocs_stubs_skipped_total",
			Help: "References dropped for missing, ambiguous, or unfetchable stubs.",
		}),
		RateLimitHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stubdocs_rate_limit_hits_total",
			Help: "Builds aborted by API rate-limit exhaustion.",
		}),
		FetchSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stubdocs_fetch_duration_seconds",
			Help:    "Wall time of the remote fetch phase.",
			Buckets: prometheus.DefBuckets,
		}),
		Rebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stubdocs_rebuilds_total",
			Help: "Rebuilds triggered by local stub changes in serve mode.",
		}),
	}
	registry.MustRegister(m.RefsResolved, m.StubsFetched, m.StubsSkipped,
		m.RateLimitHits, m.FetchSeconds, m.Rebuilds)
	return m
}

// Handler returns the HTTP handler exposing this metrics set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gather reads the current metric families, mainly for tests.
func (m *Metrics) Gather() (map[string]float64, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(families))
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			if counter := metric.GetCounter(); counter != nil {
				out[family.GetName()] = counter.GetValue()
			}
		}
	}
	return out, nil
}
