package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "retail"

// Metrics holds the service's prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	gatewayQueries  *prometheus.CounterVec
	gatewayDuration *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec
	reportRefreshes *prometheus.CounterVec
	exports         *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.gatewayQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "gateway",
			Name:      "queries_total",
			Help:      "Backend read queries by collection and outcome.",
		},
		[]string{"collection", "outcome"},
	)
	m.gatewayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "gateway",
			Name:      "query_duration_seconds",
			Help:      "Backend read query latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"collection"},
	)
	m.cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Query cache lookups by result.",
		},
		[]string{"result"},
	)
	m.reportRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "report",
			Name:      "refreshes_total",
			Help:      "Report refresh batches by outcome (applied, stale, failed).",
		},
		[]string{"outcome"},
	)
	m.exports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "export",
			Name:      "artifacts_total",
			Help:      "Report exports by format and outcome.",
		},
		[]string{"format", "outcome"},
	)

	m.registry.MustRegister(
		m.gatewayQueries,
		m.gatewayDuration,
		m.cacheLookups,
		m.reportRefreshes,
		m.exports,
		collectors.NewGoCollector(),
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveQuery(collection string, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.gatewayQueries.WithLabelValues(collection, outcome(err)).Inc()
	m.gatewayDuration.WithLabelValues(collection).Observe(took.Seconds())
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ReportRefresh(result string) {
	if m == nil {
		return
	}
	m.reportRefreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) Export(format string, err error) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
