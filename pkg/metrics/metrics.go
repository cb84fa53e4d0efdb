// Package metrics exposes orchestrator metrics for Prometheus scraping:
// counters for submitted and finished jobs, a gauge for pipelines in
// flight, and per-stage duration histograms. Collectors register on a
// private registry so the default registry stays clean.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stage labels for the duration histogram.
const (
	StageDiscover  = "discover"
	StageDetect    = "detect"
	StageInterpret = "interpret"
)

// Metrics holds the orchestrator's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	jobsSubmitted prometheus.Counter
	jobsFinished  *prometheus.CounterVec
	jobsRunning   prometheus.Gauge
	stageSeconds  *prometheus.HistogramVec
	degradedTotal prometheus.Counter
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.jobsSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "snlscan_jobs_submitted_total",
		Help: "Total number of scan jobs submitted",
	})
	m.jobsFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "snlscan_jobs_finished_total",
		Help: "Total number of scan jobs reaching a terminal state",
	}, []string{"status"})
	m.jobsRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "snlscan_jobs_running",
		Help: "Number of scan pipelines currently in flight",
	})
	m.stageSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "snlscan_stage_duration_seconds",
		Help:    "Wall-clock duration of pipeline stages",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	}, []string{"stage"})
	m.degradedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "snlscan_interpretations_degraded_total",
		Help: "Findings that fell back to a placeholder explanation",
	})

	m.registry.MustRegister(
		m.jobsSubmitted,
		m.jobsFinished,
		m.jobsRunning,
		m.stageSeconds,
		m.degradedTotal,
	)
	return m
}

// JobSubmitted records a new job entering the system.
func (m *Metrics) JobSubmitted() {
	m.jobsSubmitted.Inc()
	m.jobsRunning.Inc()
}

// JobFinished records a job reaching a terminal status.
func (m *Metrics) JobFinished(status string) {
	m.jobsFinished.WithLabelValues(status).Inc()
	m.jobsRunning.Dec()
}

// ObserveStage records one stage's wall-clock duration.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.stageSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

// InterpretationDegraded records a placeholder substitution.
func (m *Metrics) InterpretationDegraded() {
	m.degradedTotal.Inc()
}

// Handler returns the scrape endpoint handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
