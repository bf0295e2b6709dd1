// Package observability bundles the run counters and their optional
// Prometheus scrape endpoint for long batch runs.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RunMetrics holds the counters one engine run maintains. Each instance
// carries its own registry so repeated runs in one process never fight
// over collector registration.
type RunMetrics struct {
	registry *prometheus.Registry

	CommitsProcessed prometheus.Counter
	CommitsSkipped   *prometheus.CounterVec
	FilesAnalyzed    prometheus.Counter
	FilesSkipped     prometheus.Counter
}

// NewRunMetrics creates and registers the run counters.
func NewRunMetrics() *RunMetrics {
	m := &RunMetrics{
		registry: prometheus.NewRegistry(),
		CommitsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codedrift_commits_processed_total",
			Help: "Commits measured and persisted.",
		}),
		CommitsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codedrift_commits_skipped_total",
			Help: "Commits skipped, partitioned by reason.",
		}, []string{"reason"}),
		FilesAnalyzed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codedrift_files_analyzed_total",
			Help: "File pairs measured on both sides.",
		}),
		FilesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codedrift_files_skipped_total",
			Help: "Changed files skipped for missing or unparseable snapshots.",
		}),
	}

	m.registry.MustRegister(m.CommitsProcessed, m.CommitsSkipped, m.FilesAnalyzed, m.FilesSkipped)

	return m
}

// Handler serves the scrape endpoint for this run's registry.
func (m *RunMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
