// Package metrics exposes Prometheus instrumentation for recommendation runs
// and training. Metrics live in a private registry that can be written to a
// node_exporter textfile after each run.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "recsvd"

// Run statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics holds the collectors for one process. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	StageDuration    *prometheus.HistogramVec
	Runs             *prometheus.CounterVec
	Errors           *prometheus.CounterVec
	Recommendations  prometheus.Gauge
	EligibleItems    prometheus.Gauge
	LastRunTimestamp prometheus.Gauge
	ModelRank        prometheus.Gauge
	ModelFeatures    prometheus.Gauge
	ModelLoads       prometheus.Counter
	TrainingDuration prometheus.Gauge
	ExplainedVar     prometheus.Gauge
}

// New creates the collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of each prediction stage in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10), // 0.5ms .. ~131s
			},
			[]string{"stage"}, // "load", "project", "reconstruct", "score", "rank", "write"
		),

		Runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of recommendation runs",
			},
			[]string{"status"},
		),

		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of failed runs by error type",
			},
			[]string{"error_type"},
		),

		Recommendations: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_recommendations",
			Help:      "Number of items returned by the last successful run",
		}),

		EligibleItems: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_eligible_items",
			Help:      "Number of unseen items considered by the last successful run",
		}),

		LastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed run",
		}),

		ModelRank: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_rank",
			Help:      "Number of latent components of the loaded model",
		}),

		ModelFeatures: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_features",
			Help:      "Number of items the loaded model was trained on",
		}),

		ModelLoads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_loads_total",
			Help:      "Total number of successful model loads",
		}),

		TrainingDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "training_duration_seconds",
			Help:      "Duration of the last model fit",
		}),

		ExplainedVar: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "training_explained_variance_ratio",
			Help:      "Total explained variance ratio of the last fitted model",
		}),
	}
}

// Registry returns the registry backing these metrics
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveStage records how long a prediction stage took
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RunSucceeded records a completed run
func (m *Metrics) RunSucceeded(recommendations, eligible int, at time.Time) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(StatusSuccess).Inc()
	m.Recommendations.Set(float64(recommendations))
	m.EligibleItems.Set(float64(eligible))
	m.LastRunTimestamp.Set(float64(at.Unix()))
}

// RunFailed records a failed run. errorType may be empty.
func (m *Metrics) RunFailed(errorType string, at time.Time) {
	if m == nil {
		return
	}
	if errorType == "" {
		errorType = "unknown"
	}
	m.Runs.WithLabelValues(StatusError).Inc()
	m.Errors.WithLabelValues(errorType).Inc()
	m.LastRunTimestamp.Set(float64(at.Unix()))
}

// ModelLoaded records the dimensions of a freshly loaded model
func (m *Metrics) ModelLoaded(rank, features int) {
	if m == nil {
		return
	}
	m.ModelLoads.Inc()
	m.ModelRank.Set(float64(rank))
	m.ModelFeatures.Set(float64(features))
}

// TrainingFinished records the outcome of a fit
func (m *Metrics) TrainingFinished(d time.Duration, explainedVariance float64, rank, features int) {
	if m == nil {
		return
	}
	m.TrainingDuration.Set(d.Seconds())
	m.ExplainedVar.Set(explainedVariance)
	m.ModelRank.Set(float64(rank))
	m.ModelFeatures.Set(float64(features))
}

// WriteTextfile writes all metrics in the Prometheus text format, for the
// node_exporter textfile collector. An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
