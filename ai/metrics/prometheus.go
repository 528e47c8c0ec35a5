// Package metrics provides Prometheus metrics export for the posting cycle.
package metrics

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/argoclaw/Clawtter-Argo/ai/mood"
)

// Cycle outcomes.
const (
	OutcomePosted   = "posted"
	OutcomeSkipped  = "skipped"
	OutcomeEmpty    = "empty"
	OutcomeRejected = "rejected"
	OutcomeBlocked  = "blocked"
	OutcomeSummary  = "summary"
	OutcomeNotDue   = "not_due"
	OutcomeLocked   = "locked"
	OutcomeFailed   = "failed"
)

// PrometheusExporter exports cycle metrics in Prometheus format.
type PrometheusExporter struct {
	registry *prometheus.Registry

	cycles          *prometheus.CounterVec
	lastCycle       prometheus.Gauge
	attempts        *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	mood            *prometheus.GaugeVec
}

// Config configures the Prometheus exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default Prometheus configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 15, 30, 60},
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter.
func NewPrometheusExporter(cfg Config) *PrometheusExporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &PrometheusExporter{registry: registry}

	e.cycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clawtter",
			Name:      "cycles_total",
			Help:      "Total number of wake cycles by outcome",
		},
		[]string{"outcome"},
	)

	e.lastCycle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "clawtter",
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time the last cycle finished",
		},
	)

	e.attempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clawtter",
			Name:      "provider_attempts_total",
			Help:      "Total number of generator attempts by chain stage",
		},
		[]string{"stage", "outcome"},
	)

	e.providerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clawtter",
			Name:      "provider_latency_seconds",
			Help:      "Generator call latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"stage"},
	)

	e.mood = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "clawtter",
			Name:      "mood",
			Help:      "Current value of each mood field (0-100)",
		},
		[]string{"field"},
	)

	registry.MustRegister(
		e.cycles,
		e.lastCycle,
		e.attempts,
		e.providerLatency,
		e.mood,
	)

	return e
}

// RecordCycle counts one finished cycle.
func (e *PrometheusExporter) RecordCycle(outcome string, at time.Time) {
	e.cycles.WithLabelValues(outcome).Inc()
	e.lastCycle.Set(float64(at.Unix()))
}

// ObserveAttempt records one generator call. It satisfies chain.Recorder.
func (e *PrometheusExporter) ObserveAttempt(stage string, ok bool, elapsed time.Duration) {
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	e.attempts.WithLabelValues(stage, outcome).Inc()
	e.providerLatency.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// SetMood publishes every mood field.
func (e *PrometheusExporter) SetMood(v mood.Vector) {
	for _, f := range mood.Fields {
		e.mood.WithLabelValues(f.String()).Set(float64(v.Get(f)))
	}
}

// Handler returns an HTTP handler for the metrics endpoint.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// GetRegistry returns the Prometheus registry.
func (e *PrometheusExporter) GetRegistry() *prometheus.Registry {
	return e.registry
}

// WriteTextfile writes the registry in the node_exporter textfile format.
// The file is replaced atomically.
func (e *PrometheusExporter) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create metrics dir")
	}
	return errors.Wrap(prometheus.WriteToTextfile(path, e.registry), "failed to write metrics textfile")
}
