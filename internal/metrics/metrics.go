// Package metrics collects Prometheus metrics for a prediction run. All
// methods are safe on a nil *Metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "podium"

type Metrics struct {
	registry *prometheus.Registry

	SessionsLoaded     *prometheus.CounterVec // Sessions loaded, by session kind
	SessionsSkipped    *prometheus.CounterVec // Practice sessions left out of the features
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
	HeuristicFallbacks *prometheus.CounterVec // Outcomes predicted with 1/position
	RunDuration        prometheus.Gauge
	LastRun            prometheus.Gauge
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		SessionsLoaded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_loaded_total",
			Help:      "Total number of sessions loaded",
		}, []string{"session"}),
		SessionsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_skipped_total",
			Help:      "Total number of practice sessions skipped",
		}, []string{"session"}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of session cache hits",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of session cache misses",
		}),
		HeuristicFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heuristic_fallbacks_total",
			Help:      "Total number of outcomes predicted without a trained classifier",
		}, []string{"outcome"}),
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of the last prediction run",
		}),
		LastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed prediction run",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) SessionLoaded(kind string) {
	if m == nil {
		return
	}
	m.SessionsLoaded.WithLabelValues(kind).Inc()
}

func (m *Metrics) SessionSkipped(kind string) {
	if m == nil {
		return
	}
	m.SessionsSkipped.WithLabelValues(kind).Inc()
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.CacheMisses.Inc()
}

func (m *Metrics) HeuristicFallback(outcome string) {
	if m == nil {
		return
	}
	m.HeuristicFallbacks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RunFinished(duration time.Duration, at time.Time) {
	if m == nil {
		return
	}
	m.RunDuration.Set(duration.Seconds())
	m.LastRun.Set(float64(at.Unix()))
}

// WriteTextfile writes all metrics in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
