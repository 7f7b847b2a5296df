// Package metrics exposes Prometheus metrics for the capture loop.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chdkcam"

// Recycle reasons.
const (
	ReasonScheduled     = "scheduled"
	ReasonSessionClosed = "session_closed"
)

// Metrics is the collection of capture loop metrics. Each instance owns
// its registry so tests can create as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	Iterations          prometheus.Counter
	FramesAcquired      prometheus.Counter
	AcquireFailures     *prometheus.CounterVec
	AcquireDuration     prometheus.Histogram
	Recycles            *prometheus.CounterVec
	RecycleErrors       prometheus.Counter
	ConsecutiveFailures prometheus.Gauge
	HandsDetected       prometheus.Counter
}

// New creates and registers all metrics.
func New() *Metrics {
	m := &Metrics{Registry: prometheus.NewRegistry()}

	m.Iterations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loop_iterations_total",
		Help:      "Capture loop iterations",
	})

	m.FramesAcquired = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_acquired_total",
		Help:      "Frames acquired and validated",
	})

	m.AcquireFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acquire_failures_total",
			Help:      "Acquisitions that fell back to the last good frame",
		},
		[]string{"kind"},
	)

	m.AcquireDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "acquire_duration_seconds",
		Help:      "Time spent in one acquisition, trigger included",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	})

	m.Recycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_recycles_total",
			Help:      "Device session restarts",
		},
		[]string{"reason"},
	)

	m.RecycleErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_recycle_errors_total",
		Help:      "Device session restarts that failed",
	})

	m.ConsecutiveFailures = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "consecutive_failures",
		Help:      "Acquisitions failed in a row; a stale preview is being shown while > 0",
	})

	m.HandsDetected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "hands_detected_total",
		Help:      "Hands reported by the annotator",
	})

	m.Registry.MustRegister(
		m.Iterations,
		m.FramesAcquired,
		m.AcquireFailures,
		m.AcquireDuration,
		m.Recycles,
		m.RecycleErrors,
		m.ConsecutiveFailures,
		m.HandsDetected,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
