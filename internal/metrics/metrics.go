package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pulsemap"

// Metrics holds the Prometheus collectors for ingestion, retention and the
// task scheduler.
type Metrics struct {
	// Ingestion metrics.
	Refreshes      *prometheus.CounterVec   // labels: type, outcome={success,fetch_error,store_error}
	EventsStored   *prometheus.CounterVec   // labels: type
	RecordsSkipped *prometheus.CounterVec   // labels: type
	FetchDuration  *prometheus.HistogramVec // labels: type

	// Retention metrics.
	EventsSwept *prometheus.CounterVec // labels: type

	// Scheduler metrics.
	TasksDropped *prometheus.CounterVec // labels: task
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Refreshes,
		m.EventsStored,
		m.RecordsSkipped,
		m.FetchDuration,
		m.EventsSwept,
		m.TasksDropped,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as many
// as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Source refreshes by event type and outcome.",
		}, []string{"type", "outcome"}),
		EventsStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_stored_total",
			Help:      "Normalized events written to the store.",
		}, []string{"type"}),
		RecordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Upstream records dropped during normalization.",
		}, []string{"type"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Upstream fetch and parse duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"type"}),
		EventsSwept: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_swept_total",
			Help:      "Events removed by retention sweeps.",
		}, []string{"type"}),
		TasksDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_tasks_dropped_total",
			Help:      "Scheduled tasks dropped because the queue was full.",
		}, []string{"task"}),
	}
}
