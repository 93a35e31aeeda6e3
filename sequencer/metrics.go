package sequencer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the sequencer.
type Metrics struct {
	Registry        *prometheus.Registry
	AttemptsTotal   *prometheus.CounterVec
	AttemptDuration prometheus.Histogram
	ItemsPosted     prometheus.Counter
	RetriesTotal    prometheus.Counter
	ErrorsTotal     *prometheus.CounterVec
	RunsTotal       *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	attempts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lister_attempts_total",
			Help: "Total posting attempts by result.",
		},
		[]string{"result"},
	)
	attemptDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lister_attempt_duration_seconds",
			Help:    "Time spent driving the sell form for one attempt.",
			Buckets: []float64{5, 10, 20, 30, 45, 60, 90, 120, 180},
		},
	)
	posted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lister_items_posted_total",
			Help: "Total number of listings posted.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lister_retries_total",
			Help: "Total number of retries scheduled after a page reload.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lister_errors_total",
			Help: "Total number of failed attempts by error type.",
		},
		[]string{"error_type"},
	)
	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lister_runs_total",
			Help: "Total number of runs by final state.",
		},
		[]string{"state"},
	)

	registry.MustRegister(attempts, attemptDuration, posted, retries, errorsTotal, runs)

	return &Metrics{
		Registry:        registry,
		AttemptsTotal:   attempts,
		AttemptDuration: attemptDuration,
		ItemsPosted:     posted,
		RetriesTotal:    retries,
		ErrorsTotal:     errorsTotal,
		RunsTotal:       runs,
	}
}

// IncAttempt increments the attempts counter for a result label.
func (m *Metrics) IncAttempt(result string) {
	if m == nil {
		return
	}
	m.AttemptsTotal.WithLabelValues(result).Inc()
}

// ObserveDuration records the duration of one attempt.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.AttemptDuration.Observe(d.Seconds())
}

// IncPosted increments the posted listings counter.
func (m *Metrics) IncPosted() {
	if m == nil {
		return
	}
	m.ItemsPosted.Inc()
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncRun increments the runs counter for a final state.
func (m *Metrics) IncRun(state State) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(state.String()).Inc()
}
