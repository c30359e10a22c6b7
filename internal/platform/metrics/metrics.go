// Package metrics exposes prometheus counters for learner activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for one process. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	progressWrites   *prometheus.CounterVec
	lessonsCompleted prometheus.Counter
	quizAttempts     *prometheus.CounterVec
	reviewsSubmitted *prometheus.CounterVec
	storeErrors      *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		progressWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "learn_progress_writes_total",
				Help: "Lesson progress writes by learner action",
			},
			[]string{"action"},
		),
		lessonsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "learn_lessons_completed_total",
			Help: "Lessons that transitioned to completed",
		}),
		quizAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "learn_quiz_attempts_total",
				Help: "Quiz attempts by outcome",
			},
			[]string{"outcome"},
		),
		reviewsSubmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "learn_reviews_submitted_total",
				Help: "Course reviews by operation",
			},
			[]string{"operation"},
		),
		storeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "learn_errors_total",
				Help: "Errors returned to callers by kind",
			},
			[]string{"kind"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.progressWrites,
		m.lessonsCompleted,
		m.quizAttempts,
		m.reviewsSubmitted,
		m.storeErrors,
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ProgressWrite(action string, completed bool) {
	if m == nil {
		return
	}
	m.progressWrites.WithLabelValues(action).Inc()
	if completed {
		m.lessonsCompleted.Inc()
	}
}

func (m *Metrics) QuizAttempt(passed bool) {
	if m == nil {
		return
	}
	outcome := "failed"
	if passed {
		outcome = "passed"
	}
	m.quizAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Review(operation string) {
	if m == nil {
		return
	}
	m.reviewsSubmitted.WithLabelValues(operation).Inc()
}

func (m *Metrics) Error(kind string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(kind).Inc()
}
