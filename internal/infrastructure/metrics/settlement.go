package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pocamarket"

// Settlement счётчики и длительность расчётов покупок.
type Settlement struct {
	total    *prometheus.CounterVec
	attempts *prometheus.HistogramVec
	duration *prometheus.HistogramVec
}

func NewSettlement(reg prometheus.Registerer) *Settlement {
	m := &Settlement{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "total",
			Help:      "Settlement requests by outcome.",
		}, []string{"outcome"}),
		attempts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "attempts",
			Help:      "Transaction attempts per settlement request.",
			Buckets:   []float64{1, 2, 3, 5, 8},
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "duration_seconds",
			Help:      "Settlement latency including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}

	reg.MustRegister(m.total, m.attempts, m.duration)

	return m
}

func (m *Settlement) ObserveSettlement(outcome string, attempts int, seconds float64) {
	m.total.WithLabelValues(outcome).Inc()
	m.attempts.WithLabelValues(outcome).Observe(float64(attempts))
	m.duration.WithLabelValues(outcome).Observe(seconds)
}

// Tasks счётчик обработанных фоновых задач.
type Tasks struct {
	processed *prometheus.CounterVec
}

func NewTasks(reg prometheus.Registerer) *Tasks {
	t := &Tasks{
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tasks",
			Name:      "processed_total",
			Help:      "Background tasks by type and result.",
		}, []string{"type", "ok"}),
	}

	reg.MustRegister(t.processed)

	return t
}

func (t *Tasks) ObserveTask(taskType string, err error) {
	t.processed.WithLabelValues(taskType, strconv.FormatBool(err == nil)).Inc()
}
