package compute

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics: Prometheus-метрики очереди вычислений.
// Нулевой указатель допустим: все методы ничего не делают.
type Metrics struct {
	submitted *prometheus.CounterVec
	completed *prometheus.CounterVec
	failed    *prometheus.CounterVec
	inflight  prometheus.Gauge
	duration  *prometheus.HistogramVec
}

// NewMetrics создаёт метрики и регистрирует их в reg (если reg != nil)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "terrain",
			Subsystem: "compute",
			Name:      "tasks_submitted_total",
			Help:      "Число поставленных задач.",
		}, []string{"task"}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "terrain",
			Subsystem: "compute",
			Name:      "tasks_completed_total",
			Help:      "Число задач, результат которых попал в буфер.",
		}, []string{"task"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "terrain",
			Subsystem: "compute",
			Name:      "tasks_failed_total",
			Help:      "Число задач, завершившихся ошибкой или паникой.",
		}, []string{"task"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "terrain",
			Subsystem: "compute",
			Name:      "tasks_pending",
			Help:      "Задачи, чей обратный вызов ещё не выполнен.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "terrain",
			Subsystem: "compute",
			Name:      "task_duration_seconds",
			Help:      "Длительность вычисления задачи.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		}, []string{"task"}),
	}

	if reg != nil {
		reg.MustRegister(m.submitted, m.completed, m.failed, m.inflight, m.duration)
	}
	return m
}

func (m *Metrics) onSubmit(task string) {
	if m == nil {
		return
	}
	m.submitted.WithLabelValues(task).Inc()
	m.inflight.Inc()
}

func (m *Metrics) onFinish(task string, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(task).Observe(took.Seconds())
	if err != nil {
		m.failed.WithLabelValues(task).Inc()
		return
	}
	m.completed.WithLabelValues(task).Inc()
}

func (m *Metrics) onDone() {
	if m == nil {
		return
	}
	m.inflight.Dec()
}
