package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jcmexdev/oms-sagas/internal/coordinator"
)

// SagaMetrics records create-order saga runs in Prometheus.
type SagaMetrics struct {
	runs          *prometheus.CounterVec
	stepDurations *prometheus.HistogramVec
	compensations *prometheus.CounterVec
}

var _ coordinator.Metrics = (*SagaMetrics)(nil)

// NewSagaMetrics registers the saga collectors on reg.
func NewSagaMetrics(reg prometheus.Registerer) *SagaMetrics {
	m := &SagaMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oms",
			Subsystem: "saga",
			Name:      "runs_total",
			Help:      "Finished create-order saga runs by outcome.",
		}, []string{"outcome"}),
		stepDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "oms",
			Subsystem: "saga",
			Name:      "step_duration_seconds",
			Help:      "Duration of saga steps.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step", "result"}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oms",
			Subsystem: "saga",
			Name:      "compensations_total",
			Help:      "Compensations run during rollback by result.",
		}, []string{"step", "result"}),
	}
	reg.MustRegister(m.runs, m.stepDurations, m.compensations)
	return m
}

func (m *SagaMetrics) ObserveStep(step string, d time.Duration, err error) {
	m.stepDurations.WithLabelValues(step, result(err)).Observe(d.Seconds())
}

func (m *SagaMetrics) Compensated(step string, err error) {
	m.compensations.WithLabelValues(step, result(err)).Inc()
}

func (m *SagaMetrics) SagaFinished(outcome string) {
	m.runs.WithLabelValues(outcome).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
