package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: сколько времени заняла обработка (включая инструменты)
	RequestDuration *prometheus.HistogramVec

	// Traffic: общее кол-во запросов
	TotalRequests *prometheus.CounterVec

	// Исходы guardrail: allow / deny / needs_approval
	DecisionTotal *prometheus.CounterVec

	// Сбои записи журнала (каждый — сбой всего вызова)
	AuditFailures prometheus.Counter

	// Saturation: состояние Circuit Breaker почтового коннектора (0 - ок, 1 - выбило)
	CircuitBreakerState *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern — если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		RequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gate_request_duration_seconds",
			Help:    "Histogram of tool call latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"studio_id", "tool", "outcome"}),

		TotalRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "gate_requests_total",
			Help: "Total number of processed tool calls.",
		}, []string{"studio_id", "tool"}),

		DecisionTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "gate_guardrail_decisions_total",
			Help: "Guardrail decisions by outcome.",
		}, []string{"decision"}),

		AuditFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "gate_audit_write_failures_total",
			Help: "Audit trail writes that failed and turned the call into an error.",
		}),

		CircuitBreakerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "gate_circuit_breaker_state",
			Help: "Current state of the circuit breaker (0=closed, 1=open).",
		}, []string{"connector_id"}),
	}
}
