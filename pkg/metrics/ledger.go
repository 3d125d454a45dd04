package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics tracks stock ledger operations and threshold signals.
type LedgerMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	signals    *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_operations_total",
		Help: "Stock ledger operations by outcome.",
	}, []string{"operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_operation_duration_seconds",
		Help:    "Duration of stock ledger operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	signals := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_threshold_signals_total",
		Help: "Threshold signal dispatches by kind and outcome.",
	}, []string{"kind", "outcome"})
	reg.MustRegister(operations, duration, signals)
	return &LedgerMetrics{
		operations: operations,
		duration:   duration,
		signals:    signals,
	}
}

// ObserveOperation counts the outcome and records the duration of an operation.
func (m *LedgerMetrics) ObserveOperation(operation, outcome string, duration time.Duration) {
	if m == nil || m.operations == nil {
		return
	}
	op := normalizeLabel(operation)
	m.operations.WithLabelValues(op, normalizeLabel(outcome)).Inc()
	m.duration.WithLabelValues(op).Observe(duration.Seconds())
}

// IncSignal counts a threshold signal dispatch.
func (m *LedgerMetrics) IncSignal(kind, outcome string) {
	if m == nil || m.signals == nil {
		return
	}
	m.signals.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}
