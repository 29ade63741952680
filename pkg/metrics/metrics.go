package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the settlement service
type Metrics struct {
	OperationCounter  *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	BalanceRejections *prometheus.CounterVec
	NotificationsSent *prometheus.CounterVec
}

// NewMetrics creates a new metrics instance
func NewMetrics(serviceName string) *Metrics {
	return &Metrics{
		OperationCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "amlakpro",
				Subsystem: serviceName,
				Name:      "operations_total",
				Help:      "Total number of ledger operations",
			},
			[]string{"operation", "status"},
		),
		OperationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "amlakpro",
				Subsystem: serviceName,
				Name:      "operation_duration_seconds",
				Help:      "Ledger operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		BalanceRejections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "amlakpro",
				Subsystem: serviceName,
				Name:      "balance_rejections_total",
				Help:      "Debits rejected for insufficient balance",
			},
			[]string{"entity"},
		),
		NotificationsSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "amlakpro",
				Subsystem: serviceName,
				Name:      "notifications_sent_total",
				Help:      "Supplier confirmation messages dispatched",
			},
			[]string{"status"},
		),
	}
}

// ObserveOperation records one completed operation with its outcome
func (m *Metrics) ObserveOperation(operation, status string, started time.Time) {
	m.OperationCounter.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}
