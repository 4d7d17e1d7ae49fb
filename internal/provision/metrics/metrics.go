// Package metrics exposes Prometheus metrics for the provisioning service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ppmk_provision"

// Row outcome labels.
const (
	RowSuccess = "success"
	RowFailed  = "failed"
	RowTimeout = "timeout"
)

// Email status labels.
const (
	EmailSent   = "sent"
	EmailFailed = "failed"
)

// Repair result labels.
const (
	RepairRepaired  = "repaired"
	RepairRetry     = "retry"
	RepairAbandoned = "abandoned"
)

var (
	RowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Total number of provisioned rows by outcome",
		},
		[]string{"outcome"},
	)

	EmailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_total",
			Help:      "Total number of credential emails by status",
		},
		[]string{"status"},
	)

	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Duration of bulk import batches in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	BatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Distribution of bulk import batch sizes",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	RepairTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repair_tasks_total",
			Help:      "Total number of repair task attempts by result",
		},
		[]string{"result"},
	)

	RepairTasksOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "repair_tasks_open",
			Help:      "Number of repair tasks not yet completed",
		},
	)

	InvitationsExpired = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "invitations_expired_unused",
			Help:      "Number of invitations past their expiry that were never used",
		},
	)
)

func RecordRow(outcome string) {
	RowsTotal.WithLabelValues(outcome).Inc()
}

func RecordEmail(status string) {
	EmailsTotal.WithLabelValues(status).Inc()
}

func RecordBatch(size int, seconds float64) {
	BatchSize.Observe(float64(size))
	BatchDuration.Observe(seconds)
}

func RecordRepair(result string) {
	RepairTasksTotal.WithLabelValues(result).Inc()
}
