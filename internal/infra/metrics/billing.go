package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"website-billing/internal/domain/model"
)

func init() {
	register(
		billingTransitionsTotal,
		reconcileRunsTotal,
		reconcileErrorsTotal,
		reconcileRunDuration,
		notificationsTotal,
		websitesByBillingStatus,
	)
}

var (
	billingTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_transitions_total",
			Help: "Automated billing status transitions applied, labeled by kind.",
		},
		[]string{"kind"}, // 'suspend', 'overdue'
	)

	reconcileRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_reconcile_runs_total",
			Help: "Reconciliation runs, labeled by outcome.",
		},
		[]string{"outcome"}, // 'ok', 'failed', 'skipped'
	)

	reconcileErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_reconcile_record_errors_total",
			Help: "Per-record failures inside reconciliation runs.",
		},
	)

	reconcileRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "billing_reconcile_run_duration_seconds",
			Help:    "Wall-clock duration of reconciliation runs.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_notifications_total",
			Help: "Billing lifecycle emails attempted, labeled by kind and success.",
		},
		[]string{"kind", "success"}, // kind: 'suspended'|'overdue'|'activated'
	)

	websitesByBillingStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "websites_total",
			Help: "Current number of websites by billing status.",
		},
		[]string{"billing_status"},
	)
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func IncBillingTransitions(kind string, count int) {
	if count > 0 {
		billingTransitionsTotal.WithLabelValues(norm(kind)).Add(float64(count))
	}
}

func ObserveReconcileRun(outcome string, seconds float64, recordErrors int) {
	reconcileRunsTotal.WithLabelValues(norm(outcome)).Inc()
	reconcileRunDuration.Observe(seconds)
	if recordErrors > 0 {
		reconcileErrorsTotal.Add(float64(recordErrors))
	}
}

func IncNotification(kind string, success bool) {
	s := "false"
	if success {
		s = "true"
	}
	notificationsTotal.WithLabelValues(norm(kind), s).Inc()
}

func SetWebsitesByBillingStatus(counts map[model.BillingStatus]int) {
	statuses := []model.BillingStatus{
		model.BillingStatusPending,
		model.BillingStatusActive,
		model.BillingStatusOverdue,
		model.BillingStatusSuspended,
	}
	for _, status := range statuses {
		if count, ok := counts[status]; ok {
			websitesByBillingStatus.WithLabelValues(string(status)).Set(float64(count))
		}
	}
}
