package outbox

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// DLQ outcomes.
const (
	dlqOutcomeRequeued    = "requeued"
	dlqOutcomeRetry       = "retry_scheduled"
	dlqOutcomeQuarantined = "quarantined"
)

var (
	dlqOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pushups",
		Subsystem: "dlq",
		Name:      "entries_total",
		Help:      "DLQ entries handled by the manager, labeled by event type and outcome.",
	}, []string{"event_type", "outcome"})

	dlqAttempts = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pushups",
		Subsystem: "dlq",
		Name:      "attempts_before_outcome",
		Help:      "Retry count an entry carried when it was requeued or quarantined.",
		Buckets:   []float64{0, 1, 2, 3, 5, 8},
	}, []string{"outcome"})

	dlqBacklog = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pushups",
		Subsystem: "dlq",
		Name:      "entries",
		Help:      "Rows currently in outbox_dlq by state.",
	}, []string{"state"})
)

func init() {
	prometheus.MustRegister(dlqOutcomes, dlqAttempts, dlqBacklog)
}

func recordDLQOutcome(entry dlqEntry, outcome string) {
	dlqOutcomes.WithLabelValues(entry.EventType, outcome).Inc()
	if outcome != dlqOutcomeRetry {
		dlqAttempts.WithLabelValues(outcome).Observe(float64(entry.RetryCount))
	}
}

// updateBacklogGauge refreshes the pending and quarantined totals. Errors leave the last values.
func updateBacklogGauge(ctx context.Context, pool *pgxpool.Pool) {
	var pending, quarantined int64
	err := pool.QueryRow(ctx, `
        SELECT COUNT(*) FILTER (WHERE quarantined_at IS NULL),
               COUNT(*) FILTER (WHERE quarantined_at IS NOT NULL)
          FROM outbox_dlq`).Scan(&pending, &quarantined)
	if err != nil {
		return
	}
	dlqBacklog.WithLabelValues("pending").Set(float64(pending))
	dlqBacklog.WithLabelValues("quarantined").Set(float64(quarantined))
}

