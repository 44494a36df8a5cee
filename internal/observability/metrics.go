// Package observability holds process-wide Prometheus collectors for the progression engine.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	activitiesRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pushups",
		Subsystem: "ledger",
		Name:      "activities_recorded_total",
		Help:      "Activities applied to the daily ledger, labeled complete or skip.",
	}, []string{"kind"})

	amountRecorded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pushups",
		Subsystem: "ledger",
		Name:      "amount_recorded_total",
		Help:      "Sum of all recorded amounts.",
	})

	promotions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pushups",
		Subsystem: "progression",
		Name:      "promotions_total",
		Help:      "Level promotions, labeled by the level reached.",
	}, []string{"level"})

	achievements = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pushups",
		Subsystem: "progression",
		Name:      "achievements_total",
		Help:      "Active-day milestones reached, labeled by day count.",
	}, []string{"days"})

	lastActivityGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "pushups",
		Subsystem: "ledger",
		Name:      "last_activity_recorded_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity written to the ledger.",
	})
)

func init() {
	prometheus.MustRegister(activitiesRecorded, amountRecorded, promotions, achievements, lastActivityGauge)
}

// RecordActivity counts a ledger write and moves the watermark gauge.
func RecordActivity(amount int, ts time.Time) {
	kind := "complete"
	if amount == 0 {
		kind = "skip"
	}
	activitiesRecorded.WithLabelValues(kind).Inc()
	amountRecorded.Add(float64(amount))
	if !ts.IsZero() {
		lastActivityGauge.Set(float64(ts.Unix()))
	}
}

// RecordPromotion counts a promotion to level.
func RecordPromotion(level int) {
	promotions.WithLabelValues(strconv.Itoa(level)).Inc()
}

// RecordAchievement counts a milestone.
func RecordAchievement(days int) {
	achievements.WithLabelValues(strconv.Itoa(days)).Inc()
}
