package reminder

import "github.com/prometheus/client_golang/prometheus"

var (
	cyclesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pushups",
		Subsystem: "reminder",
		Name:      "cycles_total",
		Help:      "Reminder cycles partitioned by trigger kind and outcome.",
	}, []string{"kind", "outcome"})

	cycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pushups",
		Subsystem: "reminder",
		Name:      "cycle_duration_seconds",
		Help:      "Time spent fanning one reminder cycle out to active users.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	userFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pushups",
		Subsystem: "reminder",
		Name:      "user_failures_total",
		Help:      "Users skipped within a cycle because reading or sending failed.",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(cyclesTotal, cycleDuration, userFailures)
}
