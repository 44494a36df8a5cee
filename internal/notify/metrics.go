package notify

import "github.com/prometheus/client_golang/prometheus"

var sendTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pushups",
	Subsystem: "notify",
	Name:      "sends_total",
	Help:      "Notification deliveries partitioned by kind and outcome.",
}, []string{"kind", "outcome"})

func init() {
	prometheus.MustRegister(sendTotal)
}

func observeSend(kind string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	sendTotal.WithLabelValues(kind, outcome).Inc()
}
