package consumer

import "github.com/prometheus/client_golang/prometheus"

var (
	messagesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pushups",
		Subsystem: "consumer",
		Name:      "messages_total",
		Help:      "Progress events read from Kafka, labeled by topic, event type and outcome.",
	}, []string{"topic", "event_type", "outcome"})

	notificationsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pushups",
		Subsystem: "consumer",
		Name:      "notifications_sent_total",
		Help:      "Notifications derived from progress events, labeled by event type.",
	}, []string{"event_type"})

	watermarkGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pushups",
		Subsystem: "consumer",
		Name:      "last_processed_timestamp_seconds",
		Help:      "Kafka timestamp of the newest handled message per topic.",
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(messagesCounter, notificationsCounter, watermarkGauge)
}

func recordProcessed(msg Message) {
	messagesCounter.WithLabelValues(msg.Topic, msg.EventType, "processed").Inc()
	if !msg.Timestamp.IsZero() {
		watermarkGauge.WithLabelValues(msg.Topic).Set(float64(msg.Timestamp.Unix()))
	}
}

func recordHandlerError(msg Message) {
	messagesCounter.WithLabelValues(msg.Topic, msg.EventType, "handler_error").Inc()
}

// recordDecodeError counts frames that could not be decoded; their event type is unknown.
func recordDecodeError(topic string) {
	messagesCounter.WithLabelValues(topic, "", "decode_error").Inc()
}

func recordNotification(eventType string) {
	notificationsCounter.WithLabelValues(eventType).Inc()
}
