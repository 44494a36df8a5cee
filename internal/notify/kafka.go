package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"

	"example.com/pushups/internal/events"
)

// TopicWriter publishes messages to a named topic. outbox.KafkaProducer satisfies it.
type TopicWriter interface {
	WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error
}

// KafkaSender publishes notifications to a topic keyed by user so a user's messages stay ordered.
type KafkaSender struct {
	writer TopicWriter
	topic  string
}

// NewKafkaSender constructs a KafkaSender.
func NewKafkaSender(writer TopicWriter, topic string) *KafkaSender {
	return &KafkaSender{writer: writer, topic: topic}
}

// Send implements Sender.
func (k *KafkaSender) Send(ctx context.Context, n events.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	key := strconv.FormatInt(n.UserID, 10)
	return k.writer.WriteMessages(ctx, k.topic, kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "user_id", Value: []byte(key)},
			{Key: "notification_kind", Value: []byte(n.Kind)},
		},
	})
}
