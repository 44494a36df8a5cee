package outbox

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"example.com/pushups/internal/events"
)

func TestDeliverStampsHeadersAndFraming(t *testing.T) {
	producer := &stubProducer{}
	registry := &stubRegistry{id: 42}
	d := &Dispatcher{producer: producer, registry: registry}

	payload := json.RawMessage(`{"user_id":7}`)
	err := d.deliver(context.Background(), []Message{
		{EventID: 1, AggregateType: "user", AggregateID: "7", EventType: events.TypeActivityRecorded, Topic: "progress_events", SchemaSubject: "progress_events-activity_recorded", PartitionKey: "7", Payload: payload},
		{EventID: 2, AggregateType: "user", AggregateID: "7", EventType: events.TypeActivityRecorded, Topic: "progress_events", SchemaSubject: "progress_events-activity_recorded", PartitionKey: "7", Payload: payload},
		{EventID: 3, AggregateType: "user", AggregateID: "7", EventType: events.TypeUserPromoted, Topic: "progress_events", SchemaSubject: "progress_events-user_promoted", PartitionKey: "7", Payload: payload},
	})
	require.NoError(t, err)

	require.Len(t, producer.writes, 1)
	batch := producer.writes[0]
	require.Equal(t, "progress_events", batch.topic)
	require.Len(t, batch.messages, 3)
	require.Len(t, registry.calls, 2, "one registry lookup per subject")

	msg := batch.messages[2]
	require.Equal(t, "7", string(msg.Key))
	require.Equal(t, byte(0), msg.Value[0])
	require.Equal(t, uint32(42), binary.BigEndian.Uint32(msg.Value[1:5]))
	require.JSONEq(t, string(payload), string(msg.Value[5:]))

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	require.Equal(t, events.TypeUserPromoted, headers[HeaderEventType])
	require.Equal(t, "7", headers[HeaderUserID])
	require.Equal(t, "progress_events-user_promoted", headers[HeaderSchemaSubject])
}

func TestDeliverRejectsUnknownEventType(t *testing.T) {
	producer := &stubProducer{}
	registry := &stubRegistry{}
	d := &Dispatcher{producer: producer, registry: registry}

	err := d.deliver(context.Background(), []Message{{EventType: "activity.unknown", Topic: "progress_events"}})
	require.ErrorContains(t, err, "no schema metadata for event_type=activity.unknown")
	require.Empty(t, producer.writes)
	require.Empty(t, registry.calls)
}

func TestDeliverSurfacesRegistryErrors(t *testing.T) {
	d := &Dispatcher{producer: &stubProducer{}, registry: &stubRegistry{err: errors.New("registry down")}}
	err := d.deliver(context.Background(), []Message{{EventType: events.TypeAchievementUnlocked, Topic: "progress_events", SchemaSubject: "s"}})
	require.ErrorContains(t, err, "registry down")
}

func TestBackoffDelayIsCapped(t *testing.T) {
	m := NewDLQManager(nil, 0, 0)
	require.Equal(t, 5, m.maxRetries)
	require.Equal(t, minute(1), m.backoffDelay(1))
	require.Equal(t, minute(4), m.backoffDelay(3))
	require.Equal(t, minute(60), m.backoffDelay(7))
	require.Equal(t, minute(60), m.backoffDelay(40))
}

type stubProducer struct {
	mu     sync.Mutex
	err    error
	writes []writtenBatch
}

type writtenBatch struct {
	topic    string
	messages []kafka.Message
}

func (s *stubProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	copied := make([]kafka.Message, len(msgs))
	copy(copied, msgs)
	s.writes = append(s.writes, writtenBatch{topic: topic, messages: copied})
	return nil
}

type stubRegistry struct {
	mu    sync.Mutex
	id    int
	err   error
	calls []schemaCall
}

type schemaCall struct {
	subject string
	schema  string
}

func (s *stubRegistry) EnsureSchema(ctx context.Context, subject string, schema string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, schemaCall{subject: subject, schema: schema})
	if s.err != nil {
		return 0, s.err
	}
	if s.id == 0 {
		s.id = 1
	}
	return s.id, nil
}

func minute(n int) time.Duration { return time.Duration(n) * time.Minute }
