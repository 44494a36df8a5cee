// Package consumer reacts to progress events published by the outbox dispatcher.
package consumer

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/pushups/internal/events"
	"example.com/pushups/internal/outbox"
)

// wireHeaderLen is the magic byte plus the big-endian schema id.
const wireHeaderLen = 5

var errUnknownEventType = errors.New("unknown event type")

// Reader exposes the minimal kafka.Reader interface needed by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded progress events.
type Handler interface {
	Handle(context.Context, Message) error
}

// Message is one progress event as read from Kafka. Event holds the typed payload:
// events.ActivityRecorded, events.UserPromoted or events.AchievementUnlocked.
type Message struct {
	Topic         string
	Partition     int
	Offset        int64
	Timestamp     time.Time
	EventType     string
	UserID        int64
	SchemaSubject string
	SchemaID      int
	Payload       json.RawMessage
	Event         any
}

// TypedEvent returns Event, decoding Payload when the message was built without it.
func (m Message) TypedEvent() (any, error) {
	if m.Event != nil {
		return m.Event, nil
	}
	evt, _, err := decodeEvent(m.EventType, m.Payload)
	return evt, err
}

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger *log.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithFetchBackoff sets the pause after a failed fetch.
func WithFetchBackoff(d time.Duration) Option {
	return func(p *Processor) {
		p.fetchBackoff = d
	}
}

// Processor pulls progress events from Kafka and hands them to a Handler. Offsets are committed
// after the handler succeeds, or immediately for frames that can never be decoded.
type Processor struct {
	reader       Reader
	handler      Handler
	logger       *log.Logger
	fetchBackoff time.Duration
}

// NewProcessor constructs a Processor with the provided reader and handler.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:       reader,
		handler:      handler,
		logger:       log.New(log.Writer(), "[consumer] ", log.LstdFlags|log.Lshortfile),
		fetchBackoff: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes messages until ctx is cancelled or the reader reports cancellation.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		raw, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			p.logger.Printf("fetch error: %v", err)
			if err := pause(ctx, p.fetchBackoff); err != nil {
				return err
			}
			continue
		}

		if p.process(ctx, raw) {
			p.commit(ctx, raw)
		}
	}
}

// process reports whether raw's offset may be committed.
func (p *Processor) process(ctx context.Context, raw kafka.Message) bool {
	msg, err := decodeMessage(raw)
	if err != nil {
		// Undecodable frames are committed so they cannot block the partition.
		p.logger.Printf("decode error (topic=%s, partition=%d, offset=%d): %v", raw.Topic, raw.Partition, raw.Offset, err)
		recordDecodeError(raw.Topic)
		return true
	}

	if err := p.handler.Handle(ctx, msg); err != nil {
		p.logger.Printf("handler error (event_type=%s, user=%d, offset=%d): %v", msg.EventType, msg.UserID, msg.Offset, err)
		recordHandlerError(msg)
		return false
	}
	recordProcessed(msg)
	return true
}

func (p *Processor) commit(ctx context.Context, raw kafka.Message) {
	if err := p.reader.CommitMessages(ctx, raw); err != nil {
		p.logger.Printf("commit error (topic=%s, offset=%d): %v", raw.Topic, raw.Offset, err)
	}
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func decodeMessage(raw kafka.Message) (Message, error) {
	schemaID, payload, err := splitFrame(raw.Value)
	if err != nil {
		return Message{}, err
	}

	eventType, ok := headerValue(raw, outbox.HeaderEventType)
	if !ok {
		return Message{}, errors.New("missing event_type header")
	}
	evt, payloadUser, err := decodeEvent(string(eventType), payload)
	if err != nil {
		return Message{}, err
	}
	userID, err := resolveUser(raw, payloadUser)
	if err != nil {
		return Message{}, err
	}
	subject, _ := headerValue(raw, outbox.HeaderSchemaSubject)

	return Message{
		Topic:         raw.Topic,
		Partition:     raw.Partition,
		Offset:        raw.Offset,
		Timestamp:     raw.Time,
		EventType:     string(eventType),
		UserID:        userID,
		SchemaSubject: string(subject),
		SchemaID:      schemaID,
		Payload:       payload,
		Event:         evt,
	}, nil
}

// splitFrame strips the Confluent wire header from value.
func splitFrame(value []byte) (int, json.RawMessage, error) {
	if len(value) < wireHeaderLen {
		return 0, nil, fmt.Errorf("invalid payload length: %d", len(value))
	}
	if value[0] != 0 {
		return 0, nil, fmt.Errorf("unexpected magic byte: %d", value[0])
	}
	schemaID := int(binary.BigEndian.Uint32(value[1:wireHeaderLen]))
	return schemaID, append(json.RawMessage(nil), value[wireHeaderLen:]...), nil
}

// decodeEvent unmarshals payload into the struct registered for eventType and returns the user
// it names.
func decodeEvent(eventType string, payload json.RawMessage) (any, int64, error) {
	switch eventType {
	case events.TypeActivityRecorded:
		var evt events.ActivityRecorded
		err := unmarshalEvent(eventType, payload, &evt)
		return evt, evt.UserID, err
	case events.TypeUserPromoted:
		var evt events.UserPromoted
		err := unmarshalEvent(eventType, payload, &evt)
		return evt, evt.UserID, err
	case events.TypeAchievementUnlocked:
		var evt events.AchievementUnlocked
		err := unmarshalEvent(eventType, payload, &evt)
		return evt, evt.UserID, err
	default:
		return nil, 0, fmt.Errorf("%w %q", errUnknownEventType, eventType)
	}
}

func unmarshalEvent(eventType string, payload json.RawMessage, dst any) error {
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("decode %s: %w", eventType, err)
	}
	return nil
}

// resolveUser takes the user from the user_id header, then the message key, then the payload.
// A header or key that disagrees with a non-zero payload user is rejected.
func resolveUser(raw kafka.Message, payloadUser int64) (int64, error) {
	value, ok := headerValue(raw, outbox.HeaderUserID)
	if !ok || len(value) == 0 {
		value = raw.Key
	}
	if len(value) == 0 {
		if payloadUser == 0 {
			return 0, errors.New("message names no user")
		}
		return payloadUser, nil
	}

	id, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse user id %q: %w", value, err)
	}
	if payloadUser != 0 && payloadUser != id {
		return 0, fmt.Errorf("user id %d does not match payload user %d", id, payloadUser)
	}
	return id, nil
}

func headerValue(msg kafka.Message, key string) ([]byte, bool) {
	for _, header := range msg.Headers {
		if header.Key == key {
			return header.Value, true
		}
	}
	return nil, false
}
