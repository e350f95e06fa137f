// Package events publishes domain events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/Ali-Herrera/tri-tracker/internal/observability"
)

// Event types.
const (
	TypeImportCommitted   = "import.committed"
	TypeWorkoutCompleted  = "planned_workout.completed"
	TypeCalendarReordered = "calendar.reordered"
)

// Event is the JSON value written to the topic.
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	UserID     string          `json:"userId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// New builds an event with a fresh id.
func New(eventType, userID string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
		Payload:    raw,
	}, nil
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Emit publishes a best-effort event: failures are logged and counted but do
// not fail the operation that produced the event.
func Emit(ctx context.Context, p Publisher, eventType, userID string, payload any) {
	if p == nil {
		return
	}
	e, err := New(eventType, userID, payload)
	if err != nil {
		log.Printf("ERROR: %v", err)
		observability.RecordEvent(eventType, false)
		return
	}
	err = p.Publish(context.WithoutCancel(ctx), e)
	observability.RecordEvent(eventType, err == nil)
	if err != nil {
		log.Printf("WARN: Failed to publish %s event for user %s: %v", eventType, userID, err)
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events keyed by user so one user's events stay
// ordered within a partition. Writers are created lazily per topic.
type KafkaPublisher struct {
	brokers []string
	topic   string

	mu      sync.Mutex
	writers map[string]messageWriter
	newW    func(topic string) messageWriter
}

// NewKafkaPublisher creates a publisher writing to topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	p := &KafkaPublisher{
		brokers: brokers,
		topic:   topic,
		writers: make(map[string]messageWriter),
	}
	p.newW = func(topic string) messageWriter {
		return &kafka.Writer{
			Addr:         kafka.TCP(p.brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Compression:  kafka.Snappy,
			Async:        false,
		}
	}
	return p
}

func (p *KafkaPublisher) writerForTopic(topic string) messageWriter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if w, ok := p.writers[topic]; ok {
		return w
	}
	w := p.newW(topic)
	p.writers[topic] = w
	return w
}

// Publish writes one event with an event_type header.
func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(e.UserID),
		Value: value,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
			{Key: "event_id", Value: []byte(e.ID)},
		},
	}
	return p.writerForTopic(p.topic).WriteMessages(ctx, msg)
}

// Close releases all writers.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.writers, topic)
	}
	return firstErr
}
