package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/okian/motionplay/internal/domain/model"
)

// MessageWriter is the part of kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes each record as one JSON message keyed by session ID.
type Kafka struct {
	w MessageWriter
}

// NewKafka creates a synchronous writer for topic on brokers.
func NewKafka(brokers []string, topic string, timeout time.Duration) *Kafka {
	return NewKafkaWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		WriteTimeout: timeout,
	})
}

// NewKafkaWithWriter wraps an existing writer.
func NewKafkaWithWriter(w MessageWriter) *Kafka {
	return &Kafka{w: w}
}

// Publish implements worker.Publisher.
func (p *Kafka) Publish(ctx context.Context, r model.SessionRecord) error { //nolint:gocritic // hugeParam: matches worker.Publisher
	value, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(r.ID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(r.Challenge.Kind)},
			{Key: "state", Value: []byte(r.StateName)},
		},
		Time: r.EndedAt,
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Kafka) Close() error {
	return p.w.Close()
}
