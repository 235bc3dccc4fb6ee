package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/monstersync/monstersync/pkg/compact"
	"github.com/monstersync/monstersync/pkg/types"
	"github.com/monstersync/monstersync/server/internal/config"
)

// Batch is one accepted push as published downstream.
type Batch struct {
	SessionID  string                           `json:"session_id"`
	RequestID  string                           `json:"request_id"`
	ReceivedAt time.Time                        `json:"received_at"`
	Monsters   compact.List[types.MonsterModel] `json:"monsters"`
}

// Publisher fans accepted batches out to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, b Batch) error
	Close() error
}

// New returns a Kafka publisher when brokers are configured, otherwise Nop.
func New(cfg config.KafkaConfig) Publisher {
	if !cfg.Enabled() {
		return Nop{}
	}
	return NewKafka(cfg.Brokers, cfg.Topic)
}

// messageWriter is the subset of *kafka.Writer used by Kafka.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes each batch as one JSON message keyed by session ID, so all
// batches of a session land on the same partition in push order.
type Kafka struct {
	w     messageWriter
	topic string
}

// NewKafka creates a publisher writing to topic on brokers.
func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		topic: topic,
	}
}

// Publish writes b to the topic.
func (k *Kafka) Publish(ctx context.Context, b Batch) error {
	value, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("sink: marshal batch: %w", err)
	}
	if err := k.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(b.SessionID),
		Value: value,
		Time:  b.ReceivedAt,
	}); err != nil {
		return fmt.Errorf("sink: write to %s: %w", k.topic, err)
	}
	return nil
}

// Close flushes pending writes and releases the writer.
func (k *Kafka) Close() error {
	return k.w.Close()
}

// Nop discards every batch.
type Nop struct{}

func (Nop) Publish(context.Context, Batch) error { return nil }
func (Nop) Close() error                         { return nil }
