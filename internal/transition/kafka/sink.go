// Package kafka publishes transition log entries to a Kafka topic so
// downstream consumers (billing, dashboards) can react to sales without
// polling the log endpoint.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"simtrack/internal/transition"
)

// Sink produces one JSON record per transition entry, keyed by card code so
// all transitions of a card land on the same partition in order.
type Sink struct {
	client *kgo.Client
	topic  string
}

// NewSink dials the brokers and returns a sink for the topic.
func NewSink(brokers []string, topic string) (*Sink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial kafka: %w", err)
	}
	return &Sink{client: client, topic: topic}, nil
}

// Publish produces the entry synchronously. The publisher treats failures as
// best-effort, so a broker outage costs one warning, not a reconciliation.
func (s *Sink) Publish(ctx context.Context, entry *transition.Entry) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal transition: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(entry.CardCode),
		Value: value,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce transition: %w", err)
	}
	return nil
}

// Close flushes buffered records and releases the client.
func (s *Sink) Close() {
	s.client.Close()
}
