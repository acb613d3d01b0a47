// Package kafka publishes audit records to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "tiermask/pkg/platform/audit"
)

// Producer is the subset of *kgo.Client the store needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Store implements audit.Store by producing one message per record. Records
// are keyed by viewer so that one viewer's trail stays ordered within a
// partition.
type Store struct {
	producer Producer
	topic    string
}

// New creates a Kafka audit store writing to topic.
func New(producer Producer, topic string) *Store {
	return &Store{producer: producer, topic: topic}
}

// Append produces the batch and waits for every acknowledgement.
func (s *Store) Append(ctx context.Context, records []audit.Record) error {
	if len(records) == 0 {
		return nil
	}

	batch := make([]*kgo.Record, 0, len(records))
	for _, r := range records {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal audit record: %w", err)
		}
		batch = append(batch, &kgo.Record{
			Topic:     s.topic,
			Key:       []byte(r.ViewerID),
			Value:     payload,
			Timestamp: r.Timestamp,
			Headers: []kgo.RecordHeader{
				{Key: "record_id", Value: []byte(r.ID.String())},
				{Key: "reason", Value: []byte(r.Reason)},
			},
		})
	}

	if err := s.producer.ProduceSync(ctx, batch...).FirstErr(); err != nil {
		return fmt.Errorf("produce audit records: %w", err)
	}
	return nil
}
