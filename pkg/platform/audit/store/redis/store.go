// Package redis appends audit records to a capped Redis stream.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	audit "tiermask/pkg/platform/audit"
)

const (
	DefaultStream = "tiermask:audit"
	DefaultMaxLen = 1_000_000
)

// Store implements audit.Store with XADD. The stream is trimmed
// approximately to MaxLen entries, so Redis memory stays bounded while a
// downstream consumer moves records to long-term storage.
type Store struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

// Option configures the Store.
type Option func(*Store)

// WithStream sets the stream key.
func WithStream(stream string) Option {
	return func(s *Store) {
		if stream != "" {
			s.stream = stream
		}
	}
}

// WithMaxLen sets the approximate stream cap.
func WithMaxLen(n int64) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxLen = n
		}
	}
}

// New creates a Redis stream audit store.
func New(client redis.Cmdable, opts ...Option) *Store {
	s := &Store{
		client: client,
		stream: DefaultStream,
		maxLen: DefaultMaxLen,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stream returns the stream key records are written to.
func (s *Store) Stream() string {
	return s.stream
}

// Append adds one stream entry per record in a single MULTI/EXEC.
func (s *Store) Append(ctx context.Context, records []audit.Record) error {
	if len(records) == 0 {
		return nil
	}

	payloads := make([][]byte, len(records))
	for i, r := range records {
		b, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal audit record: %w", err)
		}
		payloads[i] = b
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, r := range records {
			pipe.XAdd(ctx, &redis.XAddArgs{
				Stream: s.stream,
				MaxLen: s.maxLen,
				Approx: true,
				Values: map[string]any{
					"id":      r.ID.String(),
					"reason":  string(r.Reason),
					"payload": payloads[i],
				},
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("xadd audit records: %w", err)
	}
	return nil
}

// Recent reads up to count of the newest records, newest first.
func (s *Store) Recent(ctx context.Context, count int64) ([]audit.Record, error) {
	msgs, err := s.client.XRevRangeN(ctx, s.stream, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("xrevrange audit stream: %w", err)
	}

	records := make([]audit.Record, 0, len(msgs))
	for _, m := range msgs {
		raw, ok := m.Values["payload"].(string)
		if !ok {
			return nil, fmt.Errorf("audit stream entry %s has no payload", m.ID)
		}
		var r audit.Record
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("decode audit stream entry %s: %w", m.ID, err)
		}
		records = append(records, r)
	}
	return records, nil
}
