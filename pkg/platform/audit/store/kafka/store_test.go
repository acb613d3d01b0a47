package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "tiermask/pkg/platform/audit"
)

type fakeProducer struct {
	produced []*kgo.Record
	err      error
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		if f.err == nil {
			f.produced = append(f.produced, r)
		}
		results = append(results, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return results
}

func TestStore_Append(t *testing.T) {
	p := &fakeProducer{}
	store := New(p, "masking-audit")

	rec := audit.Record{
		ID:        uuid.New(),
		Timestamp: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		ViewerID:  "analyst-17",
		Tier:      "admin",
		DataType:  "iban",
		RuleID:    "iban/admin",
		Reason:    audit.ReasonFullReveal,
	}
	require.NoError(t, store.Append(context.Background(), []audit.Record{rec}))

	require.Len(t, p.produced, 1)
	msg := p.produced[0]
	assert.Equal(t, "masking-audit", msg.Topic)
	assert.Equal(t, []byte("analyst-17"), msg.Key)
	assert.Equal(t, rec.Timestamp, msg.Timestamp)

	var decoded audit.Record
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, rec.ID, decoded.ID)
	assert.Equal(t, audit.ReasonFullReveal, decoded.Reason)
}

func TestStore_AppendPropagatesProduceErrors(t *testing.T) {
	p := &fakeProducer{err: errors.New("broker down")}
	store := New(p, "masking-audit")

	err := store.Append(context.Background(), []audit.Record{{ID: uuid.New()}})
	assert.ErrorContains(t, err, "broker down")
}

func TestStore_AppendEmptyBatch(t *testing.T) {
	p := &fakeProducer{}
	require.NoError(t, New(p, "t").Append(context.Background(), nil))
	assert.Empty(t, p.produced)
}
