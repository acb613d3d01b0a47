package memory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "tiermask/pkg/platform/audit"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	require.NoError(t, store.Append(ctx, []audit.Record{
		{ID: uuid.New(), ViewerID: "v1", Reason: audit.ReasonFullReveal},
		{ID: uuid.New(), ViewerID: "v2", Reason: audit.ReasonUnknownTier},
	}))
	require.NoError(t, store.Append(ctx, []audit.Record{
		{ID: uuid.New(), ViewerID: "v1", Reason: audit.ReasonFullReveal},
	}))

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, 3, store.Len())

	v1, err := store.ListByViewer(ctx, "v1")
	require.NoError(t, err)
	assert.Len(t, v1, 2)

	all[0].ViewerID = "mutated"
	again, _ := store.ListAll(ctx)
	assert.Equal(t, "v1", again[0].ViewerID)

	store.Clear()
	assert.Equal(t, 0, store.Len())
}
