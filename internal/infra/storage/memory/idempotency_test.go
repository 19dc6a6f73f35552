package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"circlo/internal/app/middleware"
)

func TestIdempotencyStoreExpiresAndPurges(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := NewIdempotencyStore(time.Hour)
	store.now = func() time.Time { return clock }

	require.NoError(t, store.Save(ctx, middleware.IdempotencyRecord{Key: "old", Payload: []byte(`1`)}))
	clock = clock.Add(45 * time.Minute)
	require.NoError(t, store.Save(ctx, middleware.IdempotencyRecord{Key: "fresh", Payload: []byte(`2`)}))

	rec, ok, err := store.Get(ctx, "old")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `1`, string(rec.Payload))

	clock = clock.Add(30 * time.Minute)
	_, ok, err = store.Get(ctx, "old")
	require.NoError(t, err)
	require.False(t, ok)

	n, err := store.Purge(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	_, ok, _ = store.Get(ctx, "fresh")
	require.True(t, ok)
}

func TestIdempotencyStoreWithoutTTLKeepsResults(t *testing.T) {
	ctx := context.Background()
	store := NewIdempotencyStore(0)
	require.NoError(t, store.Save(ctx, middleware.IdempotencyRecord{Key: "k", OccurredAt: time.Unix(0, 0)}))
	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
}
