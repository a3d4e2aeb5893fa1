package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupTestRedis initializes a Redis client for testing.
// It assumes Redis is running on localhost:6379.
// Flushes the DB before returning the client.
func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   0,
	})
	_, err := client.Ping(context.Background()).Result()
	if err != nil {
		t.Skipf("Skipping Redis tests: Cannot connect to Redis (%v)", err)
	}
	err = client.FlushDB(context.Background()).Err()
	if err != nil {
		t.Fatalf("Failed to flush Redis DB: %v", err)
	}
	return client
}

func TestStoreSaveLoadDelete(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewStore(client, "test:lob", 0, zap.NewNop())
	ctx := context.Background()

	snap := &Snapshot{
		Time: time.Now().UTC().Truncate(time.Second),
		Bids: []Level{{Price: 100, Size: 2, Count: 2}},
		Asks: []Level{{Price: 101, Size: 1, Count: 1}},
	}

	require.NoError(t, store.Save(ctx, "BTC-USD", snap))

	loaded, err := store.Load(ctx, "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, snap.Bids, loaded.Bids)
	assert.Equal(t, snap.Asks, loaded.Asks)
	assert.True(t, snap.Time.Equal(loaded.Time))

	require.NoError(t, store.Delete(ctx, "BTC-USD"))
	_, err = store.Load(ctx, "BTC-USD")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestStoreLoadMissing(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewStore(client, "test:lob", 0, nil)
	_, err := store.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestStoreKeysAreNamespaced(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	a := NewStore(client, "venue-a", 0, zap.NewNop())
	b := NewStore(client, "venue-b", 0, zap.NewNop())
	ctx := context.Background()

	snapA := &Snapshot{Bids: []Level{{Price: 100, Size: 1}}}
	snapB := &Snapshot{Bids: []Level{{Price: 200, Size: 1}}}

	require.NoError(t, a.Save(ctx, "BTC-USD", snapA))
	require.NoError(t, b.Save(ctx, "BTC-USD", snapB))

	gotA, err := a.Load(ctx, "BTC-USD")
	require.NoError(t, err)
	gotB, err := b.Load(ctx, "BTC-USD")
	require.NoError(t, err)

	assert.Equal(t, 100.0, gotA.Bids[0].Price)
	assert.Equal(t, 200.0, gotB.Bids[0].Price)
}
