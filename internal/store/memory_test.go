package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/mbenedict/gatehouse/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SetGet(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	err := st.Set(ctx, "key", []byte("value"), time.Minute)
	require.NoError(t, err)

	value, err := st.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), value)
}

func TestMemoryStore_GetMissing(t *testing.T) {
	st := store.NewMemoryStore()

	_, err := st.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrKeyNotFound)
}

func TestMemoryStore_ExpiresAfterTTL(t *testing.T) {
	now := time.Now()
	st := store.NewMemoryStoreWithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "key", []byte("value"), 10*time.Second))

	// Still alive just before expiry
	now = now.Add(9 * time.Second)
	_, err := st.Get(ctx, "key")
	assert.NoError(t, err)

	// Gone at expiry
	now = now.Add(1 * time.Second)
	_, err = st.Get(ctx, "key")
	assert.ErrorIs(t, err, store.ErrKeyNotFound)
}

func TestMemoryStore_OverwriteResetsTTL(t *testing.T) {
	now := time.Now()
	st := store.NewMemoryStoreWithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "key", []byte("a"), 10*time.Second))

	now = now.Add(8 * time.Second)
	require.NoError(t, st.Set(ctx, "key", []byte("b"), 10*time.Second))

	// Past the original expiry but inside the renewed one
	now = now.Add(5 * time.Second)
	value, err := st.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), value)
}

func TestMemoryStore_ZeroTTLNeverExpires(t *testing.T) {
	now := time.Now()
	st := store.NewMemoryStoreWithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "key", []byte("value"), 0))

	now = now.Add(24 * time.Hour)
	_, err := st.Get(ctx, "key")
	assert.NoError(t, err)
}

func TestMemoryStore_Delete(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "key", []byte("value"), time.Minute))
	require.NoError(t, st.Delete(ctx, "key"))

	_, err := st.Get(ctx, "key")
	assert.ErrorIs(t, err, store.ErrKeyNotFound)

	// Deleting an absent key is not an error
	assert.NoError(t, st.Delete(ctx, "key"))
}

func TestOriginKeys_HashRawAddress(t *testing.T) {
	key := store.BlacklistKey("203.0.113.7")

	assert.NotContains(t, key, "203.0.113.7")
	assert.Equal(t, key, store.BlacklistKey("203.0.113.7"))
	assert.NotEqual(t, key, store.BlacklistKey("203.0.113.8"))
	assert.NotEqual(t, store.ViolationsKey("203.0.113.7"), key)
}

func TestAttackBucketKey_MinuteGranularity(t *testing.T) {
	base := time.Date(2026, 3, 14, 9, 26, 30, 0, time.UTC)

	assert.Equal(t, store.AttackBucketKey(base), store.AttackBucketKey(base.Add(20*time.Second)))
	assert.NotEqual(t, store.AttackBucketKey(base), store.AttackBucketKey(base.Add(time.Minute)))
}
