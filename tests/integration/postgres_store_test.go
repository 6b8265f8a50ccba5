package integration

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mbenedict/gatehouse/internal/services"
	"github.com/mbenedict/gatehouse/internal/store"
	pkglogger "github.com/mbenedict/gatehouse/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	testDB, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer testDB.Teardown(ctx)

	st := store.NewPostgresStore(testDB.DB)

	t.Run("set and get round trip", func(t *testing.T) {
		require.NoError(t, testDB.CleanupTables(ctx))

		require.NoError(t, st.Set(ctx, "k1", []byte("v1"), time.Minute))
		value, err := st.Get(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), value)
	})

	t.Run("missing key", func(t *testing.T) {
		require.NoError(t, testDB.CleanupTables(ctx))

		_, err := st.Get(ctx, "absent")
		assert.ErrorIs(t, err, store.ErrKeyNotFound)
	})

	t.Run("expired entry is invisible before purge", func(t *testing.T) {
		require.NoError(t, testDB.CleanupTables(ctx))

		require.NoError(t, st.Set(ctx, "short", []byte("v"), 200*time.Millisecond))
		time.Sleep(300 * time.Millisecond)

		_, err := st.Get(ctx, "short")
		assert.ErrorIs(t, err, store.ErrKeyNotFound)
	})

	t.Run("overwrite resets expiry", func(t *testing.T) {
		require.NoError(t, testDB.CleanupTables(ctx))

		require.NoError(t, st.Set(ctx, "k", []byte("old"), 200*time.Millisecond))
		require.NoError(t, st.Set(ctx, "k", []byte("new"), time.Minute))
		time.Sleep(300 * time.Millisecond)

		value, err := st.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("new"), value)
	})

	t.Run("zero ttl never expires", func(t *testing.T) {
		require.NoError(t, testDB.CleanupTables(ctx))

		require.NoError(t, st.Set(ctx, "pinned", []byte("v"), 0))

		var expiresAt *time.Time
		err := testDB.Pool.QueryRow(ctx, "SELECT expires_at FROM gatehouse_kv WHERE key = 'pinned'").Scan(&expiresAt)
		require.NoError(t, err)
		assert.Nil(t, expiresAt)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, testDB.CleanupTables(ctx))

		require.NoError(t, st.Set(ctx, "k", []byte("v"), time.Minute))
		require.NoError(t, st.Delete(ctx, "k"))

		_, err := st.Get(ctx, "k")
		assert.ErrorIs(t, err, store.ErrKeyNotFound)

		// Deleting an absent key is not an error
		assert.NoError(t, st.Delete(ctx, "k"))
	})

	t.Run("purge reclaims expired rows only", func(t *testing.T) {
		require.NoError(t, testDB.CleanupTables(ctx))

		require.NoError(t, st.Set(ctx, "dead1", []byte("v"), 100*time.Millisecond))
		require.NoError(t, st.Set(ctx, "dead2", []byte("v"), 100*time.Millisecond))
		require.NoError(t, st.Set(ctx, "alive", []byte("v"), time.Hour))
		time.Sleep(200 * time.Millisecond)

		purged, err := st.PurgeExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), purged)

		_, err = st.Get(ctx, "alive")
		assert.NoError(t, err)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, st.Ping(ctx))
	})

	t.Run("lockout service over postgres", func(t *testing.T) {
		require.NoError(t, testDB.CleanupTables(ctx))

		logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
		lockout := services.NewLockoutService(st, services.LockoutConfig{
			MaxAttempts:     3,
			LockoutDuration: time.Minute,
		}, logger, pkglogger.NewAuditLogger(logger))

		for i := 0; i < 3; i++ {
			require.NoError(t, lockout.RecordFailure(ctx, "203.0.113.7", "alice"))
		}

		decision := lockout.CheckLockout(ctx, "203.0.113.7", "alice", "password")
		assert.False(t, decision.Allowed)
	})
}
