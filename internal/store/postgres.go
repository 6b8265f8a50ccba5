package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mbenedict/gatehouse/internal/database"
)

// PostgresStore keeps entries in a single gatehouse_kv table. Expiry is
// enforced on read (expired rows are invisible), so correctness never
// depends on the background sweep; PurgeExpired only reclaims dead rows.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a PostgresStore on top of an existing pool.
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := `
		SELECT value FROM gatehouse_kv
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > CURRENT_TIMESTAMP)
	`

	var value []byte
	err := s.db.Pool.QueryRow(ctx, query, key).Scan(&value)
	if err == pgx.ErrNoRows {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	query := `
		INSERT INTO gatehouse_kv (key, value, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
	`

	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expiresAt = &t
	}

	_, err := s.db.Pool.Exec(ctx, query, key, value, expiresAt)
	return err
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM gatehouse_kv WHERE key = $1`
	_, err := s.db.Pool.Exec(ctx, query, key)
	return err
}

// PurgeExpired removes rows whose TTL has elapsed and returns the number
// of rows deleted.
func (s *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM gatehouse_kv WHERE expires_at IS NOT NULL AND expires_at <= CURRENT_TIMESTAMP`
	tag, err := s.db.Pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Ping reports whether the backing database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.HealthCheck(ctx)
}
