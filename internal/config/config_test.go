package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithMemoryBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Server.StoreBackend)
	assert.Equal(t, 5, cfg.Security.MaxLoginAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Security.LockoutDuration)
	assert.Equal(t, 5, cfg.Security.BlacklistThreshold)
	assert.Equal(t, 20, cfg.Security.AttackThreshold)
	assert.Equal(t, 30*time.Minute, cfg.Security.DefensiveModeDuration)
	assert.Equal(t, "website", cfg.Security.HoneypotField)
	assert.Equal(t, 2*time.Second, cfg.Security.MinFillDuration)
	assert.Empty(t, cfg.Security.DemoUsers)
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("MAX_LOGIN_ATTEMPTS", "3")
	t.Setenv("LOCKOUT_DURATION", "5m")
	t.Setenv("HONEYPOT_FIELD", "url")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Security.MaxLoginAttempts)
	assert.Equal(t, 5*time.Minute, cfg.Security.LockoutDuration)
	assert.Equal(t, "url", cfg.Security.HoneypotField)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "redis")

	_, err := Load()
	assert.ErrorContains(t, err, "STORE_BACKEND")
}

func TestLoad_PostgresRequiresPassword(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DB_PASSWORD", "")

	_, err := Load()
	assert.ErrorContains(t, err, "DB_PASSWORD")
}

func TestLoad_RejectsZeroThresholds(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("BLACKLIST_THRESHOLD", "0")

	_, err := Load()
	assert.ErrorContains(t, err, "BLACKLIST_THRESHOLD")
}

func TestParseDemoUsers(t *testing.T) {
	users := parseDemoUsers("alice:$2a$10$abcdef, bob:$2a$10$ghijkl")
	assert.Equal(t, map[string]string{
		"alice": "$2a$10$abcdef",
		"bob":   "$2a$10$ghijkl",
	}, users)

	assert.Empty(t, parseDemoUsers(""))
	assert.Empty(t, parseDemoUsers("malformed-pair"))
}

func TestDatabaseConfigDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host: "localhost", Port: 5432, User: "postgres",
		Password: "secret", Name: "gatehouse", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=secret dbname=gatehouse sslmode=disable",
		cfg.DSN())
}
