package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// ErrKeyNotFound is returned by Get when a key is absent or its TTL has
// elapsed. The two cases are deliberately indistinguishable: an entry's
// presence is its truth value.
var ErrKeyNotFound = errors.New("key not found")

// Store is the expiring key-value store every engine component is built
// on. Keys are opaque strings; values are serialized records. There are
// no transactions and no atomic increment: callers do read-modify-write
// and tolerate small under-counts under concurrent load.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Purger is implemented by backends that need a periodic sweep of rows
// whose TTL has elapsed but that the backend does not auto-evict.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Key prefixes for the engine's record families.
const (
	prefixLoginAttempts = "login_attempts:"
	prefixLoginLock     = "login_lock:"
	prefixViolations    = "violations:"
	prefixBlacklist     = "blacklist:"
	prefixSubmissions   = "submissions:"
	prefixAttack        = "attack:"
	prefixChallenge     = "challenge:"

	// KeyDefensiveMode is the singleton defensive-mode entry.
	KeyDefensiveMode = "defensive_mode"
)

// hashOrigin content-addresses an origin so raw client addresses are never
// used as store keys while equality lookups still work.
func hashOrigin(origin string) string {
	sum := sha256.Sum256([]byte(origin))
	return hex.EncodeToString(sum[:])
}

// LoginAttemptsKey returns the failed-attempt counter key for an origin.
func LoginAttemptsKey(origin string) string {
	return prefixLoginAttempts + hashOrigin(origin)
}

// LoginLockKey returns the lockout flag key for an origin.
func LoginLockKey(origin string) string {
	return prefixLoginLock + hashOrigin(origin)
}

// ViolationsKey returns the violation list key for an origin.
func ViolationsKey(origin string) string {
	return prefixViolations + hashOrigin(origin)
}

// BlacklistKey returns the blacklist entry key for an origin.
func BlacklistKey(origin string) string {
	return prefixBlacklist + hashOrigin(origin)
}

// SubmissionsKey returns the rolling submission counter key for an origin.
func SubmissionsKey(origin string) string {
	return prefixSubmissions + hashOrigin(origin)
}

// AttackBucketKey returns the per-minute attack counter key for the given
// instant. Buckets are self-expiring, so old minutes never accumulate.
func AttackBucketKey(t time.Time) string {
	return prefixAttack + t.UTC().Format("2006-01-02-15-04")
}

// ChallengeKey returns the key holding the expected answer for a token.
func ChallengeKey(token string) string {
	return prefixChallenge + token
}
