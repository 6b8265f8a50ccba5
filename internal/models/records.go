package models

import "time"

// AttemptRecord tracks failed login attempts for a single origin. It lives
// in the expiring store under the hashed origin and disappears when the
// lockout window elapses.
type AttemptRecord struct {
	AttemptCount  int       `json:"attempt_count"`
	LastFailureAt time.Time `json:"last_failure_at"`
}

// LockoutFlag marks an origin as locked out. Its presence in the store is
// the lockout signal; once the TTL elapses the origin is unlocked.
type LockoutFlag struct {
	LockedAt        time.Time `json:"locked_at"`
	DurationSeconds int       `json:"duration_seconds"`
}

// RemainingAt returns how much of the lockout is left at the given time.
func (f LockoutFlag) RemainingAt(t time.Time) time.Duration {
	expiry := f.LockedAt.Add(time.Duration(f.DurationSeconds) * time.Second)
	if remaining := expiry.Sub(t); remaining > 0 {
		return remaining
	}
	return 0
}

// Violation is a single detected policy breach attributed to an origin.
type Violation struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	UserAgent   string    `json:"user_agent,omitempty"`
	RequestPath string    `json:"request_path,omitempty"`
}

// Violation types recorded by the submission guard.
const (
	ViolationHoneypot  = "honeypot"
	ViolationTiming    = "timing"
	ViolationRateLimit = "rate_limit"
	ViolationSpam      = "spam_content"
)

// BlacklistEntry blocks an origin for its TTL. Auto entries carry a
// snapshot of the violations that triggered them.
type BlacklistEntry struct {
	ID              string      `json:"id"`
	Origin          string      `json:"origin"`
	Reason          string      `json:"reason"`
	CreatedAt       time.Time   `json:"created_at"`
	DurationSeconds int         `json:"duration_seconds"`
	Auto            bool        `json:"auto"`
	Violations      []Violation `json:"violations,omitempty"`
}

// DefensiveModeState is the singleton entry whose presence in the store
// means defensive mode is active.
type DefensiveModeState struct {
	Reason          string    `json:"reason"`
	ActivatedAt     time.Time `json:"activated_at"`
	DurationSeconds int       `json:"duration_seconds"`
	ActivatedBy     string    `json:"activated_by"`
}

// AttackCounter is a per-minute bucket of attack signals.
type AttackCounter struct {
	Count int `json:"count"`
}

// SubmissionCounter is the per-origin rolling submission counter used by
// the guard's rate-limit gate. WindowStart anchors the window so rewrites
// can preserve the original expiry.
type SubmissionCounter struct {
	Count       int       `json:"count"`
	WindowStart time.Time `json:"window_start"`
}

// Challenge is the client-facing half of a generated challenge. The
// expected answer stays server-side, keyed by the token.
type Challenge struct {
	Question string `json:"question"`
	Token    string `json:"token"`
}
