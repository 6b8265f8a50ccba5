package models

import "time"

// Rejection reason codes surfaced by the guard and tracker. These are
// machine-readable; the user-facing text stays generic.
const (
	ReasonBlacklisted       = "blacklisted"
	ReasonLockedOut         = "locked_out"
	ReasonChallengeRequired = "challenge_required"
	ReasonChallengeFailed   = "challenge_failed"
	ReasonHoneypot          = "honeypot"
	ReasonTooFast           = "too_fast"
	ReasonRateLimited       = "rate_limited"
	ReasonSpamContent       = "spam_content"
	ReasonStoreUnavailable  = "store_unavailable"
)

// Decision is the outcome of evaluating a submission. Expected rejections
// are values, never errors.
type Decision struct {
	Allowed    bool
	Reason     string        // machine-readable code, empty when allowed
	Message    string        // user-facing text, generic and non-enumerating
	RetryAfter time.Duration // populated for lockout rejections
}

// Allow returns an accepting decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Reject returns a rejecting decision with the given code and user message.
func Reject(reason, message string) Decision {
	return Decision{Allowed: false, Reason: reason, Message: message}
}

// RejectWithRetry returns a rejection that discloses a retry-after hint.
func RejectWithRetry(reason, message string, retryAfter time.Duration) Decision {
	return Decision{Allowed: false, Reason: reason, Message: message, RetryAfter: retryAfter}
}
