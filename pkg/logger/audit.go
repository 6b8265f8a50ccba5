package logger

import (
	"context"
	"log/slog"
	"time"
)

// Event codes emitted by the engine. Every gate and escalation records
// through the audit logger so lockouts, blacklisting, mode changes and
// challenge outcomes all land in the same structured stream.
const (
	EventLoginLockout       = "login_lockout"
	EventLoginFailure       = "login_failure"
	EventLoginSuccess       = "login_success"
	EventBlacklistAuto      = "blacklist_auto"
	EventBlacklistManual    = "blacklist_manual"
	EventBlacklistRemoved   = "blacklist_removed"
	EventBlacklistHit       = "blacklist_hit"
	EventModeActivated      = "defensive_mode_activated"
	EventModeDeactivated    = "defensive_mode_deactivated"
	EventChallengeIssued    = "challenge_issued"
	EventChallengePassed    = "challenge_passed"
	EventChallengeFailed    = "challenge_failed"
	EventChallengeBadToken  = "challenge_invalid_token"
	EventViolationRecorded  = "violation_recorded"
	EventSubmissionRejected = "submission_rejected"
)

// AuditLogger emits structured security audit events. It is a sink: no
// return value is consumed by callers.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// Event records an informational audit event.
func (al *AuditLogger) Event(code, message string, ctxMap map[string]string) {
	al.log(slog.LevelInfo, code, message, ctxMap)
}

// Security records an audit event for a detected violation or escalation.
func (al *AuditLogger) Security(code, message string, ctxMap map[string]string) {
	al.log(slog.LevelWarn, code, message, ctxMap)
}

func (al *AuditLogger) log(level slog.Level, code, message string, ctxMap map[string]string) {
	attrs := []slog.Attr{
		slog.String("audit_type", "security"),
		slog.String("event_code", code),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	for key, val := range ctxMap {
		attrs = append(attrs, slog.String(key, val))
	}

	al.logger.LogAttrs(context.Background(), level, message, attrs...)
}
