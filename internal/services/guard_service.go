package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/mbenedict/gatehouse/internal/models"
	"github.com/mbenedict/gatehouse/internal/store"
	pkglogger "github.com/mbenedict/gatehouse/pkg/logger"
)

// GuardConfig holds configuration for the submission guard's own gates.
// The submission counter is independent from login attempt tracking.
type GuardConfig struct {
	SubmissionLimit  int
	SubmissionWindow time.Duration
	MinFillDuration  time.Duration
}

// Submission is one guarded form submission, already resolved to an
// origin by the caller.
type Submission struct {
	Origin          string
	Fields          map[string]string
	HoneypotValue   string     // value of the decoy field, empty for humans
	StartedAt       *time.Time // client-recorded form render time, if any
	ChallengeToken  string
	ChallengeAnswer string
	UserAgent       string
	Path            string
}

// GuardService composes the blacklist, defensive mode, heuristics and the
// rolling submission counter into a single accept/reject decision. Gates
// run in a fixed order and short-circuit on the first rejection.
//
// Store failure policy: the blacklist and defensive-mode gates fail closed
// (a known-bad origin must never slip through silently), the soft gates
// fail open (a store outage must not take the protected form down).
type GuardService struct {
	store      store.Store
	violations *ViolationService
	monitor    *AttackMonitorService
	challenges *ChallengeService
	detector   SpamDetector
	config     GuardConfig
	logger     *slog.Logger
	audit      *pkglogger.AuditLogger
	now        func() time.Time
}

// NewGuardService creates a new GuardService
func NewGuardService(
	st store.Store,
	violations *ViolationService,
	monitor *AttackMonitorService,
	challenges *ChallengeService,
	detector SpamDetector,
	config GuardConfig,
	logger *slog.Logger,
	audit *pkglogger.AuditLogger,
) *GuardService {
	return &GuardService{
		store:      st,
		violations: violations,
		monitor:    monitor,
		challenges: challenges,
		detector:   detector,
		config:     config,
		logger:     logger,
		audit:      audit,
		now:        time.Now,
	}
}

const genericRejection = "Your submission could not be accepted."

// CheckSubmission runs the gate pipeline. Rejections from the heuristic
// gates feed both the violation ledger and the attack monitor, so
// unrelated abuse vectors converge into the same escalation path.
// Blacklist and challenge rejections are consequences of prior violations
// and are logged without recording new ones.
func (s *GuardService) CheckSubmission(ctx context.Context, sub Submission) models.Decision {
	// 1. Blacklist gate
	blacklisted, err := s.violations.IsBlacklisted(ctx, sub.Origin)
	if err != nil {
		s.logger.Error("blacklist check failed, rejecting", slog.Any("error", err))
		return models.Reject(models.ReasonStoreUnavailable, genericRejection)
	}
	if blacklisted {
		s.audit.Security(pkglogger.EventBlacklistHit, "submission from blacklisted origin", map[string]string{
			"origin": sub.Origin,
			"path":   sub.Path,
		})
		return models.Reject(models.ReasonBlacklisted, genericRejection)
	}

	// 2. Defensive-mode gate
	modeActive, err := s.monitor.IsActive(ctx)
	if err != nil {
		s.logger.Error("defensive mode check failed, rejecting", slog.Any("error", err))
		return models.Reject(models.ReasonStoreUnavailable, genericRejection)
	}
	if modeActive {
		if sub.ChallengeToken == "" {
			s.audit.Security(pkglogger.EventSubmissionRejected, "challenge required but missing", map[string]string{
				"origin": sub.Origin,
				"path":   sub.Path,
			})
			return models.Reject(models.ReasonChallengeRequired, "Please complete the verification challenge.")
		}
		if !s.challenges.Validate(ctx, sub.ChallengeAnswer, sub.ChallengeToken) {
			return models.Reject(models.ReasonChallengeFailed, "Verification failed. Request a new challenge and try again.")
		}
	}

	// 3. Decoy-field gate
	if sub.HoneypotValue != "" {
		s.flagViolation(ctx, sub, models.ViolationHoneypot)
		return models.Reject(models.ReasonHoneypot, genericRejection)
	}

	// 4. Timing gate
	if sub.StartedAt != nil {
		if elapsed := s.now().Sub(*sub.StartedAt); elapsed >= 0 && elapsed < s.config.MinFillDuration {
			s.flagViolation(ctx, sub, models.ViolationTiming)
			return models.Reject(models.ReasonTooFast, genericRejection)
		}
	}

	// 5. Rate-limit gate
	if exceeded := s.countSubmission(ctx, sub.Origin); exceeded {
		s.flagViolation(ctx, sub, models.ViolationRateLimit)
		return models.Reject(models.ReasonRateLimited, "Too many submissions. Please wait a moment and try again.")
	}

	// 6. Heuristic content gate
	if matched, detail := s.detector.Detect(joinFieldText(sub.Fields)); matched {
		s.logger.Info("spam heuristic matched", slog.String("detail", detail))
		s.flagViolation(ctx, sub, models.ViolationSpam)
		return models.Reject(models.ReasonSpamContent, genericRejection)
	}

	return models.Allow()
}

// flagViolation feeds a heuristic rejection into both escalation paths.
// Failures are logged, never surfaced: recording bookkeeping must not
// change the caller's decision.
func (s *GuardService) flagViolation(ctx context.Context, sub Submission, violationType string) {
	if err := s.violations.Record(ctx, sub.Origin, violationType, sub.UserAgent, sub.Path); err != nil {
		s.logger.Error("failed to record violation",
			slog.String("violation_type", violationType),
			slog.Any("error", err))
	}
	if err := s.monitor.RecordAttack(ctx, sub.Origin); err != nil {
		s.logger.Error("failed to record attack signal", slog.Any("error", err))
	}
}

// countSubmission increments the origin's rolling submission counter and
// reports whether the origin is over the limit. The window is anchored at
// the first submission; rewrites preserve the original expiry. Store
// failures fail open.
func (s *GuardService) countSubmission(ctx context.Context, origin string) bool {
	key := store.SubmissionsKey(origin)

	var counter models.SubmissionCounter
	data, err := s.store.Get(ctx, key)
	switch {
	case errors.Is(err, store.ErrKeyNotFound):
		counter = models.SubmissionCounter{WindowStart: s.now()}
	case err != nil:
		s.logger.Error("submission counter read failed, allowing", slog.Any("error", err))
		return false
	default:
		if err := json.Unmarshal(data, &counter); err != nil {
			s.logger.Error("malformed submission counter, resetting", slog.Any("error", err))
			counter = models.SubmissionCounter{WindowStart: s.now()}
		}
	}

	counter.Count++

	remaining := s.config.SubmissionWindow - s.now().Sub(counter.WindowStart)
	if remaining <= 0 {
		counter = models.SubmissionCounter{Count: 1, WindowStart: s.now()}
		remaining = s.config.SubmissionWindow
	}

	payload, err := json.Marshal(counter)
	if err == nil {
		if err := s.store.Set(ctx, key, payload, remaining); err != nil {
			s.logger.Error("submission counter write failed", slog.Any("error", err))
		}
	}

	return counter.Count > s.config.SubmissionLimit
}
