package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/mbenedict/gatehouse/internal/models"
	"github.com/mbenedict/gatehouse/internal/store"
	pkglogger "github.com/mbenedict/gatehouse/pkg/logger"
)

// LockoutConfig holds configuration for login attempt tracking
type LockoutConfig struct {
	MaxAttempts     int
	LockoutDuration time.Duration
}

// LockoutService tracks failed login attempts per origin and locks an
// origin out once the attempt threshold is reached. All state lives in the
// expiring store; the lockout releases itself on TTL expiry.
type LockoutService struct {
	store  store.Store
	config LockoutConfig
	logger *slog.Logger
	audit  *pkglogger.AuditLogger
	now    func() time.Time
}

// NewLockoutService creates a new LockoutService
func NewLockoutService(st store.Store, config LockoutConfig, logger *slog.Logger, audit *pkglogger.AuditLogger) *LockoutService {
	return &LockoutService{
		store:  st,
		config: config,
		logger: logger,
		audit:  audit,
		now:    time.Now,
	}
}

// RecordFailure increments the failed-attempt counter for the origin,
// resetting its TTL to the full lockout duration on every write. Reaching
// MaxAttempts writes the lockout flag with the same TTL. The username is
// carried into the audit event only; it is never part of the key.
//
// The increment is read-modify-write: concurrent failures from the same
// origin may under-count, but any failure that observes a count at or past
// the threshold still writes the flag, so the lockout always triggers.
func (s *LockoutService) RecordFailure(ctx context.Context, origin, username string) error {
	record, err := s.readAttempts(ctx, origin)
	if err != nil {
		return fmt.Errorf("failed to read attempt record: %w", err)
	}

	record.AttemptCount++
	record.LastFailureAt = s.now()

	if err := s.writeJSON(ctx, store.LoginAttemptsKey(origin), record, s.config.LockoutDuration); err != nil {
		return fmt.Errorf("failed to write attempt record: %w", err)
	}

	s.logger.Info("failed login recorded",
		slog.Int("attempt_count", record.AttemptCount),
		slog.Int("max_attempts", s.config.MaxAttempts))

	if record.AttemptCount < s.config.MaxAttempts {
		return nil
	}

	flag := models.LockoutFlag{
		LockedAt:        s.now(),
		DurationSeconds: int(s.config.LockoutDuration.Seconds()),
	}
	if err := s.writeJSON(ctx, store.LoginLockKey(origin), flag, s.config.LockoutDuration); err != nil {
		return fmt.Errorf("failed to write lockout flag: %w", err)
	}

	s.audit.Security(pkglogger.EventLoginLockout, "origin locked out after repeated login failures", map[string]string{
		"origin":        origin,
		"username":      username,
		"attempt_count": strconv.Itoa(record.AttemptCount),
	})

	return nil
}

// CheckLockout evaluates whether a login attempt from the origin may
// proceed. Empty credentials pass through without evaluation: there is no
// real attempt to gate. The rejection message rounds the remaining lockout
// up to whole minutes.
func (s *LockoutService) CheckLockout(ctx context.Context, origin, username, password string) models.Decision {
	if username == "" || password == "" {
		return models.Allow()
	}

	data, err := s.store.Get(ctx, store.LoginLockKey(origin))
	if errors.Is(err, store.ErrKeyNotFound) {
		return models.Allow()
	}
	if err != nil {
		// Store failures must not lock legitimate users out of the login
		// form; the blacklist and mode gates still fail closed upstream.
		s.logger.Error("failed to read lockout flag", slog.Any("error", err))
		return models.Allow()
	}

	var flag models.LockoutFlag
	if err := json.Unmarshal(data, &flag); err != nil {
		s.logger.Error("malformed lockout flag", slog.Any("error", err))
		return models.Allow()
	}

	remaining := flag.RemainingAt(s.now())
	if remaining <= 0 {
		return models.Allow()
	}

	minutes := int(math.Ceil(remaining.Minutes()))
	message := fmt.Sprintf("Too many failed login attempts. Try again in %d minutes.", minutes)
	if minutes == 1 {
		message = "Too many failed login attempts. Try again in 1 minute."
	}
	return models.RejectWithRetry(models.ReasonLockedOut, message, remaining)
}

// ClearOnSuccess removes the attempt counter and lockout flag for the
// origin. It runs on successful authentication, explicit logout, and after
// server-initiated password changes, so a stale lockout never blocks the
// user's next legitimate login.
func (s *LockoutService) ClearOnSuccess(ctx context.Context, origin string) error {
	if err := s.store.Delete(ctx, store.LoginAttemptsKey(origin)); err != nil {
		return fmt.Errorf("failed to clear attempt record: %w", err)
	}
	if err := s.store.Delete(ctx, store.LoginLockKey(origin)); err != nil {
		return fmt.Errorf("failed to clear lockout flag: %w", err)
	}
	return nil
}

func (s *LockoutService) readAttempts(ctx context.Context, origin string) (models.AttemptRecord, error) {
	var record models.AttemptRecord

	data, err := s.store.Get(ctx, store.LoginAttemptsKey(origin))
	if errors.Is(err, store.ErrKeyNotFound) {
		return record, nil
	}
	if err != nil {
		return record, err
	}

	if err := json.Unmarshal(data, &record); err != nil {
		// A corrupt record restarts the count rather than wedging the tracker.
		s.logger.Error("malformed attempt record, resetting", slog.Any("error", err))
		return models.AttemptRecord{}, nil
	}
	return record, nil
}

func (s *LockoutService) writeJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, key, data, ttl)
}
