package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mbenedict/gatehouse/internal/models"
	"github.com/mbenedict/gatehouse/internal/store"
	pkglogger "github.com/mbenedict/gatehouse/pkg/logger"
)

// AttackMonitorConfig holds configuration for attack detection and the
// defensive mode it triggers.
type AttackMonitorConfig struct {
	AttackThreshold       int
	AttackWindow          time.Duration
	DefensiveModeDuration time.Duration
}

// AttackMonitorService counts site-wide attack signals in per-minute
// buckets and flips a global defensive mode when a burst crosses the
// threshold. Buckets self-expire, so there is no sweep logic and no
// unbounded growth; the trade-off is a coarse window boundary.
type AttackMonitorService struct {
	store  store.Store
	config AttackMonitorConfig
	logger *slog.Logger
	audit  *pkglogger.AuditLogger
	now    func() time.Time
}

// NewAttackMonitorService creates a new AttackMonitorService
func NewAttackMonitorService(st store.Store, config AttackMonitorConfig, logger *slog.Logger, audit *pkglogger.AuditLogger) *AttackMonitorService {
	return &AttackMonitorService{
		store:  st,
		config: config,
		logger: logger,
		audit:  audit,
		now:    time.Now,
	}
}

// RecordAttack increments the current-minute bucket. Reaching the
// threshold activates defensive mode automatically.
func (s *AttackMonitorService) RecordAttack(ctx context.Context, origin string) error {
	key := store.AttackBucketKey(s.now())

	counter, err := s.readCounter(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to read attack counter: %w", err)
	}

	counter.Count++
	data, err := json.Marshal(counter)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, key, data, s.config.AttackWindow); err != nil {
		return fmt.Errorf("failed to write attack counter: %w", err)
	}

	s.logger.Info("attack signal recorded",
		slog.String("origin", origin),
		slog.Int("minute_count", counter.Count),
		slog.Int("threshold", s.config.AttackThreshold))

	if counter.Count >= s.config.AttackThreshold {
		reason := fmt.Sprintf("automatic: %d attacks detected", counter.Count)
		return s.Activate(ctx, reason, s.config.DefensiveModeDuration, "system")
	}
	return nil
}

// Activate writes the singleton defensive-mode entry. Its TTL handles
// auto-deactivation; there is no separate cooldown state.
func (s *AttackMonitorService) Activate(ctx context.Context, reason string, duration time.Duration, activatedBy string) error {
	if duration <= 0 {
		duration = s.config.DefensiveModeDuration
	}

	state := models.DefensiveModeState{
		Reason:          reason,
		ActivatedAt:     s.now(),
		DurationSeconds: int(duration.Seconds()),
		ActivatedBy:     activatedBy,
	}

	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, store.KeyDefensiveMode, data, duration); err != nil {
		return fmt.Errorf("failed to activate defensive mode: %w", err)
	}

	s.audit.Security(pkglogger.EventModeActivated, "defensive mode activated", map[string]string{
		"reason":       reason,
		"duration":     duration.String(),
		"activated_by": activatedBy,
	})
	return nil
}

// Deactivate removes the mode entry, reporting whether it was active.
func (s *AttackMonitorService) Deactivate(ctx context.Context) (bool, error) {
	active, err := s.IsActive(ctx)
	if err != nil {
		return false, err
	}
	if !active {
		return false, nil
	}

	if err := s.store.Delete(ctx, store.KeyDefensiveMode); err != nil {
		return false, fmt.Errorf("failed to deactivate defensive mode: %w", err)
	}

	s.audit.Event(pkglogger.EventModeDeactivated, "defensive mode deactivated", map[string]string{
		"deactivated_by": "operator",
	})
	return true, nil
}

// IsActive reports whether the defensive-mode entry currently exists.
func (s *AttackMonitorService) IsActive(ctx context.Context) (bool, error) {
	_, err := s.store.Get(ctx, store.KeyDefensiveMode)
	if errors.Is(err, store.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Mode returns the current defensive-mode state, or models.ErrNotFound
// when the mode is inactive.
func (s *AttackMonitorService) Mode(ctx context.Context) (*models.DefensiveModeState, error) {
	data, err := s.store.Get(ctx, store.KeyDefensiveMode)
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var state models.DefensiveModeState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("malformed defensive mode state: %w", err)
	}
	return &state, nil
}

// CurrentAttackCount returns the count in the current minute bucket only.
// It is a one-minute attack-rate snapshot, not a historical total.
func (s *AttackMonitorService) CurrentAttackCount(ctx context.Context) (int, error) {
	counter, err := s.readCounter(ctx, store.AttackBucketKey(s.now()))
	if err != nil {
		return 0, err
	}
	return counter.Count, nil
}

func (s *AttackMonitorService) readCounter(ctx context.Context, key string) (models.AttackCounter, error) {
	var counter models.AttackCounter

	data, err := s.store.Get(ctx, key)
	if errors.Is(err, store.ErrKeyNotFound) {
		return counter, nil
	}
	if err != nil {
		return counter, err
	}

	if err := json.Unmarshal(data, &counter); err != nil {
		s.logger.Error("malformed attack counter, resetting", slog.Any("error", err))
		return models.AttackCounter{}, nil
	}
	return counter, nil
}
