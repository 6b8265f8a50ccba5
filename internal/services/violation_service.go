package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mbenedict/gatehouse/internal/models"
	"github.com/mbenedict/gatehouse/internal/store"
	pkglogger "github.com/mbenedict/gatehouse/pkg/logger"
)

// ViolationConfig holds configuration for the violation ledger and
// auto-blacklist. Window and penalty are independent on purpose: a short
// detection window with a long penalty is the intended shape.
type ViolationConfig struct {
	ViolationWindow    time.Duration
	BlacklistThreshold int
	BlacklistDuration  time.Duration
}

// ViolationService accumulates security violations per origin and promotes
// an origin to a time-boxed blacklist once the threshold is crossed within
// the violation window.
type ViolationService struct {
	store  store.Store
	config ViolationConfig
	logger *slog.Logger
	audit  *pkglogger.AuditLogger
	now    func() time.Time
}

// NewViolationService creates a new ViolationService
func NewViolationService(st store.Store, config ViolationConfig, logger *slog.Logger, audit *pkglogger.AuditLogger) *ViolationService {
	return &ViolationService{
		store:  st,
		config: config,
		logger: logger,
		audit:  audit,
		now:    time.Now,
	}
}

// Record appends a violation to the origin's ledger. The whole list is
// rewritten with a fresh TTL, so it expires atomically when the window
// elapses. Crossing the threshold auto-blacklists the origin.
func (s *ViolationService) Record(ctx context.Context, origin, violationType, userAgent, requestPath string) error {
	violations, err := s.readViolations(ctx, origin)
	if err != nil {
		return fmt.Errorf("failed to read violation list: %w", err)
	}

	violations = append(violations, models.Violation{
		ID:          uuid.NewString(),
		Type:        violationType,
		Timestamp:   s.now(),
		UserAgent:   userAgent,
		RequestPath: requestPath,
	})

	data, err := json.Marshal(violations)
	if err != nil {
		return fmt.Errorf("failed to marshal violation list: %w", err)
	}
	if err := s.store.Set(ctx, store.ViolationsKey(origin), data, s.config.ViolationWindow); err != nil {
		return fmt.Errorf("failed to write violation list: %w", err)
	}

	s.audit.Security(pkglogger.EventViolationRecorded, "security violation recorded", map[string]string{
		"origin":         origin,
		"violation_type": violationType,
		"total":          strconv.Itoa(len(violations)),
	})

	if len(violations) >= s.config.BlacklistThreshold {
		return s.autoBlacklist(ctx, origin, violations)
	}
	return nil
}

// autoBlacklist writes a blacklist entry summarizing the accumulated
// violations, with Auto=true and the ledger snapshot attached.
func (s *ViolationService) autoBlacklist(ctx context.Context, origin string, violations []models.Violation) error {
	reason := summarizeViolations(violations, s.config.ViolationWindow)

	entry := models.BlacklistEntry{
		ID:              uuid.NewString(),
		Origin:          origin,
		Reason:          reason,
		CreatedAt:       s.now(),
		DurationSeconds: int(s.config.BlacklistDuration.Seconds()),
		Auto:            true,
		Violations:      violations,
	}

	if err := s.writeEntry(ctx, entry); err != nil {
		return fmt.Errorf("failed to write auto-blacklist entry: %w", err)
	}

	s.audit.Security(pkglogger.EventBlacklistAuto, "origin auto-blacklisted", map[string]string{
		"origin":   origin,
		"reason":   reason,
		"duration": s.config.BlacklistDuration.String(),
	})
	return nil
}

// IsBlacklisted reports whether the origin currently has a live blacklist
// entry. Presence is the only signal; expiry removes it.
func (s *ViolationService) IsBlacklisted(ctx context.Context, origin string) (bool, error) {
	_, err := s.store.Get(ctx, store.BlacklistKey(origin))
	if errors.Is(err, store.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetBlacklistEntry returns the live blacklist entry for the origin, or
// models.ErrNotFound when there is none.
func (s *ViolationService) GetBlacklistEntry(ctx context.Context, origin string) (*models.BlacklistEntry, error) {
	data, err := s.store.Get(ctx, store.BlacklistKey(origin))
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var entry models.BlacklistEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("malformed blacklist entry: %w", err)
	}
	return &entry, nil
}

// ManualBlacklist writes an operator-created blacklist entry.
func (s *ViolationService) ManualBlacklist(ctx context.Context, origin, reason string, duration time.Duration) error {
	entry := models.BlacklistEntry{
		ID:              uuid.NewString(),
		Origin:          origin,
		Reason:          reason,
		CreatedAt:       s.now(),
		DurationSeconds: int(duration.Seconds()),
		Auto:            false,
	}

	if err := s.writeEntry(ctx, entry); err != nil {
		return fmt.Errorf("failed to write blacklist entry: %w", err)
	}

	s.audit.Event(pkglogger.EventBlacklistManual, "origin blacklisted by operator", map[string]string{
		"origin":   origin,
		"reason":   reason,
		"duration": duration.String(),
	})
	return nil
}

// RemoveFromBlacklist deletes the origin's blacklist entry, reporting
// whether one existed.
func (s *ViolationService) RemoveFromBlacklist(ctx context.Context, origin string) (bool, error) {
	existed, err := s.IsBlacklisted(ctx, origin)
	if err != nil {
		return false, err
	}
	if !existed {
		return false, nil
	}

	if err := s.store.Delete(ctx, store.BlacklistKey(origin)); err != nil {
		return false, fmt.Errorf("failed to remove blacklist entry: %w", err)
	}

	s.audit.Event(pkglogger.EventBlacklistRemoved, "origin removed from blacklist", map[string]string{
		"origin": origin,
	})
	return true, nil
}

func (s *ViolationService) writeEntry(ctx context.Context, entry models.BlacklistEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	ttl := time.Duration(entry.DurationSeconds) * time.Second
	return s.store.Set(ctx, store.BlacklistKey(entry.Origin), data, ttl)
}

func (s *ViolationService) readViolations(ctx context.Context, origin string) ([]models.Violation, error) {
	data, err := s.store.Get(ctx, store.ViolationsKey(origin))
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var violations []models.Violation
	if err := json.Unmarshal(data, &violations); err != nil {
		s.logger.Error("malformed violation list, resetting", slog.Any("error", err))
		return nil, nil
	}
	return violations, nil
}

// summarizeViolations builds the human-readable auto-blacklist reason from
// the distinct violation types and total count.
func summarizeViolations(violations []models.Violation, window time.Duration) string {
	distinct := make(map[string]bool)
	for _, v := range violations {
		distinct[v.Type] = true
	}
	types := make([]string, 0, len(distinct))
	for t := range distinct {
		types = append(types, t)
	}
	sort.Strings(types)

	return fmt.Sprintf("automatic: %d violations within %s (%s)",
		len(violations), window, strings.Join(types, ", "))
}
