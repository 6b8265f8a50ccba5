package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/mbenedict/gatehouse/internal/models"
	"github.com/mbenedict/gatehouse/internal/store"
	pkglogger "github.com/mbenedict/gatehouse/pkg/logger"
)

// Difficulty selects the operator set and operand ranges of a challenge.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"

	// challengeTokenBytes sized so a token cannot be guessed within its TTL.
	challengeTokenBytes = 32
)

// ChallengeConfig holds configuration for challenge generation
type ChallengeConfig struct {
	TokenTTL time.Duration
}

// ChallengeService generates arithmetic challenges bound to single-use
// tokens. The expected answer is stored server-side keyed by the token and
// is never returned to the client.
type ChallengeService struct {
	store  store.Store
	config ChallengeConfig
	logger *slog.Logger
	audit  *pkglogger.AuditLogger
}

// NewChallengeService creates a new ChallengeService
func NewChallengeService(st store.Store, config ChallengeConfig, logger *slog.Logger, audit *pkglogger.AuditLogger) *ChallengeService {
	return &ChallengeService{
		store:  st,
		config: config,
		logger: logger,
		audit:  audit,
	}
}

// Generate produces a short arithmetic question for the difficulty and a
// fresh opaque token the caller must echo back alongside the answer.
func (s *ChallengeService) Generate(ctx context.Context, difficulty Difficulty) (*models.Challenge, error) {
	question, answer, err := buildQuestion(difficulty)
	if err != nil {
		return nil, err
	}

	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate challenge token: %w", err)
	}

	if err := s.store.Set(ctx, store.ChallengeKey(token), []byte(answer), s.config.TokenTTL); err != nil {
		return nil, fmt.Errorf("failed to store challenge answer: %w", err)
	}

	s.audit.Event(pkglogger.EventChallengeIssued, "challenge issued", map[string]string{
		"difficulty": string(difficulty),
	})

	return &models.Challenge{Question: question, Token: token}, nil
}

// Validate checks the answer against the token's stored expectation. A
// missing token (expired or already consumed) fails. On success the token
// is deleted, enforcing single use; on mismatch the token stays alive, so
// retries are bounded only by the TTL.
func (s *ChallengeService) Validate(ctx context.Context, answer, token string) bool {
	if token == "" {
		return false
	}

	expected, err := s.store.Get(ctx, store.ChallengeKey(token))
	if errors.Is(err, store.ErrKeyNotFound) {
		s.audit.Security(pkglogger.EventChallengeBadToken, "challenge token expired or unknown", nil)
		return false
	}
	if err != nil {
		s.logger.Error("failed to read challenge token", slog.Any("error", err))
		return false
	}

	got := strings.TrimSpace(answer)
	if subtle.ConstantTimeCompare([]byte(got), expected) != 1 {
		s.audit.Security(pkglogger.EventChallengeFailed, "challenge answered incorrectly", nil)
		return false
	}

	if err := s.store.Delete(ctx, store.ChallengeKey(token)); err != nil {
		s.logger.Error("failed to consume challenge token", slog.Any("error", err))
		return false
	}

	s.audit.Event(pkglogger.EventChallengePassed, "challenge passed", nil)
	return true
}

// buildQuestion picks operands and an operator for the difficulty:
// easy is addition with single digits, medium adds subtraction over a
// larger range, hard mixes addition and multiplication with larger
// operands.
func buildQuestion(difficulty Difficulty) (question, answer string, err error) {
	switch difficulty {
	case DifficultyMedium:
		a, err := cryptoRandRange(1, 20)
		if err != nil {
			return "", "", err
		}
		b, err := cryptoRandRange(1, 20)
		if err != nil {
			return "", "", err
		}
		sub, err := cryptoRandRange(0, 1)
		if err != nil {
			return "", "", err
		}
		if sub == 1 {
			if b > a {
				a, b = b, a
			}
			return fmt.Sprintf("%d - %d", a, b), strconv.Itoa(a - b), nil
		}
		return fmt.Sprintf("%d + %d", a, b), strconv.Itoa(a + b), nil

	case DifficultyHard:
		mul, err := cryptoRandRange(0, 1)
		if err != nil {
			return "", "", err
		}
		if mul == 1 {
			a, err := cryptoRandRange(2, 15)
			if err != nil {
				return "", "", err
			}
			b, err := cryptoRandRange(2, 15)
			if err != nil {
				return "", "", err
			}
			return fmt.Sprintf("%d * %d", a, b), strconv.Itoa(a * b), nil
		}
		a, err := cryptoRandRange(10, 99)
		if err != nil {
			return "", "", err
		}
		b, err := cryptoRandRange(10, 99)
		if err != nil {
			return "", "", err
		}
		return fmt.Sprintf("%d + %d", a, b), strconv.Itoa(a + b), nil

	default: // easy
		a, err := cryptoRandRange(1, 9)
		if err != nil {
			return "", "", err
		}
		b, err := cryptoRandRange(1, 9)
		if err != nil {
			return "", "", err
		}
		return fmt.Sprintf("%d + %d", a, b), strconv.Itoa(a + b), nil
	}
}

// generateToken returns a hex-encoded token from a cryptographically
// strong random source.
func generateToken() (string, error) {
	bytes := make([]byte, challengeTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// cryptoRandRange returns a secure random number in [min, max]. Uses
// crypto/rand instead of math/rand for security-sensitive operations.
func cryptoRandRange(min, max int) (int, error) {
	if max <= min {
		return min, nil
	}

	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return 0, err
	}

	span := uint64(max - min + 1)
	randomValue := binary.BigEndian.Uint64(randomBytes)
	return min + int(randomValue%span), nil
}
