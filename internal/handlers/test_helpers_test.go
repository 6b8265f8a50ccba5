package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mbenedict/gatehouse/internal/auth"
	"github.com/mbenedict/gatehouse/internal/handlers"
	"github.com/mbenedict/gatehouse/internal/middleware"
	"github.com/mbenedict/gatehouse/internal/routes"
	"github.com/mbenedict/gatehouse/internal/services"
	"github.com/mbenedict/gatehouse/internal/store"
	pkglogger "github.com/mbenedict/gatehouse/pkg/logger"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testUser     = "alice"
	testPassword = "hunter2-correct"
)

type testServer struct {
	router     chi.Router
	store      *store.MemoryStore
	violations *services.ViolationService
	monitor    *services.AttackMonitorService
	challenges *services.ChallengeService
}

// newTestServer assembles the full route tree over a memory store, mirroring
// the wiring in cmd/api but with small limits and a cheap bcrypt hash so
// tests stay fast.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	audit := pkglogger.NewAuditLogger(logger)
	st := store.NewMemoryStore()

	lockout := services.NewLockoutService(st, services.LockoutConfig{
		MaxAttempts:     5,
		LockoutDuration: 15 * time.Minute,
	}, logger, audit)

	violations := services.NewViolationService(st, services.ViolationConfig{
		ViolationWindow:    10 * time.Minute,
		BlacklistThreshold: 5,
		BlacklistDuration:  time.Hour,
	}, logger, audit)

	monitor := services.NewAttackMonitorService(st, services.AttackMonitorConfig{
		AttackThreshold:       20,
		AttackWindow:          5 * time.Minute,
		DefensiveModeDuration: 30 * time.Minute,
	}, logger, audit)

	challenges := services.NewChallengeService(st, services.ChallengeConfig{
		TokenTTL: 10 * time.Minute,
	}, logger, audit)

	guard := services.NewGuardService(st, violations, monitor, challenges,
		services.NewPatternSpamDetector(),
		services.GuardConfig{
			SubmissionLimit:  100,
			SubmissionWindow: time.Minute,
			MinFillDuration:  2 * time.Second,
		}, logger, audit)

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	verifier := auth.NewStaticCredentialVerifier(map[string]string{testUser: string(hash)})
	timing := auth.NewTimingDelay(auth.TimingConfig{})

	router := chi.NewRouter()
	routes.RegisterRoutes(router,
		handlers.NewAuthHandler(guard, lockout, verifier, timing, audit),
		handlers.NewFormHandler(guard, "website"),
		handlers.NewChallengeHandler(challenges),
		handlers.NewAdminHandler(violations, monitor),
		middleware.RateLimitConfig{RequestsPerMinute: 10000},
	)

	return &testServer{
		router:     router,
		store:      st,
		violations: violations,
		monitor:    monitor,
		challenges: challenges,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}

// solveEasyQuestion answers an easy challenge, which is always an addition.
func solveEasyQuestion(t *testing.T, question string) string {
	t.Helper()

	var a, b int
	_, err := fmt.Sscanf(question, "%d + %d", &a, &b)
	require.NoError(t, err)
	return strconv.Itoa(a + b)
}
