package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/mbenedict/gatehouse/internal/auth"
	"github.com/mbenedict/gatehouse/internal/services"
	pkghttp "github.com/mbenedict/gatehouse/pkg/http"
	pkglogger "github.com/mbenedict/gatehouse/pkg/logger"
)

// AuthHandler exposes the reference login entry point wired into the
// submission guard and the login attempt tracker.
type AuthHandler struct {
	guard    *services.GuardService
	lockout  *services.LockoutService
	verifier auth.CredentialVerifier
	timing   *auth.TimingDelay
	audit    *pkglogger.AuditLogger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(
	guard *services.GuardService,
	lockout *services.LockoutService,
	verifier auth.CredentialVerifier,
	timing *auth.TimingDelay,
	audit *pkglogger.AuditLogger,
) *AuthHandler {
	return &AuthHandler{
		guard:    guard,
		lockout:  lockout,
		verifier: verifier,
		timing:   timing,
		audit:    audit,
	}
}

// LoginRequest represents the request body for login. Website is the decoy
// field: it is rendered hidden client-side and stays empty for humans.
type LoginRequest struct {
	Username        string `json:"username" validate:"required"`
	Password        string `json:"password" validate:"required"`
	Website         string `json:"website"`
	FormStartedAtMs int64  `json:"form_started_at_ms"`
	ChallengeToken  string `json:"challenge_token"`
	ChallengeAnswer string `json:"challenge_answer"`
}

// Login handles a login submission: guard pipeline first, then lockout
// evaluation, then credential verification. Failed credentials feed the
// tracker; success clears the origin's lockout state.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	origin := pkghttp.ClientIP(r)

	sub := services.Submission{
		Origin: origin,
		// The password never enters the content heuristics.
		Fields:          map[string]string{"username": req.Username},
		HoneypotValue:   req.Website,
		StartedAt:       startedAtFromMs(req.FormStartedAtMs),
		ChallengeToken:  req.ChallengeToken,
		ChallengeAnswer: req.ChallengeAnswer,
		UserAgent:       r.UserAgent(),
		Path:            r.URL.Path,
	}

	if decision := h.guard.CheckSubmission(r.Context(), sub); !decision.Allowed {
		writeRejection(w, decision)
		return
	}

	if decision := h.lockout.CheckLockout(r.Context(), origin, req.Username, req.Password); !decision.Allowed {
		writeRejection(w, decision)
		return
	}

	if !h.verifier.Verify(req.Username, req.Password) {
		if err := h.lockout.RecordFailure(r.Context(), origin, req.Username); err != nil {
			// Bookkeeping failure must not change the caller-facing outcome.
			h.audit.Security(pkglogger.EventLoginFailure, "failed to record login failure", map[string]string{
				"origin": origin,
				"error":  err.Error(),
			})
		}
		h.audit.Security(pkglogger.EventLoginFailure, "login failed", map[string]string{
			"origin":   origin,
			"username": req.Username,
		})
		h.timing.Wait(false)
		pkghttp.WriteUnauthorized(w, "Invalid username or password.")
		return
	}

	if err := h.lockout.ClearOnSuccess(r.Context(), origin); err != nil {
		h.audit.Security(pkglogger.EventLoginSuccess, "failed to clear lockout state", map[string]string{
			"origin": origin,
			"error":  err.Error(),
		})
	}

	h.audit.Event(pkglogger.EventLoginSuccess, "login succeeded", map[string]string{
		"origin":   origin,
		"username": req.Username,
	})
	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Logout clears the origin's lockout bookkeeping.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	origin := pkghttp.ClientIP(r)
	if err := h.lockout.ClearOnSuccess(r.Context(), origin); err != nil {
		pkghttp.WriteInternalError(w, "Logout failed")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func startedAtFromMs(ms int64) *time.Time {
	if ms <= 0 {
		return nil
	}
	t := time.UnixMilli(ms)
	return &t
}
