package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mbenedict/gatehouse/internal/models"
	"github.com/mbenedict/gatehouse/internal/services"
	pkghttp "github.com/mbenedict/gatehouse/pkg/http"
)

// AdminHandler exposes operator overrides: manual blacklist management and
// defensive mode controls. Authentication for these routes belongs to the
// surrounding deployment.
type AdminHandler struct {
	violations *services.ViolationService
	monitor    *services.AttackMonitorService
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(violations *services.ViolationService, monitor *services.AttackMonitorService) *AdminHandler {
	return &AdminHandler{
		violations: violations,
		monitor:    monitor,
	}
}

// BlacklistRequest represents a manual blacklist request
type BlacklistRequest struct {
	Origin          string `json:"origin" validate:"required,ip"`
	Reason          string `json:"reason" validate:"required"`
	DurationSeconds int    `json:"duration_seconds" validate:"required,min=1"`
}

// CreateBlacklist adds a manual blacklist entry for an origin.
func (h *AdminHandler) CreateBlacklist(w http.ResponseWriter, r *http.Request) {
	var req BlacklistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	duration := time.Duration(req.DurationSeconds) * time.Second
	if err := h.violations.ManualBlacklist(r.Context(), req.Origin, req.Reason, duration); err != nil {
		pkghttp.WriteInternalError(w, "Could not blacklist origin")
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, map[string]string{"status": "blacklisted"})
}

// GetBlacklist returns the live blacklist entry for an origin.
func (h *AdminHandler) GetBlacklist(w http.ResponseWriter, r *http.Request) {
	origin := chi.URLParam(r, "origin")

	entry, err := h.violations.GetBlacklistEntry(r.Context(), origin)
	if errors.Is(err, models.ErrNotFound) {
		pkghttp.WriteNotFound(w, "Origin is not blacklisted")
		return
	}
	if err != nil {
		pkghttp.WriteInternalError(w, "Could not read blacklist entry")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, entry)
}

// DeleteBlacklist removes an origin from the blacklist.
func (h *AdminHandler) DeleteBlacklist(w http.ResponseWriter, r *http.Request) {
	origin := chi.URLParam(r, "origin")

	removed, err := h.violations.RemoveFromBlacklist(r.Context(), origin)
	if err != nil {
		pkghttp.WriteInternalError(w, "Could not remove blacklist entry")
		return
	}
	if !removed {
		pkghttp.WriteNotFound(w, "Origin is not blacklisted")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// DefensiveModeRequest represents a manual defensive mode activation
type DefensiveModeRequest struct {
	Reason          string `json:"reason" validate:"required"`
	DurationSeconds int    `json:"duration_seconds" validate:"min=0"`
}

// ModeStatusResponse reports defensive mode state
type ModeStatusResponse struct {
	Active bool                       `json:"active"`
	State  *models.DefensiveModeState `json:"state,omitempty"`
}

// GetDefensiveMode reports whether defensive mode is active and its state.
func (h *AdminHandler) GetDefensiveMode(w http.ResponseWriter, r *http.Request) {
	state, err := h.monitor.Mode(r.Context())
	if errors.Is(err, models.ErrNotFound) {
		pkghttp.WriteJSON(w, http.StatusOK, ModeStatusResponse{Active: false})
		return
	}
	if err != nil {
		pkghttp.WriteInternalError(w, "Could not read defensive mode state")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, ModeStatusResponse{Active: true, State: state})
}

// ActivateDefensiveMode manually activates defensive mode.
func (h *AdminHandler) ActivateDefensiveMode(w http.ResponseWriter, r *http.Request) {
	var req DefensiveModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	duration := time.Duration(req.DurationSeconds) * time.Second
	if err := h.monitor.Activate(r.Context(), req.Reason, duration, "operator"); err != nil {
		pkghttp.WriteInternalError(w, "Could not activate defensive mode")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "activated"})
}

// DeactivateDefensiveMode manually deactivates defensive mode.
func (h *AdminHandler) DeactivateDefensiveMode(w http.ResponseWriter, r *http.Request) {
	deactivated, err := h.monitor.Deactivate(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Could not deactivate defensive mode")
		return
	}
	if !deactivated {
		pkghttp.WriteNotFound(w, "Defensive mode is not active")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

// AttackStatsResponse reports the current-minute attack rate snapshot
type AttackStatsResponse struct {
	CurrentMinuteCount  int  `json:"current_minute_count"`
	DefensiveModeActive bool `json:"defensive_mode_active"`
}

// GetAttackStats returns the current-minute attack count and mode status.
func (h *AdminHandler) GetAttackStats(w http.ResponseWriter, r *http.Request) {
	count, err := h.monitor.CurrentAttackCount(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Could not read attack counters")
		return
	}
	active, err := h.monitor.IsActive(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Could not read defensive mode state")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, AttackStatsResponse{
		CurrentMinuteCount:  count,
		DefensiveModeActive: active,
	})
}
