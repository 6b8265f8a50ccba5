package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/mbenedict/gatehouse/internal/services"
	pkghttp "github.com/mbenedict/gatehouse/pkg/http"
)

// FormHandler exposes the generic guarded form entry point.
type FormHandler struct {
	guard         *services.GuardService
	honeypotField string
}

// NewFormHandler creates a new FormHandler
func NewFormHandler(guard *services.GuardService, honeypotField string) *FormHandler {
	return &FormHandler{
		guard:         guard,
		honeypotField: honeypotField,
	}
}

// SubmitRequest represents a generic form submission
type SubmitRequest struct {
	Fields          map[string]string `json:"fields" validate:"required"`
	FormStartedAtMs int64             `json:"form_started_at_ms"`
	ChallengeToken  string            `json:"challenge_token"`
	ChallengeAnswer string            `json:"challenge_answer"`
}

// Submit runs a form submission through the guard pipeline.
func (h *FormHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	// Pull the decoy field out so its value never reaches the content
	// heuristics as ordinary text.
	honeypotValue := req.Fields[h.honeypotField]
	delete(req.Fields, h.honeypotField)

	sub := services.Submission{
		Origin:          pkghttp.ClientIP(r),
		Fields:          req.Fields,
		HoneypotValue:   honeypotValue,
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

	pkghttp.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
