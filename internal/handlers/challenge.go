package handlers

import (
	"net/http"

	"github.com/mbenedict/gatehouse/internal/services"
	pkghttp "github.com/mbenedict/gatehouse/pkg/http"
)

// ChallengeHandler issues math challenges for the defensive-mode gate.
type ChallengeHandler struct {
	challenges *services.ChallengeService
}

// NewChallengeHandler creates a new ChallengeHandler
func NewChallengeHandler(challenges *services.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{challenges: challenges}
}

// Issue generates a challenge. The difficulty query parameter accepts
// easy, medium or hard and defaults to easy.
func (h *ChallengeHandler) Issue(w http.ResponseWriter, r *http.Request) {
	difficulty := services.Difficulty(r.URL.Query().Get("difficulty"))
	switch difficulty {
	case services.DifficultyEasy, services.DifficultyMedium, services.DifficultyHard:
	case "":
		difficulty = services.DifficultyEasy
	default:
		pkghttp.WriteBadRequest(w, "difficulty must be one of: easy, medium, hard")
		return
	}

	challenge, err := h.challenges.Generate(r.Context(), difficulty)
	if err != nil {
		pkghttp.WriteInternalError(w, "Could not generate challenge")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, challenge)
}
