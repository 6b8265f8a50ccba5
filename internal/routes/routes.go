package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/mbenedict/gatehouse/internal/handlers"
	"github.com/mbenedict/gatehouse/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	formHandler *handlers.FormHandler,
	challengeHandler *handlers.ChallengeHandler,
	adminHandler *handlers.AdminHandler,
	rateLimitConfig middleware.RateLimitConfig,
) {
	// Guarded public entry points; the transport-level IP limit is the
	// outermost defence, ahead of the guard's own counters.
	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(rateLimitConfig))
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Post("/forms/submit", formHandler.Submit)
		r.Get("/challenge", challengeHandler.Issue)
	})

	// Operator overrides. Authentication is the deployment's concern,
	// typically a reverse proxy or service mesh policy in front.
	router.Route("/admin", func(r chi.Router) {
		r.Post("/blacklist", adminHandler.CreateBlacklist)
		r.Get("/blacklist/{origin}", adminHandler.GetBlacklist)
		r.Delete("/blacklist/{origin}", adminHandler.DeleteBlacklist)
		r.Get("/defensive-mode", adminHandler.GetDefensiveMode)
		r.Post("/defensive-mode", adminHandler.ActivateDefensiveMode)
		r.Delete("/defensive-mode", adminHandler.DeactivateDefensiveMode)
		r.Get("/attacks/current", adminHandler.GetAttackStats)
	})
}
