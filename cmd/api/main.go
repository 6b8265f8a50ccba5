package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mbenedict/gatehouse/internal/auth"
	"github.com/mbenedict/gatehouse/internal/background"
	"github.com/mbenedict/gatehouse/internal/config"
	"github.com/mbenedict/gatehouse/internal/database"
	"github.com/mbenedict/gatehouse/internal/handlers"
	middlewareCustom "github.com/mbenedict/gatehouse/internal/middleware"
	"github.com/mbenedict/gatehouse/internal/routes"
	"github.com/mbenedict/gatehouse/internal/services"
	"github.com/mbenedict/gatehouse/internal/store"
	pkglogger "github.com/mbenedict/gatehouse/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("store_backend", cfg.Server.StoreBackend))

	// Initialize the expiring store
	var (
		st      store.Store
		db      *database.DB
		sweeper *background.Sweeper
	)
	switch cfg.Server.StoreBackend {
	case "postgres":
		db, err = database.NewConnection(&cfg.Database, logger)
		if err != nil {
			logger.Error("failed to connect to database", slog.Any("error", err))
			os.Exit(1)
		}
		defer db.Close()

		pgStore := store.NewPostgresStore(db)
		st = pgStore
		sweeper = background.NewSweeper(pgStore, logger, cfg.Security.SweepInterval)
	default:
		logger.Warn("using in-memory store; state is not shared between instances")
		st = store.NewMemoryStore()
	}

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Engine services
	lockoutService := services.NewLockoutService(st, services.LockoutConfig{
		MaxAttempts:     cfg.Security.MaxLoginAttempts,
		LockoutDuration: cfg.Security.LockoutDuration,
	}, logger, auditLogger)

	violationService := services.NewViolationService(st, services.ViolationConfig{
		ViolationWindow:    cfg.Security.ViolationWindow,
		BlacklistThreshold: cfg.Security.BlacklistThreshold,
		BlacklistDuration:  cfg.Security.BlacklistDuration,
	}, logger, auditLogger)

	attackMonitor := services.NewAttackMonitorService(st, services.AttackMonitorConfig{
		AttackThreshold:       cfg.Security.AttackThreshold,
		AttackWindow:          cfg.Security.AttackWindow,
		DefensiveModeDuration: cfg.Security.DefensiveModeDuration,
	}, logger, auditLogger)

	challengeService := services.NewChallengeService(st, services.ChallengeConfig{
		TokenTTL: cfg.Security.ChallengeTTL,
	}, logger, auditLogger)

	guardService := services.NewGuardService(
		st,
		violationService,
		attackMonitor,
		challengeService,
		services.NewPatternSpamDetector(),
		services.GuardConfig{
			SubmissionLimit:  cfg.Security.SubmissionLimit,
			SubmissionWindow: cfg.Security.SubmissionWindow,
			MinFillDuration:  cfg.Security.MinFillDuration,
		},
		logger,
		auditLogger,
	)

	// Reference credential verifier for the login entry point
	verifier := auth.NewStaticCredentialVerifier(cfg.Security.DemoUsers)
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 200, RandomDelayMs: 100})

	// Handlers
	authHandler := handlers.NewAuthHandler(guardService, lockoutService, verifier, timingDelay, auditLogger)
	formHandler := handlers.NewFormHandler(guardService, cfg.Security.HoneypotField)
	challengeHandler := handlers.NewChallengeHandler(challengeService)
	adminHandler := handlers.NewAdminHandler(violationService, attackMonitor)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, authHandler, formHandler, challengeHandler, adminHandler,
		middlewareCustom.RateLimitConfig{RequestsPerMinute: cfg.Security.RequestsPerMinute})

	// Health check with store backend
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := db.HealthCheck(ctx); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unhealthy","store":"down"}`))
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","store":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start sweeper for backends that need it
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	if sweeper != nil {
		go sweeper.Start(sweepCtx)
	}

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	sweepCancel()
	if sweeper != nil {
		sweeper.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
