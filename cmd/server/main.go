package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/analytics-middletier/internal/cache"
	"github.com/stemsi/analytics-middletier/internal/config"
	"github.com/stemsi/analytics-middletier/internal/database"
	"github.com/stemsi/analytics-middletier/internal/handler"
	"github.com/stemsi/analytics-middletier/internal/logger"
	"github.com/stemsi/analytics-middletier/internal/queue"
	"github.com/stemsi/analytics-middletier/internal/repository"
	"github.com/stemsi/analytics-middletier/internal/router"
	"github.com/stemsi/analytics-middletier/internal/service"
	"github.com/stemsi/analytics-middletier/internal/validator"
	"github.com/stemsi/analytics-middletier/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("schema", cfg.AnalyticsSchema).
		Msg("Starting Analytics Middle Tier API")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	orgRepo := repository.NewEducationOrganizationRepository(pool, cfg.AnalyticsSchema)
	authRepo := repository.NewUserAuthorizationRepository(pool, cfg.AnalyticsSchema)
	clientRepo := repository.NewAPIClientRepository(pool)

	viewCache := cache.NewRedisCache(rdb)
	jobs := queue.NewRedisQueue(rdb, config.WorkerKey.VerificationQueue)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, clientRepo)
	analyticsService := service.NewAnalyticsService(orgRepo, authRepo, viewCache, cfg.CacheTTL, log)
	stagingService := service.NewStagingService(repository.NewTransactor(pool), orgRepo, authRepo, analyticsService, log)
	verificationService := service.NewVerificationService(orgRepo, authRepo, jobs, viewCache, cfg.ReportTTL, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Health: handler.NewHealthHandler(map[string]handler.HealthCheck{
			"postgres": pool.Ping,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}, log),
		Auth:                  handler.NewAuthHandler(authService),
		EducationOrganization: handler.NewEducationOrganizationHandler(analyticsService),
		UserAuthorization:     handler.NewUserAuthorizationHandler(analyticsService),
		Fixture:               handler.NewFixtureHandler(stagingService),
		Verification:          handler.NewVerificationHandler(verificationService),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	verificationWorker := worker.NewVerificationWorker(jobs, verificationService, log)
	workers.Add(1)
	go func() {
		defer workers.Done()
		verificationWorker.Start(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the verification worker; a job in flight finishes first.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
