package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/saturnino-fabrica-de-software/voterid/internal/api"
	"github.com/saturnino-fabrica-de-software/voterid/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/voterid/internal/audit"
	"github.com/saturnino-fabrica-de-software/voterid/internal/config"
	"github.com/saturnino-fabrica-de-software/voterid/internal/database"
	"github.com/saturnino-fabrica-de-software/voterid/internal/face"
	"github.com/saturnino-fabrica-de-software/voterid/internal/ratelimit"
	"github.com/saturnino-fabrica-de-software/voterid/internal/repository"
	"github.com/saturnino-fabrica-de-software/voterid/internal/service"
	"github.com/saturnino-fabrica-de-software/voterid/internal/token"
	"github.com/saturnino-fabrica-de-software/voterid/internal/verification"
	"github.com/saturnino-fabrica-de-software/voterid/internal/webhook"
	"github.com/saturnino-fabrica-de-software/voterid/internal/ws"
)

const (
	tokenIssuer            = "voterid"
	attemptCleanupInterval = 10 * time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting VoterID API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("provider", cfg.ProviderType),
		slog.String("liveness_provider", cfg.LivenessProviderType()),
	)

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPgxPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	defer pool.Close()

	providers, err := face.NewProviders(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create face providers: %w", err)
	}

	// Repositories
	stations := repository.NewStationRepository(pool)
	apiKeys := repository.NewAPIKeyRepository(pool)
	voters := repository.NewVoterRepository(pool)
	records := repository.NewVerificationRepository(pool)

	limiter, closeLimiter, err := newAttemptLimiter(ctx, cfg, pool, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeLimiter.Close() }()

	issuer := token.NewIssuer(cfg.TokenSecret, tokenIssuer, cfg.Verification.TokenTTL)
	verifyConfig := verification.NewConfig(cfg.Verification)
	if err := verifyConfig.Validate(); err != nil {
		return fmt.Errorf("verification config: %w", err)
	}
	orchestrator := verification.NewOrchestrator(
		verifyConfig,
		providers.Landmarks,
		providers.Descriptors,
		issuer,
		records,
		logger,
	)

	var auditor audit.Logger = audit.NewSlogLogger(logger)
	if cfg.AuditWebhookURL != "" {
		forwarder := webhook.NewForwarder(
			webhook.DefaultConfig(cfg.AuditWebhookURL, cfg.AuditWebhookSecret),
			auditor,
			logger,
		)
		go forwarder.Run(ctx)
		auditor = forwarder
	}
	hub := ws.NewHub()

	verifications := service.NewVerificationService(voters, records, issuer, orchestrator, limiter, auditor, logger).
		WithNotifier(hub)

	lastUsed := middleware.NewLastUsedWorker(apiKeys, logger, middleware.DefaultLastUsedWorkerConfig())
	lastUsed.Start()
	defer lastUsed.Stop()

	// Setup router
	router := api.NewRouter(logger, &api.Dependencies{
		StationRepo:    stations,
		LastUsedWorker: lastUsed,
		Verifications:  verifications,
		Voters:         service.NewVoterService(voters, providers.Descriptors, auditor, logger),
		Comparer:       service.NewComparer(cfg.Verification.CompareThreshold),
		Hub:            hub,
		DB:             pool,
		RateLimit: middleware.RateLimiterConfig{
			Rate:  cfg.HTTPRateLimit,
			Burst: cfg.HTTPRateBurst,
		},
	})
	router.Setup()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	done := make(chan error, 1)
	go func() { done <- router.Shutdown() }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out")
	}

	logger.Info("server stopped")
	return nil
}

// newAttemptLimiter picks Redis when REDIS_URL is set, Postgres otherwise
func newAttemptLimiter(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) (service.AttemptLimiter, io.Closer, error) {
	v := cfg.Verification

	if cfg.RedisURL != "" {
		client, err := ratelimit.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create redis client: %w", err)
		}
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		logger.Info("attempt limiter", slog.String("backend", "redis"), slog.Int("max_attempts", v.MaxAttempts))
		return ratelimit.NewRedisLimiter(client, v.MaxAttempts, v.AttemptWindow), client, nil
	}

	limiter := ratelimit.NewPostgresLimiter(pool, v.MaxAttempts, v.AttemptWindow)
	go cleanupAttempts(ctx, limiter, logger)

	logger.Info("attempt limiter", slog.String("backend", "postgres"), slog.Int("max_attempts", v.MaxAttempts))
	return limiter, closerFunc(func() error { return nil }), nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func cleanupAttempts(ctx context.Context, limiter *ratelimit.PostgresLimiter, logger *slog.Logger) {
	ticker := time.NewTicker(attemptCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := limiter.CleanupExpired(ctx)
			if err != nil {
				logger.Warn("attempt counter cleanup failed", slog.Any("error", err))
				continue
			}
			if n > 0 {
				logger.Debug("attempt counters removed", slog.Int64("count", n))
			}
		}
	}
}
