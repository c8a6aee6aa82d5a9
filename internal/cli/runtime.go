package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saturnino-fabrica-de-software/voterid/internal/audit"
	"github.com/saturnino-fabrica-de-software/voterid/internal/config"
	"github.com/saturnino-fabrica-de-software/voterid/internal/database"
	"github.com/saturnino-fabrica-de-software/voterid/internal/face"
	"github.com/saturnino-fabrica-de-software/voterid/internal/ratelimit"
	"github.com/saturnino-fabrica-de-software/voterid/internal/repository"
	"github.com/saturnino-fabrica-de-software/voterid/internal/service"
	"github.com/saturnino-fabrica-de-software/voterid/internal/token"
	"github.com/saturnino-fabrica-de-software/voterid/internal/verification"
)

const tokenIssuer = "voterid"

// runtime is the service graph a database-backed subcommand needs
type runtime struct {
	cfg    *config.Config
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func (o *rootOptions) open(ctx context.Context, logger *slog.Logger) (*runtime, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	pool, err := database.NewPgxPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &runtime{cfg: cfg, pool: pool, logger: logger}, nil
}

func (r *runtime) Close() {
	r.pool.Close()
}

func (r *runtime) issuer() *token.Issuer {
	return token.NewIssuer(r.cfg.TokenSecret, tokenIssuer, r.cfg.Verification.TokenTTL)
}

// verificationService mirrors the API wiring without the station notifier
func (r *runtime) verificationService(ctx context.Context) (*service.VerificationService, error) {
	providers, err := face.NewProviders(ctx, r.cfg)
	if err != nil {
		return nil, err
	}

	voters := repository.NewVoterRepository(r.pool)
	records := repository.NewVerificationRepository(r.pool)
	issuer := r.issuer()

	orchestrator := verification.NewOrchestrator(
		verification.NewConfig(r.cfg.Verification),
		providers.Landmarks,
		providers.Descriptors,
		issuer,
		records,
		r.logger,
	)

	v := r.cfg.Verification
	return service.NewVerificationService(
		voters,
		records,
		issuer,
		orchestrator,
		ratelimit.NewPostgresLimiter(r.pool, v.MaxAttempts, v.AttemptWindow),
		audit.NewSlogLogger(r.logger),
		r.logger,
	), nil
}

func (r *runtime) voterService(ctx context.Context) (*service.VoterService, error) {
	providers, err := face.NewProviders(ctx, r.cfg)
	if err != nil {
		return nil, err
	}
	return service.NewVoterService(
		repository.NewVoterRepository(r.pool),
		providers.Descriptors,
		audit.NewSlogLogger(r.logger),
		r.logger,
	), nil
}

// tokenService only redeems passes, so it skips the face providers
func (r *runtime) tokenService() *service.VerificationService {
	return service.NewVerificationService(
		repository.NewVoterRepository(r.pool),
		repository.NewVerificationRepository(r.pool),
		r.issuer(),
		nil,
		nil,
		audit.NewSlogLogger(r.logger),
		r.logger,
	)
}
