package api

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/voterid/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/voterid/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/voterid/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/voterid/internal/database"
	"github.com/saturnino-fabrica-de-software/voterid/internal/service"
	"github.com/saturnino-fabrica-de-software/voterid/internal/ws"
)

type Dependencies struct {
	StationRepo    middleware.StationRepository
	LastUsedWorker *middleware.LastUsedWorker
	Verifications  *service.VerificationService
	Voters         *service.VoterService
	Comparer       *service.Comparer
	Hub            *ws.Hub
	DB             database.Pinger
	RateLimit      middleware.RateLimiterConfig
}

type Router struct {
	app         *fiber.App
	logger      *slog.Logger
	deps        *Dependencies
	validate    *validator.Validate
	rateLimiter *middleware.RateLimiter
	cancelHub   context.CancelFunc
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "VoterID API",
		BodyLimit:    64 * 1024 * 1024,
	})

	return &Router{
		app:      app,
		logger:   logger,
		deps:     deps,
		validate: validator.New(),
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Swagger documentation (no auth required)
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	// Health check endpoints (no auth required)
	var db database.Pinger
	if r.deps != nil {
		db = r.deps.DB
	}
	healthHandler := handler.NewHealthHandler(db)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	if r.deps == nil {
		return
	}

	v1 := r.app.Group("/v1")

	// Station terminal authentication
	var usage middleware.KeyUsage
	if r.deps.LastUsedWorker != nil {
		usage = r.deps.LastUsedWorker
	}
	v1.Use(middleware.Auth(r.deps.StationRepo, usage))

	// Rate limiting (per station) - after auth so the station is known
	r.rateLimiter = middleware.NewRateLimiter(r.deps.RateLimit)
	v1.Use(r.rateLimiter.Handler())

	if r.deps.Hub != nil {
		hubCtx, hubCancel := context.WithCancel(context.Background())
		r.cancelHub = hubCancel
		go r.deps.Hub.Run(hubCtx)

		v1.Get("/stations/events", ws.RequireUpgrade(), ws.Subscribe(r.deps.Hub))
	}

	verificationHandler := handler.NewVerificationHandler(r.deps.Verifications, r.validate, r.logger)
	session := ws.NewSession(r.deps.Verifications, r.validate, r.logger)

	v1.Post("/verifications", verificationHandler.Verify)
	v1.Get("/verifications/live", ws.RequireUpgrade(), session.Handler())
	v1.Post("/tokens/consume", verificationHandler.ConsumeToken)

	compareHandler := handler.NewCompareHandler(r.deps.Comparer, r.validate)
	v1.Post("/embeddings/compare", compareHandler.Compare)

	if r.deps.Voters != nil {
		voterHandler := handler.NewVoterHandler(r.deps.Voters, r.logger)
		v1.Post("/voters", voterHandler.Enroll)
	}
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	// Stop WebSocket hub
	if r.cancelHub != nil {
		r.cancelHub()
	}

	// Stop rate limiter cleanup goroutine
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}

	return r.app.Shutdown()
}
