package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/voteguard/evote-sessions/internal/infra/config"
	"github.com/voteguard/evote-sessions/internal/infra/security"
	"github.com/voteguard/evote-sessions/internal/infra/telemetry"
	"github.com/voteguard/evote-sessions/internal/transport/http/handlers"
	"github.com/voteguard/evote-sessions/internal/transport/http/middleware"
	"github.com/voteguard/evote-sessions/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth     *usecase.AuthService
	Voting   *usecase.VotingService
	Receipts *usecase.ReceiptService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	Tokens      *security.SessionTokenIssuer
	Metrics     *telemetry.Metrics
	HTTPMetrics *middleware.HTTPMetrics
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))

	if deps.Config.App.Env != "production" {
		r.Use(middleware.CORS([]string{"*"}))
	}

	if deps.HTTPMetrics != nil {
		r.Use(deps.HTTPMetrics.Handler())
	}

	capabilityMiddleware := middleware.RequireCapability(deps.Tokens)

	healthOptions := make([]handlers.HealthOption, 0, 2)

	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}

	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		var sessionTelemetry handlers.SessionTelemetry
		var votingTelemetry handlers.VotingTelemetry
		if deps.Metrics != nil {
			sessionTelemetry = deps.Metrics
			votingTelemetry = deps.Metrics
		}

		sessionHandler := handlers.NewSessionHandler(deps.Services.Auth, sessionTelemetry)
		sessionGroup := api.Group("/session")

		startMiddlewares := buildRateLimitMiddlewares(deps, "session-start", deps.Config.RateLimit.SessionMaxAttempts)
		otpMiddlewares := buildRateLimitMiddlewares(deps, "otp-issue", deps.Config.RateLimit.OTPMaxAttempts)
		sessionHandler.RegisterRoutes(sessionGroup, startMiddlewares, otpMiddlewares)

		votingHandler := handlers.NewVotingHandler(deps.Services.Voting, votingTelemetry)
		votingGroup := api.Group("/voting")
		votingGroup.Use(capabilityMiddleware)
		votingHandler.RegisterRoutes(votingGroup)

		receiptHandler := handlers.NewReceiptHandler(deps.Services.Receipts)
		receiptGroup := api.Group("/receipt")
		receiptGroup.Use(capabilityMiddleware)
		receiptHandler.RegisterRoutes(receiptGroup)
	}

	return r
}

// buildRateLimitMiddlewares guards an endpoint with a per-IP sliding
// window so a kiosk cannot be used to enumerate voter ids or farm codes.
func buildRateLimitMiddlewares(deps Dependencies, name string, limit int) []gin.HandlerFunc {
	if deps.RateLimiter == nil {
		return nil
	}

	cfg := deps.Config.RateLimit
	if limit <= 0 || cfg.WindowDuration <= 0 {
		return nil
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     cfg.WindowDuration,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
