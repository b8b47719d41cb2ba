package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/voteguard/evote-sessions/internal/core/port"
	"github.com/voteguard/evote-sessions/internal/infra/config"
	"github.com/voteguard/evote-sessions/internal/infra/database"
	kafkainfra "github.com/voteguard/evote-sessions/internal/infra/kafka"
	"github.com/voteguard/evote-sessions/internal/infra/logger"
	"github.com/voteguard/evote-sessions/internal/infra/notification"
	redisinfra "github.com/voteguard/evote-sessions/internal/infra/redis"
	"github.com/voteguard/evote-sessions/internal/infra/security"
	"github.com/voteguard/evote-sessions/internal/infra/sensor"
	"github.com/voteguard/evote-sessions/internal/infra/telemetry"
	postgresrepo "github.com/voteguard/evote-sessions/internal/repository/postgres"
	redisrepo "github.com/voteguard/evote-sessions/internal/repository/redis"
	"github.com/voteguard/evote-sessions/internal/transport/http/middleware"
	"github.com/voteguard/evote-sessions/internal/transport/http/routes"
	"github.com/voteguard/evote-sessions/internal/usecase"
)

type Application struct {
	cfg     *config.AppConfig
	engine  *gin.Engine
	logger  *zap.Logger
	pool    *pgxpool.Pool
	redis   *redisinfra.Client
	tracing *telemetry.TracerProvider
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	tracing, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Warn("failed to init tracer provider, continuing without tracing", zap.Error(err))
		tracing = nil
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	tokens, err := security.NewSessionTokenIssuer(cfg.Auth.SessionTokenSecret, cfg.App.Name, cfg.Auth.SessionTokenTTL)
	if err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("init session token issuer: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)
	otpStore := redisrepo.NewOTPRepository(redisClient.Client(), cfg.Redis.OTPPrefix)

	isDev := cfg.App.Env == "development"

	var eventPublisher port.EventPublisher
	var producer *kafkainfra.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	var delivery port.OTPDeliveryService
	if producer != nil {
		delivery = kafkainfra.NewOTPDispatcher(producer, log)
	} else {
		delivery = notification.NewLoggingDelivery(log, isDev)
	}

	var biometricSensor port.BiometricSensor
	if cfg.Sensor.AgentURL != "" {
		biometricSensor = sensor.NewHTTPAgent(cfg.Sensor, log)
	} else {
		log.Info("sensor agent not configured, using static sensor")
		biometricSensor = sensor.NewStatic()
	}

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: "evote:rate-limit",
		TTL:       rateLimitWindow * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	registry := usecase.NewSessionRegistry()
	otpChallenge := usecase.NewOTPChallenge(usecase.OTPChallengeConfig{
		CodeLength:     cfg.Auth.OTPCodeLength,
		TTL:            cfg.Auth.OTPTTL,
		ResendCooldown: cfg.Auth.OTPResendCooldown,
	}, otpStore, delivery)

	authService := usecase.NewAuthService(usecase.AuthConfig{
		Biometric: usecase.BiometricChallengeConfig{
			MaxAttempts: cfg.Auth.BiometricMaxAttempts,
			Cooldown:    cfg.Auth.BiometricCooldown,
		},
		SensorTimeout: cfg.Sensor.Timeout,
	}, registry, biometricSensor, otpChallenge, tokens, eventPublisher, log)

	votingService := usecase.NewVotingService(registry, repos.Catalog, repos.Ledger, eventPublisher, log)
	receiptService := usecase.NewReceiptService(registry)

	metrics, err := telemetry.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Tokens:      tokens,
		Metrics:     metrics,
		HTTPMetrics: httpMetrics,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Auth:     authService,
			Voting:   votingService,
			Receipts: receiptService,
		},
	})

	return &Application{
		cfg:     cfg,
		engine:  engine,
		logger:  log,
		pool:    pool,
		redis:   redisClient,
		tracing: tracing,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.tracing != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = a.tracing.Shutdown(shutdownCtx)
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting voting session API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
