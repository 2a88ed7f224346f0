// Package app wires configuration, infrastructure, and usecases into
// runnable services.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/friendy21/workspace-auth/internal/core/port"
	"github.com/friendy21/workspace-auth/internal/infra/config"
	"github.com/friendy21/workspace-auth/internal/infra/database"
	kafkainfra "github.com/friendy21/workspace-auth/internal/infra/kafka"
	"github.com/friendy21/workspace-auth/internal/infra/logger"
	redisinfra "github.com/friendy21/workspace-auth/internal/infra/redis"
	"github.com/friendy21/workspace-auth/internal/infra/security"
	"github.com/friendy21/workspace-auth/internal/orgclient"
	postgresrepo "github.com/friendy21/workspace-auth/internal/repository/postgres"
	redisrepo "github.com/friendy21/workspace-auth/internal/repository/redis"
	"github.com/friendy21/workspace-auth/internal/svcauth"
	"github.com/friendy21/workspace-auth/internal/transport/http/middleware"
	"github.com/friendy21/workspace-auth/internal/transport/http/routes"
	"github.com/friendy21/workspace-auth/internal/usecase"
)

// AuthApplication is the assembled Authentication Service.
type AuthApplication struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
}

// NewAuth builds the Authentication Service.
func NewAuth(ctx context.Context, cfg *config.AppConfig) (*AuthApplication, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	var (
		producer  *kafkainfra.Producer
		publisher port.EventPublisher
	)
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			return nil, fmt.Errorf("init kafka producer: %w", err)
		}
		publisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
	} else {
		log.Warn("no kafka brokers configured, events will be logged only")
		publisher = kafkainfra.NewStubPublisher(log)
	}

	repos := postgresrepo.NewRepositories(pool)
	rateLimits := redisrepo.NewRateLimitRepository(redisClient.Client(), cfg.Redis.KeyPrefix)
	activity := redisrepo.NewLoginActivityRepository(redisClient.Client(), cfg.Redis.KeyPrefix)

	hasher := security.NewPasswordHasher(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	policy := security.NewPasswordPolicy()

	issuer, err := security.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("init token issuer: %w", err)
	}

	signer := svcauth.NewSigner(cfg.ServiceAuth.ServiceID, cfg.ServiceAuth.Token, cfg.ServiceAuth.Secret)
	orgs := orgclient.New(cfg.OrgService.BaseURL, cfg.OrgService.Timeout, signer, log)

	monitor := usecase.NewSecurityMonitor(activity, repos.Audit, publisher, log)
	sessions := usecase.NewSessionService(repos.Sessions, repos.Users, repos.Audit, publisher, issuer, cfg.Session, log)
	auth, err := usecase.NewAuthService(repos.Users, repos.Audit, publisher, orgs, sessions, monitor, hasher, issuer, log)
	if err != nil {
		return nil, fmt.Errorf("init auth service: %w", err)
	}
	passwords := usecase.NewPasswordService(repos.Users, sessions, repos.ResetTokens, repos.Audit, publisher, hasher, policy, cfg.Session, log)
	securitySvc := usecase.NewSecurityService(repos.Users, repos.Sessions, repos.Audit)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{Namespace: "auth"})
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.RegisterAuth(routes.AuthDependencies{
		Config:    cfg,
		Logger:    log,
		Auth:      auth,
		Sessions:  sessions,
		Passwords: passwords,
		Security:  securitySvc,
		RateLimit: rateLimits,
		Metrics:   metrics,
	})

	return &AuthApplication{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		producer: producer,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *AuthApplication) Run(ctx context.Context) error {
	return runHTTP(ctx, a.logger, a.cfg, a.engine, func() {
		if a.producer != nil {
			_ = a.producer.Close()
		}
		if a.pool != nil {
			a.pool.Close()
		}
		if a.redis != nil {
			_ = a.redis.Close()
		}
	})
}

func runHTTP(ctx context.Context, log *zap.Logger, cfg *config.AppConfig, engine *gin.Engine, cleanup func()) error {
	defer func() {
		_ = log.Sync()
	}()
	defer cleanup()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info("starting http server",
		zap.String("service", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
