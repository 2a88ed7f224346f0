package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/friendy21/workspace-auth/internal/infra/config"
	"github.com/friendy21/workspace-auth/internal/infra/database"
	"github.com/friendy21/workspace-auth/internal/infra/logger"
	"github.com/friendy21/workspace-auth/internal/infra/security"
	postgresrepo "github.com/friendy21/workspace-auth/internal/repository/postgres"
	"github.com/friendy21/workspace-auth/internal/svcauth"
	"github.com/friendy21/workspace-auth/internal/transport/http/middleware"
	"github.com/friendy21/workspace-auth/internal/transport/http/routes"
	"github.com/friendy21/workspace-auth/internal/usecase"
)

// OrgApplication is the assembled Organization Service.
type OrgApplication struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
}

// NewOrg builds the Organization Service.
func NewOrg(ctx context.Context, cfg *config.AppConfig) (*OrgApplication, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	orgRepo := postgresrepo.NewOrgRepository(pool)
	auditRepo := postgresrepo.NewAuditRepository(pool)

	issuer, err := security.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("init token issuer: %w", err)
	}

	verifier := svcauth.NewVerifier(cfg.ServiceAuth.Token, cfg.ServiceAuth.Secret)

	orgs := usecase.NewOrgService(orgRepo, log)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{Namespace: "org"})
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.RegisterOrg(routes.OrgDependencies{
		Config:   cfg,
		Logger:   log,
		Orgs:     orgs,
		Issuer:   issuer,
		Verifier: verifier,
		Audit:    auditRepo,
		Metrics:  metrics,
	})

	return &OrgApplication{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *OrgApplication) Run(ctx context.Context) error {
	return runHTTP(ctx, a.logger, a.cfg, a.engine, func() {
		if a.pool != nil {
			a.pool.Close()
		}
	})
}
