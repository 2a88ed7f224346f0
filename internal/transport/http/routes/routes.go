package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/friendy21/workspace-auth/internal/core/port"
	"github.com/friendy21/workspace-auth/internal/infra/config"
	"github.com/friendy21/workspace-auth/internal/infra/security"
	"github.com/friendy21/workspace-auth/internal/svcauth"
	"github.com/friendy21/workspace-auth/internal/transport/http/handlers"
	"github.com/friendy21/workspace-auth/internal/transport/http/middleware"
	"github.com/friendy21/workspace-auth/internal/usecase"
)

// AuthDependencies encapsulates everything the Authentication Service's HTTP
// layer needs.
type AuthDependencies struct {
	Config    *config.AppConfig
	Logger    *zap.Logger
	Auth      *usecase.AuthService
	Sessions  *usecase.SessionService
	Passwords *usecase.PasswordService
	Security  *usecase.SecurityService
	RateLimit port.RateLimitStore
	Metrics   *middleware.HTTPMetrics
}

// RegisterAuth configures the Authentication Service's engine.
func RegisterAuth(deps AuthDependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.SecurityHeaders())
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	healthHandler := handlers.NewHealthHandler()
	r.GET("/healthz", healthHandler.Status)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requireAuth := middleware.RequireAuth(deps.Sessions)

	rl := deps.Config.RateLimit
	loginLimit := middleware.RateLimit(deps.RateLimit, middleware.RateLimitRule{
		Name:   "login",
		Limit:  rl.LoginLimit,
		Window: rl.LoginWindow,
		Key:    middleware.KeyByIP,
	}, deps.Logger)
	resetLimit := middleware.RateLimit(deps.RateLimit, middleware.RateLimitRule{
		Name:   "password_reset",
		Limit:  rl.PasswordResetLimit,
		Window: rl.PasswordResetWindow,
		Key:    middleware.KeyByIP,
	}, deps.Logger)
	apiLimit := middleware.RateLimit(deps.RateLimit, middleware.RateLimitRule{
		Name:   "api",
		Limit:  rl.APILimit,
		Window: rl.APIWindow,
		Key:    middleware.KeyByUser,
	}, deps.Logger)

	authHandler := handlers.NewAuthHandler(deps.Auth, deps.Sessions, deps.Logger)
	passwordHandler := handlers.NewPasswordHandler(deps.Passwords, deps.Logger)
	sessionHandler := handlers.NewSessionHandler(deps.Sessions, deps.Logger)
	securityHandler := handlers.NewSecurityHandler(deps.Security, deps.Logger)

	auth := r.Group("/auth")
	{
		auth.POST("/login/", loginLimit, authHandler.Login)
		auth.POST("/refresh/", authHandler.Refresh)
		auth.POST("/logout/", requireAuth, authHandler.Logout)
		auth.POST("/logout-all/", requireAuth, authHandler.LogoutAll)

		auth.POST("/password/change/", requireAuth, apiLimit, passwordHandler.Change)
		auth.POST("/password/reset/", resetLimit, passwordHandler.RequestReset)
		auth.POST("/password/reset/confirm/", resetLimit, passwordHandler.ConfirmReset)

		auth.GET("/sessions/", requireAuth, apiLimit, sessionHandler.List)
		auth.DELETE("/sessions/:id/", requireAuth, apiLimit, sessionHandler.Revoke)

		auth.GET("/security/", requireAuth, apiLimit, securityHandler.Summary)
	}

	return r
}

// OrgDependencies encapsulates everything the Organization Service's HTTP
// layer needs.
type OrgDependencies struct {
	Config   *config.AppConfig
	Logger   *zap.Logger
	Orgs     *usecase.OrgService
	Issuer   *security.TokenIssuer
	Verifier *svcauth.Verifier
	Audit    port.AuditRepository
	Metrics  *middleware.HTTPMetrics
}

// RegisterOrg configures the Organization Service's engine. The internal
// directory lookup sits behind service auth; member reads behind the shared
// JWT middleware contract.
func RegisterOrg(deps OrgDependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.SecurityHeaders())
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	healthHandler := handlers.NewHealthHandler()
	r.GET("/healthz", healthHandler.Status)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	orgHandler := handlers.NewOrgHandler(deps.Orgs, deps.Logger)

	internal := r.Group("/internal")
	internal.Use(middleware.RequireServiceAuth(deps.Verifier, deps.Audit, deps.Logger))
	{
		internal.GET("/users/:email/", orgHandler.LookupUser)
	}

	requireToken := middleware.RequireToken(deps.Issuer)
	orgs := r.Group("/orgs", requireToken)
	{
		orgs.GET("/:id/", orgHandler.GetOrganization)
		orgs.GET("/:id/members/", orgHandler.ListMembers)
	}

	return r
}
