package http

import (
	"context"
	"log/slog"

	"github.com/geocoder89/authhub/internal/config"
	"github.com/geocoder89/authhub/internal/http/handlers"
	"github.com/geocoder89/authhub/internal/http/middlewares"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// TokenManager issues and verifies access tokens.
type TokenManager interface {
	handlers.TokenIssuer
	middlewares.TokenVerifier
}

// Deps are the collaborators wired into the handlers. Everything except
// Users and Tokens may be nil.
type Deps struct {
	Users          handlers.UsersService
	Tokens         TokenManager
	Prom           *observability.Prom
	Gatherer       prometheus.Gatherer
	Ping           func(ctx context.Context) error
	IsShuttingDown func() bool
}

func NewRouter(log *slog.Logger, cfg config.Config, deps Deps) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// "/register/" is served as well, not redirected
	r.RedirectTrailingSlash = false

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware(cfg.ServiceName))

	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}

	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))
	r.Use(middlewares.RequireJSON())

	// health
	h := handlers.NewHealthHandler(deps.Ping, deps.IsShuttingDown)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// auth
	authHandler := handlers.NewAuthHandler(deps.Users, deps.Tokens, deps.Prom, log, cfg.RequestTimeout)
	authMiddleware := middlewares.NewAuthMiddleware(deps.Tokens)

	for _, path := range []string{"/register", "/register/"} {
		r.POST(path, authHandler.Register)
	}

	for _, path := range []string{"/login", "/login/"} {
		r.POST(path, authHandler.Login)
	}

	r.GET("/me", authMiddleware.RequireAuth(), authHandler.Me)

	return r
}
