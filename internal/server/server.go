package server

import (
	"context"
	"net/http"
	"time"

	"github.com/ZanzibarNuclear/won-service-sub000/internal/apikey"
	apikeydomain "github.com/ZanzibarNuclear/won-service-sub000/internal/apikey/domain"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/auth"
	authdomain "github.com/ZanzibarNuclear/won-service-sub000/internal/auth/domain"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/auth/magiclink"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/auth/session"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/config"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/flux"
	fluxdomain "github.com/ZanzibarNuclear/won-service-sub000/internal/flux/domain"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/observability"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/providers/captcha"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/providers/email"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	observability.Module,
	email.Module,
	captcha.Module,
	ratelimit.Module,
	auth.Module,
	session.Module,
	magiclink.Module,
	apikey.Module,
	flux.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

type Params struct {
	fx.In

	Cfg      config.Config
	Log      *zap.Logger
	Metrics  *observability.Metrics
	Sessions *session.Manager
	AuthSvc  authdomain.Service
	Users    authdomain.Repository
	Links    *magiclink.Service
	APIKeys  apikeydomain.Service
	Fluxes   fluxdomain.Service
	Captcha  captcha.Provider
	Limiter  ratelimit.MagicLinkLimiter
}

type Server struct {
	cfg      config.Config
	log      *zap.Logger
	metrics  *observability.Metrics
	sessions *session.Manager
	authsvc  authdomain.Service
	users    authdomain.Repository
	links    *magiclink.Service
	apikeys  apikeydomain.Service
	fluxes   fluxdomain.Service
	captcha  captcha.Provider
	limiter  ratelimit.MagicLinkLimiter
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:      p.Cfg,
		log:      p.Log.Named("server"),
		metrics:  p.Metrics,
		sessions: p.Sessions,
		authsvc:  p.AuthSvc,
		users:    p.Users,
		links:    p.Links,
		apikeys:  p.APIKeys,
		fluxes:   p.Fluxes,
		captcha:  p.Captcha,
		limiter:  p.Limiter,
	}
}

func NewEngine(cfg config.Config, log *zap.Logger, metrics *observability.Metrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLoggingMiddleware(log))
	r.Use(observability.TracingMiddleware())
	r.Use(metrics.MetricsMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
		metrics.Registry, promhttp.HandlerOpts{})))

	return r
}

func registerRoutes(r *gin.Engine, s *Server) {
	s.Register(r)
}

// Register attaches all application routes to the engine.
func (s *Server) Register(r *gin.Engine) {
	r.Use(s.Identity())

	r.POST("/login/magiclink", s.RequestMagicLink)
	r.GET("/login/magiclink/verify", s.VerifyMagicLink)
	r.DELETE("/login", s.Logout)
	r.GET("/me", s.Me)

	keys := r.Group("/api-keys", s.RequireRole(authdomain.RoleAdmin))
	{
		keys.POST("", s.CreateAPIKey)
		keys.GET("", s.ListAPIKeys)
		keys.DELETE("/:id", s.RevokeAPIKey)
	}

	fluxes := r.Group("/fluxes")
	{
		fluxes.GET("", s.ListFluxes)
		fluxes.GET("/:id", s.GetFlux)
		fluxes.POST("", s.RequireRole(authdomain.RoleMember), s.CreateFlux)
		fluxes.POST("/:id/boost", s.RequireRole(authdomain.RoleMember), s.BoostFlux)
	}
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down http server")
			return srv.Shutdown(ctx)
		},
	})
}
