package server

import (
	"net/http"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/convoke-ai/convoke/internal/config"
	"github.com/convoke-ai/convoke/internal/gateway"
	"github.com/convoke-ai/convoke/internal/server/middleware"
	"github.com/convoke-ai/convoke/internal/server/validator"
	"github.com/convoke-ai/convoke/internal/store"
)

type Server struct {
	router  *gin.Engine
	config  *config.Config
	logger  *zap.Logger
	service gateway.Service
	prober  *gateway.Prober
	repo    store.Repository

	providers []string
}

// New wires the HTTP surface: middleware chain, routes, validation. The
// provider list drives the aggregate health endpoint. repo may be nil when
// persistence is disabled; the conversation routes are then absent.
func New(cfg *config.Config, logger *zap.Logger, service gateway.Service, prober *gateway.Prober, providers []string, repo store.Repository) *Server {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	validator.Init()

	engine := gin.New()
	engine.Use(ginzap.RecoveryWithZap(logger, true))
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger(logger))
	engine.Use(middleware.CORS())
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.Tracing(cfg.Telemetry.ServiceName))
	}
	engine.Use(rateLimit(cfg, logger))
	engine.Use(middleware.ErrorHandler(logger))

	s := &Server{
		router:    engine,
		config:    cfg,
		logger:    logger,
		service:   service,
		prober:    prober,
		repo:      repo,
		providers: providers,
	}

	s.setupRoutes()
	return s
}

// rateLimit picks the shared Redis window when configured, the in-process
// token bucket otherwise.
func rateLimit(cfg *config.Config, logger *zap.Logger) gin.HandlerFunc {
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return middleware.NewRedisRateLimiter(client, cfg.RateLimit.Requests, cfg.RateLimit.Window, logger).Middleware()
	}

	rps := float64(cfg.RateLimit.Requests) / cfg.RateLimit.Window.Seconds()
	return middleware.NewRateLimiter(rps, cfg.RateLimit.Requests, logger).Middleware()
}

func (s *Server) Handler() http.Handler {
	return s.router
}
