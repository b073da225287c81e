package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/dental-api/internal/config"
	"github.com/jwalitptl/dental-api/internal/handler/health"
	promhandler "github.com/jwalitptl/dental-api/internal/handler/prometheus"
	"github.com/jwalitptl/dental-api/internal/middleware"
	"github.com/jwalitptl/dental-api/pkg/metrics"
	"github.com/jwalitptl/dental-api/pkg/validator"
)

// Handler registers routes that need no authentication.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// ProtectedHandler registers routes behind the bearer token check.
type ProtectedHandler interface {
	RegisterProtectedRoutes(*gin.RouterGroup, *middleware.AuthMiddleware)
}

type RouterConfig struct {
	Mode           string
	RateLimit      config.RateLimitConfig
	CORS           config.CORSConfig
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

type Router struct {
	engine    *gin.Engine
	auth      *middleware.AuthMiddleware
	health    *health.Handler
	metricsH  *promhandler.Handler
	public    []Handler
	protected []ProtectedHandler
}

func NewRouter(
	cfg RouterConfig,
	auth *middleware.AuthMiddleware,
	m *metrics.Metrics,
	healthH *health.Handler,
	metricsH *promhandler.Handler,
	public []Handler,
	protected []ProtectedHandler,
) *Router {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	validator.RegisterGinValidations()

	engine := gin.New()

	r := &Router{
		engine:    engine,
		auth:      auth,
		health:    healthH,
		metricsH:  metricsH,
		public:    public,
		protected: protected,
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		middleware.Metrics(m),
		middleware.Timeout(cfg.RequestTimeout),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.CORS(cfg.CORS),
	)
	if cfg.MaxBodyBytes > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	}
	if cfg.RateLimit.Enabled {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  rate.Limit(cfg.RateLimit.RequestsPerSecond),
			Burst: cfg.RateLimit.Burst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	return r
}

func (r *Router) Setup() {
	r.engine.GET("/metrics", r.metricsH.Handler())

	api := r.engine.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.health.RegisterRoutes(api)

	for _, h := range r.public {
		h.RegisterRoutes(api)
	}

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	for _, h := range r.protected {
		h.RegisterProtectedRoutes(protected, r.auth)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
