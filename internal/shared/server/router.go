package server

import (
	"github.com/gin-gonic/gin"

	"resume-builder/internal/builder"
	"resume-builder/internal/services/health"
	"resume-builder/internal/shared/auth"
	"resume-builder/internal/shared/config"
	"resume-builder/internal/shared/metrics"
	"resume-builder/internal/shared/server/middleware"
)

// Edits are cheap; record-creating calls are held to a slower bucket.
var defaultRateRules = map[string]middleware.RateLimitRule{
	middleware.GroupDefault: {Rate: 20, Burst: 60},
	middleware.GroupSubmit:  {Rate: 1, Burst: 5},
}

// RouterDeps carries what NewRouter wires into routes.
type RouterDeps struct {
	Config  config.Config
	Tokens  *auth.Tokens
	Handler *builder.Handler
	Health  *health.Service
	Limiter *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Tokens),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:    defaultRateRules,
			GroupFor: middleware.SubmitGroup,
			Limiter:  deps.Limiter,
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	if deps.Health != nil {
		api.GET("/health", deps.Health.Handle)
	}
	if deps.Handler != nil {
		deps.Handler.RegisterRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
