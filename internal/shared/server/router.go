package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"cv-optimizer/internal/shared/config"
	"cv-optimizer/internal/shared/metrics"
	"cv-optimizer/internal/shared/server/middleware"
	"cv-optimizer/internal/shared/server/respond"
)

// APIPrefix is the mount point of every workflow route.
const APIPrefix = "/api/v1"

const (
	groupDefault   = "DEFAULT"
	groupReasoning = "REASONING"
)

// RouteRegistrar is implemented by every feature handler.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps carries the feature handlers mounted under APIPrefix.
type RouterDeps struct {
	Config   config.Config
	Handlers []RouteRegistrar
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Metrics(),
	)

	health := func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	}
	r.GET("/health", health)
	r.GET("/metrics", metrics.Handler())

	api := r.Group(APIPrefix)
	api.Use(middleware.RateLimit(rateLimitConfig(deps.Config)))
	api.GET("/health", health)
	for _, h := range deps.Handlers {
		if h != nil {
			h.RegisterRoutes(api)
		}
	}
	return r
}

// rateLimitConfig gives reasoning-backed routes a quarter of the general
// budget.
func rateLimitConfig(cfg config.Config) middleware.RateLimitConfig {
	if cfg.RateLimitRPM <= 0 {
		return middleware.RateLimitConfig{}
	}
	reasoningRPM := cfg.RateLimitRPM / 4
	if reasoningRPM < 1 {
		reasoningRPM = 1
	}
	reasoningBurst := cfg.RateLimitBurst / 4
	if reasoningBurst < 1 {
		reasoningBurst = 1
	}
	return middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			groupDefault:   middleware.PerMinute(cfg.RateLimitRPM, cfg.RateLimitBurst),
			groupReasoning: middleware.PerMinute(reasoningRPM, reasoningBurst),
		},
		DefaultGroup: groupDefault,
		GroupFor: func(c *gin.Context) string {
			path := strings.TrimPrefix(c.Request.URL.Path, APIPrefix)
			switch path {
			case "/analyze", "/cv/generate", "/interview/voice", "/transcribe":
				return groupReasoning
			}
			return groupDefault
		},
	}
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
