package routes

import (
	"net/http"

	"github.com/osa911/portfolio/internal/api/dto/common"
	"github.com/osa911/portfolio/internal/api/middleware"
	"github.com/osa911/portfolio/internal/config"
	"github.com/osa911/portfolio/internal/logging"
	"github.com/osa911/portfolio/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Setup configures all routes. metricsHandler may be nil to disable /metrics.
func Setup(router *gin.Engine, cfg *config.Config, h *Handlers, m *Middleware, metricsHandler http.Handler) {
	logger := logging.GetLogger()

	SetupHealthRoutes(router, h.Health, metricsHandler)
	SetupContactRoutes(router, cfg.MailRoute, h.Mail, m)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, common.NewErrorResponse(common.ErrCodeNotFound, "Route not found", nil))
	})

	logger.Info("All routes have been set up successfully")
}

// SetupGlobalMiddleware configures middleware that applies to all routes.
// Order matters: CORS runs before the global limiter so a disallowed origin
// never consumes a token, and preflight requests stop at CORS.
func SetupGlobalMiddleware(router *gin.Engine, cfg *config.Config, logger *logging.Logger, metrics *telemetry.Metrics) {
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestID())
	router.Use(otelgin.Middleware(telemetry.ServiceName))
	router.Use(middleware.SecurityHeaders(cfg.Environment.IsProduction()))
	router.Use(middleware.RequestLogger(logger, cfg.LogRequests))
	router.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: cfg.CORSOrigins(),
		Logger:         logger,
		Metrics:        metrics,
	}))
	router.Use(middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		RPS:   cfg.GlobalRPS,
		Burst: cfg.GlobalBurst,
	}))
}
