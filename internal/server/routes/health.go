package routes

import (
	"net/http"

	"github.com/osa911/portfolio/internal/api/handlers"

	"github.com/gin-gonic/gin"
)

// SetupHealthRoutes configures health check and metrics endpoints
func SetupHealthRoutes(router *gin.Engine, health *handlers.HealthHandler, metricsHandler http.Handler) {
	router.GET("/health", health.Check)
	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}
}
