package routes

import (
	"github.com/osa911/portfolio/internal/api/handlers"
	"github.com/osa911/portfolio/internal/api/middleware"

	"github.com/gin-gonic/gin"
)

// Handlers contains all the route handlers
type Handlers struct {
	Mail   *handlers.MailHandler
	Health *handlers.HealthHandler
}

// Middleware contains the route-scoped middleware
type Middleware struct {
	Validation      *middleware.ValidationMiddleware
	ClientRateLimit gin.HandlerFunc
	MaxBodyBytes    int64
}
