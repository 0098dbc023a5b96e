package routes

import (
	"github.com/osa911/portfolio/internal/api/handlers"
	"github.com/osa911/portfolio/internal/api/middleware"

	"github.com/gin-gonic/gin"
)

// SetupContactRoutes configures the contact form endpoint.
// The per-client limiter runs first so every attempt counts, valid or not.
func SetupContactRoutes(router *gin.Engine, route string, mail *handlers.MailHandler, m *Middleware) {
	router.POST(route,
		m.ClientRateLimit,
		middleware.PreserveRequestBody(m.MaxBodyBytes),
		m.Validation.ValidateSubmissionRequest(),
		mail.Send,
	)
}
