package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/osa911/portfolio/internal/api/constants"
	"github.com/osa911/portfolio/internal/logging"

	"github.com/gin-gonic/gin"
)

// Recovery turns a handler panic into a plain 500 and logs the stack
func Recovery(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("[PANIC] %s %s | %s | %s | %v\n%s",
					c.Request.Method,
					c.Request.URL.Path,
					c.ClientIP(),
					c.GetString(constants.ContextKeyRequestID),
					err,
					debug.Stack(),
				)
				c.String(http.StatusInternalServerError, "Internal server error")
				c.Abort()
			}
		}()

		c.Next()
	}
}
