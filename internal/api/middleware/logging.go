package middleware

import (
	"time"

	"github.com/osa911/portfolio/internal/logging"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs one line per completed request when enabled
func RequestLogger(logger *logging.Logger, enabled bool) gin.HandlerFunc {
	logger.Debug("RequestLogger middleware initialized (enabled=%v)", enabled)

	if !enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		logger.LogHTTPRequest(
			method,
			path,
			c.ClientIP(),
			c.Writer.Status(),
			c.Writer.Size(),
			time.Since(start).String(),
		)
	}
}
