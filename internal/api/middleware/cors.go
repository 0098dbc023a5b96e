package middleware

import (
	"net/http"
	"strings"

	"github.com/osa911/portfolio/internal/api/dto/common"
	"github.com/osa911/portfolio/internal/logging"
	"github.com/osa911/portfolio/internal/telemetry"
	"github.com/osa911/portfolio/internal/utils"

	"github.com/gin-gonic/gin"
)

// CORSConfig holds the cross-origin policy for the relay
type CORSConfig struct {
	// AllowedOrigins lists exact origins; "*" accepts any origin
	AllowedOrigins []string
	Logger         *logging.Logger
	Metrics        *telemetry.Metrics
}

// CORS middleware
func CORS(config CORSConfig) gin.HandlerFunc {
	allowAny := false
	allowed := make(map[string]struct{}, len(config.AllowedOrigins))
	for _, origin := range config.AllowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "*" {
			allowAny = true
			continue
		}
		allowed[origin] = struct{}{}
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		c.Writer.Header().Add("Vary", "Origin")

		if origin != "" {
			_, ok := allowed[origin]
			// Disallowed origins stop here in every mode, preflight included,
			// so they never reach the limiters or the relay.
			if !ok && !allowAny {
				config.Metrics.Submission(telemetry.OutcomeForbidden)
				logger.Warn("[%s] Rejected %s %s from disallowed origin %s",
					common.ErrCodeForbidden, c.Request.Method, c.Request.URL.Path, origin)
				utils.AbortWithText(c, http.StatusForbidden, "Origin not allowed")
				return
			}
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "RateLimit-Limit, RateLimit-Remaining, RateLimit-Reset, Retry-After, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

		// Handle preflight requests
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
