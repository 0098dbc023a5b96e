package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/osa911/portfolio/internal/api/dto/common"
	"github.com/osa911/portfolio/internal/logging"
	"github.com/osa911/portfolio/internal/ratelimit"
	"github.com/osa911/portfolio/internal/telemetry"
	"github.com/osa911/portfolio/internal/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines configuration for the global rate limiter
type RateLimitConfig struct {
	// Requests per second
	RPS float64
	// Burst size (number of requests that can be made in a single burst)
	Burst int
}

// RateLimitMiddleware caps the whole process with one token bucket.
// It protects the host, not individual senders; see ClientRateLimit.
func RateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(config.RPS), config.Burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			utils.AbortWithText(c, http.StatusTooManyRequests, ratelimit.Message)
			return
		}
		c.Next()
	}
}

// ClientRateLimitConfig configures the per-client fixed window limiter
type ClientRateLimitConfig struct {
	Limiter *ratelimit.Limiter
	Logger  *logging.Logger
	Metrics *telemetry.Metrics
	// Now defaults to time.Now
	Now func() time.Time
}

// ClientRateLimit counts every request from a client IP against a fixed
// window, including requests that later fail validation. Blocked requests
// never reach the handlers behind it. Preflight requests are not counted.
//
// A failing store lets the request through: the limiter is advisory and
// must not take the relay down with it.
func ClientRateLimit(config ClientRateLimitConfig) gin.HandlerFunc {
	now := config.Now
	if now == nil {
		now = time.Now
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		clientIP := c.ClientIP()
		decision, err := config.Limiter.Allow(c.Request.Context(), clientIP)
		if err != nil {
			logger.Warn("Rate limiter unavailable for %s, allowing request: %v", clientIP, err)
			c.Next()
			return
		}

		reset := decision.ResetAt.Sub(now())
		if reset < 0 {
			reset = 0
		}
		c.Header("RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		c.Header("RateLimit-Reset", strconv.Itoa(int(math.Ceil(reset.Seconds()))))

		if !decision.Allowed {
			retryAfter := decision.RetryAfter(now())
			c.Header("Retry-After", strconv.Itoa(int(retryAfter/time.Second)))
			config.Metrics.Submission(telemetry.OutcomeRateLimited)
			logger.Warn("[%s] Rate limit exceeded for %s (%d requests in window)", common.ErrCodeTooManyRequests, clientIP, decision.Count)
			utils.AbortWithText(c, http.StatusTooManyRequests, ratelimit.Message)
			return
		}

		c.Next()
	}
}
