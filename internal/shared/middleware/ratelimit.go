package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/blockreceipt/server/internal/port/outbound"
	"github.com/blockreceipt/server/internal/shared/logger"
	"github.com/blockreceipt/server/internal/shared/response"
)

// RateLimit returns a middleware limiting requests per client key.
// Requests are keyed by client IP. When the limiter itself fails the
// request is allowed through; rate limiting is best effort.
func RateLimit(limiter outbound.RateLimiterPort, log *logger.Logger, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP(), limit, window)
		if err != nil {
			log.Warn("rate limiter unavailable", logger.Err(err))
			c.Next()
			return
		}
		if !allowed {
			response.TooManyRequests(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
