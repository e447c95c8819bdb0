package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"lumina/internal/infrastructure/ratelimit"
	"lumina/internal/shared/constants"
	"lumina/internal/shared/logger"
	"lumina/internal/shared/utils"
)

// RateLimitMiddleware enforces per-caller request limits through the shared
// Redis limiter. Authenticated requests are keyed by user ID so a user cannot
// dodge the limit by rotating IPs; anonymous requests fall back to client IP.
type RateLimitMiddleware struct {
	limiter ratelimit.RateLimiter
	config  ratelimit.RateLimitConfig
	logger  logger.Interface
}

func NewRateLimitMiddleware(
	limiter ratelimit.RateLimiter,
	config ratelimit.RateLimitConfig,
	logger logger.Interface,
) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		config:  config,
		logger:  logger,
	}
}

func (m *RateLimitMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := m.keyFor(c)

		allowed, err := m.limiter.Allow(c.Request.Context(), key, m.config)
		if err != nil {
			// Redis outages must not take the API down with them.
			m.logger.Warnw("rate limiter unavailable, allowing request", "error", err, "key", key)
			c.Next()
			return
		}

		if !allowed {
			utils.ErrorResponse(c, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			c.Abort()
			return
		}

		c.Next()
	}
}

func (m *RateLimitMiddleware) keyFor(c *gin.Context) string {
	if value, exists := c.Get(constants.ContextKeyUserID); exists {
		if id, ok := value.(uint); ok {
			return fmt.Sprintf("user:%d", id)
		}
	}
	return fmt.Sprintf("ip:%s", c.ClientIP())
}
