package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vendora-inc/vendora/internal/infrastructure/ratelimit"
	"github.com/vendora-inc/vendora/internal/shared/constants"
	"github.com/vendora-inc/vendora/internal/shared/logger"
	"github.com/vendora-inc/vendora/internal/shared/utils"
)

// RateLimitMiddleware throttles signed-in users per action.
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	limits  ratelimit.Limits
	logger  logger.Interface
}

func NewRateLimitMiddleware(limiter ratelimit.Limiter, limits ratelimit.Limits, logger logger.Interface) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		limits:  limits,
		logger:  logger,
	}
}

// LimitByUser keys the limit on action and the caller's user id. Anonymous
// callers fall back to the client IP. A limiter failure lets the request through.
func (m *RateLimitMiddleware) LimitByUser(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := "ip:" + c.ClientIP()
		if ac, ok := GetAccessContext(c); ok && ac.Identity.IsAuthenticated {
			subject = "user:" + ac.Identity.UserID
		}
		key := action + ":" + subject

		allowed, err := m.limiter.Allow(c.Request.Context(), key, m.limits)
		if err != nil {
			m.logger.Errorw("rate limiter unavailable, allowing request", "key", key, "error", err)
			c.Next()
			return
		}
		if !allowed {
			m.logger.Warnw("rate limit exceeded", "key", key, "path", c.Request.URL.Path)
			c.Header(constants.HeaderRetryAfter, strconv.Itoa(60))
			utils.ErrorResponse(c, http.StatusTooManyRequests, "Too many requests, please try again later")
			c.Abort()
			return
		}
		c.Next()
	}
}
