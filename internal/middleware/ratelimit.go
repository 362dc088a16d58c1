package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/tripmate/internal/cache"
	"github.com/charlesng35/tripmate/pkg/errors"
	"github.com/charlesng35/tripmate/pkg/logger"
	"github.com/charlesng35/tripmate/pkg/response"
)

// ErrRateLimited is returned once a client exceeds its request budget.
var ErrRateLimited = errors.New("RATE_LIMITED", "Too many requests", 429)

// RateLimit allows maxRequests per (client IP, route) in each fixed window. Counters
// live in store so every API instance sharing Redis shares the budget. Store
// failures let the request through.
func RateLimit(store cache.Store, maxRequests int, window time.Duration) gin.HandlerFunc {
	log := logger.WithModule("ratelimit")
	return func(c *gin.Context) {
		if store == nil || maxRequests <= 0 || window <= 0 {
			c.Next()
			return
		}

		key := "ratelimit:" + c.ClientIP() + "|" + c.FullPath()
		count, ttl, err := store.IncrementWithTTL(c.Request.Context(), key, window)
		if err != nil {
			log.Warn("rate limit store unavailable", zap.Error(err))
			c.Next()
			return
		}

		remaining := maxRequests - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(ttl.Seconds())))

		if int(count) > maxRequests {
			c.Header("Retry-After", strconv.Itoa(int(ttl.Seconds())+1))
			response.Error(c, ErrRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}
