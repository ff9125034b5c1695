package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// RateLimit returns a Gin middleware that enforces a per-client token
// bucket. Limiters live in a TTL cache keyed by client IP, so idle
// clients are evicted instead of accumulating forever.
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	limiters := cache.New(10*time.Minute, 15*time.Minute)

	return func(c *gin.Context) {
		ip := c.ClientIP()

		var limiter *rate.Limiter
		if cached, ok := limiters.Get(ip); ok {
			limiter = cached.(*rate.Limiter)
		} else {
			limiter = rate.NewLimiter(rps, burst)
			limiters.Set(ip, limiter, cache.DefaultExpiration)
		}

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}
