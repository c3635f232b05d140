package middleware

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"marketplace/pkg/limiter"
	"marketplace/pkg/log"
)

// RateLimitConfig rate limiting middleware configuration
type RateLimitConfig struct {
	// Rate requests per second
	Rate float64
	// Burst maximum burst size
	Burst int
	// KeyFunc function to generate rate limit key
	KeyFunc func(c *gin.Context) string
	// ErrorHandler error handling function
	ErrorHandler func(c *gin.Context)
}

// DefaultRateLimitConfig default rate limiting configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Rate:  100,
		Burst: 200,
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
		ErrorHandler: func(c *gin.Context) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":    429,
				"message": "Too many requests",
			})
		},
	}
}

// RateLimit in-process rate limiting middleware keyed by client IP
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	config := DefaultRateLimitConfig()
	config.Rate = rps
	config.Burst = burst
	return RateLimitWithConfig(config)
}

// RateLimitWithConfig rate limiting middleware with configuration
func RateLimitWithConfig(config RateLimitConfig) gin.HandlerFunc {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	return func(c *gin.Context) {
		key := config.KeyFunc(c)

		mu.Lock()
		l, exists := limiters[key]
		if !exists {
			l = rate.NewLimiter(rate.Limit(config.Rate), config.Burst)
			limiters[key] = l
		}
		mu.Unlock()

		if !l.Allow() {
			log.WithFields(map[string]interface{}{
				"key":    key,
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).Warn("Rate limit exceeded")

			config.ErrorHandler(c)
			c.Abort()
			return
		}

		c.Next()
	}
}

// CheckoutRateLimit per-user rate limiting backed by Redis, so the limit
// holds across instances. Falls back to the client IP before auth ran.
func CheckoutRateLimit(rl limiter.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if userID, ok := GetUserID(c); ok {
			key = fmt.Sprintf("checkout:%d", userID)
		}

		allowed, err := rl.Allow(c.Request.Context(), key)
		if err != nil {
			// Redis trouble must not block checkouts.
			log.WithError(err).Warn("Rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		if !allowed {
			log.WithFields(map[string]interface{}{
				"key":  key,
				"path": c.Request.URL.Path,
			}).Warn("Checkout rate limit exceeded")

			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":    429,
				"message": "Too many checkout attempts, please try again later",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
