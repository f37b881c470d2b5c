package middleware

import (
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"stockwatch/pkg/limiter"
	"stockwatch/pkg/log"
	"stockwatch/pkg/utils"
)

// RateLimitConfig rate limiting middleware configuration
type RateLimitConfig struct {
	// Rate requests per second for the default per-key token bucket
	Rate float64
	// Burst maximum burst size for the default per-key token bucket
	Burst int
	// Limiter overrides the default token bucket. A shared limiter
	// receives the request key and scopes it itself, the way the
	// redis sliding window does.
	Limiter limiter.RateLimiter
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
			utils.Error(c, utils.CodeRateLimit, "Too many requests")
		},
	}
}

// RateLimit per-client rate limiting middleware
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	config := DefaultRateLimitConfig()
	config.Rate = rps
	config.Burst = burst
	return RateLimitWithConfig(config)
}

// RateLimitWithConfig rate limiting middleware with configuration.
// Without an explicit Limiter each key gets its own token bucket.
func RateLimitWithConfig(config RateLimitConfig) gin.HandlerFunc {
	if config.KeyFunc == nil {
		config.KeyFunc = func(c *gin.Context) string {
			return c.ClientIP()
		}
	}
	if config.ErrorHandler == nil {
		config.ErrorHandler = func(c *gin.Context) {
			utils.Error(c, utils.CodeRateLimit, "Too many requests")
		}
	}

	var mu sync.Mutex
	buckets := make(map[string]*limiter.TokenBucketLimiter)

	pick := func(key string) limiter.RateLimiter {
		if config.Limiter != nil {
			return config.Limiter
		}
		mu.Lock()
		defer mu.Unlock()
		bucket, exists := buckets[key]
		if !exists {
			bucket = limiter.NewTokenBucketLimiter(rate.Limit(config.Rate), config.Burst)
			buckets[key] = bucket
		}
		return bucket
	}

	return func(c *gin.Context) {
		key := config.KeyFunc(c)

		allowed, err := pick(key).Allow(c.Request.Context(), key)
		if err != nil {
			// Fail open: a broken limiter backend must not take the
			// API down with it.
			log.WithFields(map[string]interface{}{
				"key":   key,
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			}).Warn("Rate limiter check failed")
			c.Next()
			return
		}

		if !allowed {
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
