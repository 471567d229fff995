package middlewares

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimiter enforces a fixed-window limit per derived key. With a redis
// client the window is shared across instances; without one it falls back
// to in-process buckets.
type RateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	limit   int
	clients map[string]*clientBucket
	rdb     *redis.Client
}

type clientBucket struct {
	count     int
	windowEnd time.Time
}

func NewRateLimiter(limit int, window time.Duration, rdb *redis.Client) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		clients: make(map[string]*clientBucket),
		rdb:     rdb,
	}
}

// RateLimiterMiddleware returns a gin.HandlerFunc that enforces the limit for a derived key

func (rl *RateLimiter) RateLimiterMiddleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)

		if key == "" {
			// fallback to IP if key cannot be derived

			key = clientIP(c)
		}

		allowed, retryAfter := rl.allow(c.Request.Context(), key)

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status":  "error",
				"code":    http.StatusTooManyRequests,
				"message": "Too many requests. Please try again shortly.",
			})

			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) allow(ctx context.Context, key string) (bool, int) {
	if rl.rdb != nil {
		return rl.allowRedis(ctx, key)
	}

	return rl.allowLocal(key)
}

func (rl *RateLimiter) allowRedis(ctx context.Context, key string) (bool, int) {
	redisKey := "ratelimit:" + key

	count, err := rl.rdb.Incr(ctx, redisKey).Result()

	if err != nil {
		// redis being down should not take the API with it
		return true, 0
	}

	if count == 1 {
		rl.rdb.Expire(ctx, redisKey, rl.window)
	}

	if count > int64(rl.limit) {
		ttl, err := rl.rdb.TTL(ctx, redisKey).Result()

		retryAfter := int(rl.window.Seconds())

		if err == nil && ttl > 0 {
			retryAfter = int(ttl.Seconds())
		}

		return false, retryAfter
	}

	return true, 0
}

func (rl *RateLimiter) allowLocal(key string) (bool, int) {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.clients[key]

	if !ok || now.After(b.windowEnd) {
		rl.clients[key] = &clientBucket{
			count:     1,
			windowEnd: now.Add(rl.window),
		}

		return true, 0
	}

	if b.count >= rl.limit {
		retryAfter := int(time.Until(b.windowEnd).Seconds())

		if retryAfter < 0 {
			retryAfter = 0
		}

		return false, retryAfter
	}

	b.count++
	return true, 0
}

// helper functions

// for unauthenticated endpoints: rate limit by IP
func KeyByIP(c *gin.Context) string {
	return clientIP(c)
}

// For authenticated endpoints: rate limit by userID if available

func KeyByUserOrIP(c *gin.Context) string {
	id, ok := UserIDFromContext(c)

	if ok && id != "" {
		return "user:" + id
	}

	return clientIP(c)
}

func clientIP(c *gin.Context) string {
	// Gin's ClientIP respects X-Forwarded-For / X-Real-IP if configured.
	ip := c.ClientIP()

	// Normalize ipv6 zone

	host, _, err := net.SplitHostPort(ip)

	if err == nil && host != "" {
		return host
	}

	return ip
}
