package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	HeaderRateLimit     = "X-RateLimit-Limit"
	HeaderRateRemaining = "X-RateLimit-Remaining"
	HeaderRateReset     = "X-RateLimit-Reset"
)

// fixedWindow increments the counter for KEYS[1] unless it already reached ARGV[1].
// Returns {allowed, count, ttl_seconds}.
var fixedWindow = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
if current >= tonumber(ARGV[1]) then
	return {0, current, redis.call("TTL", KEYS[1])}
end
current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[2])
end
return {1, current, redis.call("TTL", KEYS[1])}
`)

// RateLimitConfig configures a fixed-window limiter
type RateLimitConfig struct {
	Name     string
	Requests int
	Window   time.Duration
	KeyFunc  func(*gin.Context) string
}

// RateLimiter counts requests per key in Redis, or in memory when no
// Redis client is configured
type RateLimiter struct {
	config RateLimitConfig
	redis  *redis.Client
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	count   int
	resetAt time.Time
}

// NewRateLimiter creates a rate limiter. redisClient may be nil.
func NewRateLimiter(config RateLimitConfig, redisClient *redis.Client, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Name == "" {
		config.Name = "default"
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	if config.KeyFunc == nil {
		config.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	return &RateLimiter{
		config:  config,
		redis:   redisClient,
		logger:  logger,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// Middleware rejects requests over the limit with 429.
// Limiter failures let the request through.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.config.Requests <= 0 {
			c.Next()
			return
		}

		key := rl.config.KeyFunc(c)
		allowed, count, resetAt, err := rl.Allow(c.Request.Context(), key)
		if err != nil {
			rl.logger.Error("Rate limit check failed", zap.Error(err), zap.String("key", key))
			c.Next()
			return
		}

		remaining := rl.config.Requests - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header(HeaderRateLimit, strconv.Itoa(rl.config.Requests))
		c.Header(HeaderRateRemaining, strconv.Itoa(remaining))
		c.Header(HeaderRateReset, strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			retryAfter := int(resetAt.Sub(rl.now()).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "Too many requests, please try again later",
				"retryAfter": retryAfter,
			})
			return
		}

		c.Next()
	}
}

// Allow records one request for key and reports whether it is within the limit
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	if rl.redis != nil {
		return rl.allowRedis(ctx, key)
	}
	allowed, count, resetAt := rl.allowLocal(key)
	return allowed, count, resetAt, nil
}

func (rl *RateLimiter) allowRedis(ctx context.Context, key string) (bool, int, time.Time, error) {
	redisKey := fmt.Sprintf("ratelimit:%s:%s", rl.config.Name, key)
	windowSeconds := int(rl.config.Window.Seconds())
	if windowSeconds < 1 {
		windowSeconds = 1
	}

	values, err := fixedWindow.Run(ctx, rl.redis, []string{redisKey}, rl.config.Requests, windowSeconds).Int64Slice()
	if err != nil {
		return false, 0, time.Time{}, err
	}
	if len(values) != 3 {
		return false, 0, time.Time{}, fmt.Errorf("unexpected rate limit response: %v", values)
	}

	ttl := values[2]
	if ttl < 0 {
		ttl = int64(windowSeconds)
	}
	return values[0] == 1, int(values[1]), rl.now().Add(time.Duration(ttl) * time.Second), nil
}

func (rl *RateLimiter) allowLocal(key string) (bool, int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if len(rl.windows) > 1000 {
		for k, w := range rl.windows {
			if !now.Before(w.resetAt) {
				delete(rl.windows, k)
			}
		}
	}

	w, ok := rl.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(rl.config.Window)}
		rl.windows[key] = w
	}
	if w.count >= rl.config.Requests {
		return false, w.count, w.resetAt
	}
	w.count++
	return true, w.count, w.resetAt
}
