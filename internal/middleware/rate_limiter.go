package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/yamdb/yamdb-api/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimiterConfig defines rate limiting rules
type RateLimiterConfig struct {
	MaxRequests int           // Maximum requests allowed in the window
	Window      time.Duration // Time window (e.g., 1 minute)
	BlockTime   time.Duration // How long to block after exceeding limit
}

// Limiter decides whether the caller identified by key may proceed.
type Limiter interface {
	CheckLimit(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// RedisRateLimiter counts requests per key in fixed Redis windows, so limits
// hold across server instances.
type RedisRateLimiter struct {
	redis  *redis.Client
	config RateLimiterConfig
}

func NewRedisRateLimiter(redisClient *redis.Client, config RateLimiterConfig) *RedisRateLimiter {
	return &RedisRateLimiter{redis: redisClient, config: config}
}

// CheckLimit increments the key's counter. Exceeding the limit blocks the
// key for BlockTime, or until the window ends when BlockTime is zero.
func (rl *RedisRateLimiter) CheckLimit(ctx context.Context, key string) (bool, time.Duration, error) {
	blockKey := fmt.Sprintf("ratelimit:block:%s", key)
	if ttl, err := rl.redis.TTL(ctx, blockKey).Result(); err != nil {
		return false, 0, err
	} else if ttl > 0 {
		return false, ttl, nil
	}

	counterKey := fmt.Sprintf("ratelimit:%s", key)
	count, err := rl.redis.Incr(ctx, counterKey).Result()
	if err != nil {
		return false, 0, err
	}
	if count == 1 {
		if err := rl.redis.Expire(ctx, counterKey, rl.config.Window).Err(); err != nil {
			return false, 0, err
		}
	}

	if count <= int64(rl.config.MaxRequests) {
		return true, 0, nil
	}

	if rl.config.BlockTime > 0 {
		if err := rl.redis.Set(ctx, blockKey, 1, rl.config.BlockTime).Err(); err != nil {
			return false, 0, err
		}
		return false, rl.config.BlockTime, nil
	}

	ttl, err := rl.redis.TTL(ctx, counterKey).Result()
	if err != nil || ttl <= 0 {
		ttl = rl.config.Window
	}
	return false, ttl, nil
}

// MemoryRateLimiter keeps one token bucket per key in process memory. Used
// when no Redis is configured. A bucket idle for a whole window is full again,
// so it is dropped and recreated on the key's next request.
type MemoryRateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewMemoryRateLimiter(config RateLimiterConfig) *MemoryRateLimiter {
	burst := config.MaxRequests
	if burst < 1 {
		burst = 1
	}
	window := config.Window
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryRateLimiter{
		buckets:   make(map[string]*bucket),
		limit:     rate.Limit(float64(burst) / window.Seconds()),
		burst:     burst,
		idle:      window,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (m *MemoryRateLimiter) CheckLimit(_ context.Context, key string) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if now.Sub(m.lastSweep) >= m.idle {
		m.sweep(now)
	}

	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.buckets[key] = b
	}
	b.lastSeen = now

	r := b.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay, nil
	}
	return true, 0, nil
}

// sweep drops buckets idle for at least one window. Callers hold m.mu.
func (m *MemoryRateLimiter) sweep(now time.Time) {
	for key, b := range m.buckets {
		if now.Sub(b.lastSeen) >= m.idle {
			delete(m.buckets, key)
		}
	}
	m.lastSweep = now
}

// Len reports how many keys currently hold a bucket.
func (m *MemoryRateLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}

// RateLimit returns a middleware that limits callers per client IP within scope.
// Limiter failures let the request through.
func RateLimit(l Limiter, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := scope + ":" + c.ClientIP()

		allowed, retryAfter, err := l.CheckLimit(c.Request.Context(), key)
		if err != nil {
			logger.Log.Warn("Rate limiter unavailable",
				zap.String("key", key),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			c.Header("Retry-After", fmt.Sprintf("%d", seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests. Please try again later.",
				"retry_after": seconds,
			})
			return
		}

		c.Next()
	}
}
