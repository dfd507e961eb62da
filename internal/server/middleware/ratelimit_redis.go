package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/convoke-ai/convoke/internal/store"
	"github.com/convoke-ai/convoke/pkg/api"
)

// redisCounter is the slice of the Redis API the limiter needs, satisfied
// by *redis.Client.
type redisCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisRateLimiter enforces a fixed window per client IP across all gateway
// instances sharing the Redis. Each window is one counter key whose expiry
// is set once, when the window opens; re-arming it on later requests would
// turn the window into a lifetime counter.
type RedisRateLimiter struct {
	client   redisCounter
	requests int
	window   time.Duration
	logger   *zap.Logger
}

func NewRedisRateLimiter(client redisCounter, requests int, window time.Duration, logger *zap.Logger) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:   client,
		requests: requests,
		window:   window,
		logger:   logger,
	}
}

// allow increments the client's window counter and reports whether the
// request fits. Redis being down fails open: the gateway must not depend
// on the limiter's backing store to serve traffic.
func (rl *RedisRateLimiter) allow(ctx context.Context, ip string) bool {
	key := "ratelimit:" + ip

	count, err := rl.client.Incr(ctx, key).Result()
	if err != nil {
		rl.logger.Warn("rate limit check skipped", zap.Error(err))
		return true
	}

	if count == 1 {
		if err := rl.client.Expire(ctx, key, rl.window).Err(); err != nil {
			rl.logger.Warn("rate limit window not armed", zap.Error(err))
		}
	}

	return count <= int64(rl.requests)
}

func (rl *RedisRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !rl.allow(c.Request.Context(), ip) {
			rl.logger.Warn("rate limit exceeded",
				zap.String("ip", ip),
				zap.String("path", c.Request.URL.Path),
			)
			err := api.Errorf(api.KindRateLimited, "client %s throttled", ip)
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				api.NewErrorResponse(err, store.RequestIDFrom(c.Request.Context())))
			return
		}
		c.Next()
	}
}
