package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	"rota-claims/internal/infra/telemetry"
	"rota-claims/internal/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a windowed counter keyed by client IP, shared across
// instances through Redis. The counter resets when the key expires. Redis
// being down degrades to fail-open: admission control protects the claim
// path, it must never become a second point of failure for it.
type RateLimiter struct {
	client *redis.Client
	cfg    config.RateLimitConfig
}

func NewRateLimiter(client *redis.Client, cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{client: client, cfg: cfg}
}

func (l *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("rl:%s", c.ClientIP())
		ctx := c.Request.Context()

		// INCR and EXPIRE go in one MULTI so the counter can never outlive
		// its window: a key without a TTL would reject this client forever.
		pipe := l.client.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, l.cfg.Window)
		if _, err := pipe.Exec(ctx); err != nil {
			slog.Warn("rate limiter unavailable, allowing request", "error", err.Error())
			c.Next()
			return
		}
		count := incr.Val()

		if count > int64(l.cfg.MaxRequests) {
			telemetry.RateLimitRejects.Inc()
			c.Header("Retry-After", fmt.Sprintf("%d", int(l.cfg.Window.Seconds())))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
