package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Limiter bounds the rate of an action identified by a key.
type Limiter interface {
	Allow(ctx context.Context, key string, max int, window time.Duration) bool
}

// RedisLimiter counts actions in fixed windows using INCR + EXPIRE.
// Redis failures fail open: a broken limiter must not take the public
// endpoints down with it.
type RedisLimiter struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisLimiter constructs a limiter.
func NewRedisLimiter(client *redis.Client, logger *zap.Logger) *RedisLimiter {
	return &RedisLimiter{client: client, logger: logger}
}

// Allow reports whether the action under key is within its budget.
func (l *RedisLimiter) Allow(ctx context.Context, key string, max int, window time.Duration) bool {
	if l == nil || l.client == nil || max <= 0 {
		return true
	}

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		l.logger.Warn("rate limiter unavailable", zap.Error(err))
		return true
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, window).Err(); err != nil {
			l.logger.Warn("rate limiter expire failed", zap.String("key", key), zap.Error(err))
		}
	}
	return count <= int64(max)
}

// NoopLimiter always allows; used when Redis is not configured.
type NoopLimiter struct{}

// Allow always reports true.
func (NoopLimiter) Allow(context.Context, string, int, time.Duration) bool {
	return true
}
