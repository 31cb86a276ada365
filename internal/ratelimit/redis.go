package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mdbin/mdbin/internal/settings"
	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed one-minute window counter shared across instances.
type RedisLimiter struct {
	rdb       *redis.Client
	prefix    string
	perMinute int64
}

// RedisOption configures a RedisLimiter.
type RedisOption func(*RedisLimiter)

// WithPrefix overrides the redis key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(l *RedisLimiter) { l.prefix = strings.Trim(prefix, ":") }
}

// NewRedisLimiter constructs a limiter allowing perMinute actions per key.
func NewRedisLimiter(rdb *redis.Client, perMinute int64) *RedisLimiter {
	if perMinute <= 0 {
		perMinute = settings.DefaultRateLimitPerMinute
	}
	return &RedisLimiter{
		rdb:       rdb,
		prefix:    "mdbin:ratelimit",
		perMinute: perMinute,
	}
}

// Allow increments the counter for the current minute bucket and reports
// whether the key stayed within the limit.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l == nil || l.rdb == nil {
		return false, errors.New("ratelimit: redis client not initialized")
	}

	limit := settings.DBConfigInt(settings.RateLimitPerMinuteKey, l.perMinute)
	if limit <= 0 {
		limit = l.perMinute
	}

	bucket := time.Now().UTC().Format("200601021504")
	redisKey := l.prefix + ":" + key + ":" + bucket

	pipe := l.rdb.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, 2*time.Minute)
	if _, errExec := pipe.Exec(ctx); errExec != nil {
		return false, errExec
	}

	return incr.Val() <= limit, nil
}
