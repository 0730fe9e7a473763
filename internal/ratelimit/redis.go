package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a fixed-window limiter backed by a shared Redis instance.
// Counters live under one key per caller per window and expire on their
// own, so there is nothing to prune.
type Redis struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewRedis creates a Redis-backed limiter. If limit <= 0, Allow always
// returns true.
func NewRedis(client *redis.Client, limit int, window time.Duration) *Redis {
	if window <= 0 {
		window = time.Minute
	}
	return &Redis{
		client: client,
		limit:  limit,
		window: window,
		prefix: "dbmcp:ratelimit",
	}
}

// Allow increments the caller's counter for the current window and checks
// it against the limit. Redis errors propagate so the caller can decide
// whether to fail open.
func (rl *Redis) Allow(ctx context.Context, key string) (bool, error) {
	if rl.limit <= 0 {
		return true, nil
	}

	bucket := time.Now().Unix() / int64(rl.window.Seconds())
	redisKey := fmt.Sprintf("%s:%s:%d", rl.prefix, key, bucket)

	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit check: %w", err)
	}
	return incr.Val() <= int64(rl.limit), nil
}
