// Package ratelimit bounds per-subject tool call rates. The in-memory
// limiter uses a sliding window; the Redis limiter uses fixed windows so
// several dbmcp instances can share one budget.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether a keyed caller may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Memory is a sliding-window in-process limiter.
type Memory struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	counters map[string][]time.Time
}

// NewMemory creates an in-process limiter. If limit <= 0, Allow always
// returns true.
func NewMemory(limit int, window time.Duration) *Memory {
	if window <= 0 {
		window = time.Minute
	}
	return &Memory{
		limit:    limit,
		window:   window,
		counters: make(map[string][]time.Time),
	}
}

// Allow checks whether the key is within its rate limit.
func (rl *Memory) Allow(_ context.Context, key string) (bool, error) {
	if rl.limit <= 0 {
		return true, nil
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)

	// Prune old timestamps
	timestamps := rl.counters[key]
	pruned := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			pruned = append(pruned, ts)
		}
	}

	if len(pruned) >= rl.limit {
		rl.counters[key] = pruned
		return false, nil
	}

	rl.counters[key] = append(pruned, now)
	return true, nil
}
