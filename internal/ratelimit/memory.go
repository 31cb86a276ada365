package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MemoryLimiter is an in-process token-bucket limiter with per-key buckets
// and periodic cleanup of idle entries. It is the fallback when no redis
// backend is configured; limits then apply per instance.
type MemoryLimiter struct {
	mu           sync.Mutex
	entries      map[string]*memoryEntry
	limit        rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type memoryEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewMemoryLimiter constructs a limiter allowing roughly perMinute actions
// per key per minute, with bursts up to the full minute budget.
func NewMemoryLimiter(perMinute int64) *MemoryLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &MemoryLimiter{
		entries:      make(map[string]*memoryEntry),
		limit:        rate.Limit(float64(perMinute) / 60.0),
		burst:        int(perMinute),
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
}

// Allow implements Limiter. It never returns an error.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	if l == nil {
		return true, nil
	}
	return l.bucket(key).Allow(), nil
}

func (l *MemoryLimiter) bucket(key string) *rate.Limiter {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if ent, ok := l.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(l.limit, l.burst)
	l.entries[key] = &memoryEntry{lim: lim, lastSeen: now}
	return lim
}

// Cleanup drops buckets not seen within the idle TTL.
func (l *MemoryLimiter) Cleanup() {
	cutoff := time.Now().Add(-l.idleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, ent := range l.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(l.entries, key)
		}
	}
}

// StartJanitor periodically cleans idle buckets until the context ends.
func (l *MemoryLimiter) StartJanitor(ctx context.Context) {
	if l == nil || l.cleanupEvery <= 0 {
		return
	}
	ticker := time.NewTicker(l.cleanupEvery)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Cleanup()
			}
		}
	}()
}
