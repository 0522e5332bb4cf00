package safety

import (
	"sync"
	"time"
)

// RateLimiter enforces a max events-per-second budget.
type RateLimiter struct {
	mu        sync.Mutex
	limit     int
	windowSec int64
	count     int
}

// NewRateLimiter creates a limiter with a per-second cap.
func NewRateLimiter(limit int) *RateLimiter {
	if limit < 1 {
		limit = 1
	}
	return &RateLimiter{limit: limit}
}

// Allow returns true if one more event can be emitted in the current second.
func (l *RateLimiter) Allow(now time.Time) bool {
	sec := now.UTC().Unix()
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.windowSec != sec {
		l.windowSec = sec
		l.count = 0
	}
	if l.count >= l.limit {
		return false
	}
	l.count++
	return true
}

func (l *RateLimiter) idleSince(sec int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.windowSec < sec
}

// KeyedRateLimiter keeps one per-second budget for every key, e.g. a client address.
type KeyedRateLimiter struct {
	mu       sync.Mutex
	limit    int
	limiters map[string]*RateLimiter
	swept    int64
}

// NewKeyedRateLimiter creates a keyed limiter with a per-key per-second cap.
func NewKeyedRateLimiter(limit int) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		limit:    limit,
		limiters: map[string]*RateLimiter{},
	}
}

// Allow reports whether key may make one more request in the current second.
// Limiters idle for more than a minute are dropped.
func (k *KeyedRateLimiter) Allow(key string, now time.Time) bool {
	sec := now.UTC().Unix()
	k.mu.Lock()
	if sec-k.swept >= 60 {
		for name, limiter := range k.limiters {
			if limiter.idleSince(sec - 60) {
				delete(k.limiters, name)
			}
		}
		k.swept = sec
	}
	limiter, ok := k.limiters[key]
	if !ok {
		limiter = NewRateLimiter(k.limit)
		k.limiters[key] = limiter
	}
	k.mu.Unlock()
	return limiter.Allow(now)
}

// Len returns the number of tracked keys.
func (k *KeyedRateLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.limiters)
}
