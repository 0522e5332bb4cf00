package safety

import (
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	limiter := NewRateLimiter(2)
	base := time.Unix(100, 0).UTC()

	if !limiter.Allow(base) {
		t.Fatal("first event should pass")
	}
	if !limiter.Allow(base.Add(100 * time.Millisecond)) {
		t.Fatal("second event should pass")
	}
	if limiter.Allow(base.Add(200 * time.Millisecond)) {
		t.Fatal("third event in same second should be blocked")
	}
	if !limiter.Allow(base.Add(1200 * time.Millisecond)) {
		t.Fatal("window should reset on next second")
	}
}

func TestKeyedRateLimiterIsolatesKeys(t *testing.T) {
	limiter := NewKeyedRateLimiter(1)
	base := time.Unix(1000, 0).UTC()

	if !limiter.Allow("10.0.0.1", base) {
		t.Fatal("first request from client a should pass")
	}
	if limiter.Allow("10.0.0.1", base) {
		t.Fatal("second request from client a should be blocked")
	}
	if !limiter.Allow("10.0.0.2", base) {
		t.Fatal("client b has its own budget")
	}
}

func TestKeyedRateLimiterSweepsIdleKeys(t *testing.T) {
	limiter := NewKeyedRateLimiter(5)
	base := time.Unix(1000, 0).UTC()

	limiter.Allow("a", base)
	limiter.Allow("b", base)
	if limiter.Len() != 2 {
		t.Fatalf("expected 2 keys, got %d", limiter.Len())
	}

	limiter.Allow("c", base.Add(2*time.Minute))
	if limiter.Len() != 1 {
		t.Fatalf("expected idle keys swept, got %d", limiter.Len())
	}
}
