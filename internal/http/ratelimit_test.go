package http

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()
	metrics := &securityMetrics{}

	for i := 0; i < queryRequestsPerMinute; i++ {
		if !rl.allow("203.0.113.5", queryRequestsPerMinute, metrics) {
			t.Fatalf("request %d denied under the cap", i+1)
		}
	}
	if rl.allow("203.0.113.5", queryRequestsPerMinute, metrics) {
		t.Fatal("request over the cap allowed")
	}
	if got := atomic.LoadInt64(&metrics.rateLimitHits); got != 1 {
		t.Fatalf("rateLimitHits = %d, want 1", got)
	}

	if !rl.allow("203.0.113.6", queryRequestsPerMinute, metrics) {
		t.Fatal("other client denied by a full window it does not own")
	}
}

func TestRateLimiterClassesCountedSeparately(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()

	for i := 0; i < queryRequestsPerMinute+1; i++ {
		rl.allow("203.0.113.5", queryRequestsPerMinute, nil)
	}
	// Exhausting the query budget must not consume the read budget.
	if !rl.allow("203.0.113.5", readRequestsPerMinute, nil) {
		t.Fatal("read request denied after query cap was hit")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()

	for i := 0; i < queryRequestsPerMinute+1; i++ {
		rl.allow("203.0.113.5", queryRequestsPerMinute, nil)
	}

	rl.mu.Lock()
	for _, w := range rl.windows {
		w.start = time.Now().Add(-limiterWindow - time.Second)
	}
	rl.mu.Unlock()

	if !rl.allow("203.0.113.5", queryRequestsPerMinute, nil) {
		t.Fatal("request denied after the window elapsed")
	}
}

func TestRateLimiterDropStaleWindows(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()

	rl.allow("203.0.113.5", queryRequestsPerMinute, nil)
	rl.mu.Lock()
	for _, w := range rl.windows {
		w.start = time.Now().Add(-limiterEntryStaleFor - time.Second)
	}
	rl.mu.Unlock()

	rl.dropStaleWindows()

	rl.mu.Lock()
	remaining := len(rl.windows)
	rl.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("windows = %d after cleanup, want 0", remaining)
	}
}
