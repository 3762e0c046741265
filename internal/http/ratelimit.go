package http

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Per-IP request caps over a fixed one-minute window. Structured queries get
// a tighter cap than cheap reads: a POST body can force a full snapshot scan,
// a GET on /health or /schema cannot.
const (
	readRequestsPerMinute  = 120
	queryRequestsPerMinute = 30

	limiterWindow        = time.Minute
	limiterCleanupEvery  = 2 * time.Minute
	limiterEntryStaleFor = 5 * time.Minute
)

// rateLimiter throttles clients per IP address and request class.
type rateLimiter struct {
	mu           sync.Mutex
	windows      map[string]*requestWindow
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type requestWindow struct {
	start    time.Time
	requests int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		windows:     make(map[string]*requestWindow),
		stopCleanup: make(chan struct{}),
	}
	go rl.runCleanup()
	return rl
}

func (rl *rateLimiter) runCleanup() {
	ticker := time.NewTicker(limiterCleanupEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.dropStaleWindows()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *rateLimiter) dropStaleWindows() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-limiterEntryStaleFor)
	for key, w := range rl.windows {
		if w.start.Before(cutoff) {
			delete(rl.windows, key)
		}
	}
}

// stop shuts down the cleanup goroutine.
func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

// allow reports whether a request from clientIP fits under limit requests per
// window. Read and query traffic are counted separately, keyed by their limit.
func (rl *rateLimiter) allow(clientIP string, limit int, metrics *securityMetrics) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	key := clientIP + ":" + strconv.Itoa(limit)
	now := time.Now()

	w, ok := rl.windows[key]
	if !ok || now.Sub(w.start) >= limiterWindow {
		rl.windows[key] = &requestWindow{start: now, requests: 1}
		return true
	}

	w.requests++
	if w.requests > limit {
		if metrics != nil {
			atomic.AddInt64(&metrics.rateLimitHits, 1)
		}
		return false
	}
	return true
}
