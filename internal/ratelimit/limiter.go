// Package ratelimit throttles the store API per client. Every edit in a
// client triggers a whole-collection mirror write, so the defaults allow
// bursts while typing and refill quickly.
package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config defines the rate limiting configuration.
type Config struct {
	RPS             float64       // Sustained requests per second per client
	Burst           int           // Burst size per client
	CleanupInterval time.Duration // Idle time after which a client's bucket is dropped
}

// DefaultConfig is used when RATE_LIMIT_* is unset.
var DefaultConfig = Config{
	RPS:             20,
	Burst:           40,
	CleanupInterval: time.Hour,
}

// Decision is the outcome of one Take.
type Decision struct {
	Allowed bool
	// Remaining is the whole number of requests left in the bucket.
	Remaining int
	// RetryAfter is how long until the next request would pass. Zero when
	// Allowed.
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, at least 1, for
// the Retry-After header.
func (d Decision) RetryAfterSeconds() int {
	return max(1, int(math.Ceil(d.RetryAfter.Seconds())))
}

type bucket struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// RateLimiter keeps one token bucket per client key.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	config  Config
	now     func() time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewRateLimiter creates a limiter and starts its idle-bucket cleanup loop.
// Call Stop to end it.
func NewRateLimiter(config Config) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		config:  config,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}

	rl.wg.Add(1)
	go rl.cleanupLoop()

	return rl
}

// Allow reports whether one request from clientID may proceed.
func (rl *RateLimiter) Allow(clientID string) bool {
	return rl.Take(clientID).Allowed
}

// Take spends one token for clientID if available. A refused request spends
// nothing.
func (rl *RateLimiter) Take(clientID string) Decision {
	now := rl.now()
	lim := rl.limiterFor(clientID, now)

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		// Burst of zero: nothing ever passes.
		return Decision{RetryAfter: rl.config.CleanupInterval}
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{RetryAfter: delay}
	}
	return Decision{Allowed: true, Remaining: max(0, int(lim.TokensAt(now)))}
}

func (rl *RateLimiter) limiterFor(clientID string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if b, ok := rl.buckets[clientID]; ok {
		b.lastUsed = now
		return b.limiter
	}
	b := &bucket{
		limiter:  rate.NewLimiter(rate.Limit(rl.config.RPS), rl.config.Burst),
		lastUsed: now,
	}
	rl.buckets[clientID] = b
	return b.limiter
}

// Cleanup drops buckets idle for longer than CleanupInterval.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.config.CleanupInterval)
	for clientID, b := range rl.buckets {
		if b.lastUsed.Before(cutoff) {
			delete(rl.buckets, clientID)
		}
	}
}

func (rl *RateLimiter) cleanupLoop() {
	defer rl.wg.Done()

	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.Cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// Stop ends the cleanup loop and waits for it.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
	rl.wg.Wait()
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}
