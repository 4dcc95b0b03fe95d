package ratelimiter

import (
	"context"
	"sync"
	"time"
)

// TokenBucket implements the RateLimiter interface using the token bucket algorithm.
// It allows for bursts of requests up to the bucket's capacity.
type TokenBucket struct {
	rate          float64 // tokens per second
	capacity      float64
	tokens        float64
	lastTokenTime time.Time
	now           func() time.Time
	mutex         sync.Mutex
}

var _ RateLimiter = (*TokenBucket)(nil)

// NewTokenBucket creates a full bucket holding capacity tokens refilled at rate tokens per second.
func NewTokenBucket(rate float64, capacity int) *TokenBucket {
	if capacity < 1 {
		capacity = 1
	}
	return &TokenBucket{
		rate:          rate,
		capacity:      float64(capacity),
		tokens:        float64(capacity),
		lastTokenTime: time.Now(),
		now:           time.Now,
	}
}

// refill must be called with the mutex held.
func (tb *TokenBucket) refill() {
	now := tb.now()
	if elapsed := now.Sub(tb.lastTokenTime); elapsed > 0 {
		tb.tokens += elapsed.Seconds() * tb.rate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastTokenTime = now
	}
}

// Allow consumes a token if one is available.
func (tb *TokenBucket) Allow() bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill()
	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// reserve consumes a token if available, otherwise reports how long until one is.
func (tb *TokenBucket) reserve() (time.Duration, bool) {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill()
	if tb.tokens >= 1 {
		tb.tokens--
		return 0, true
	}
	if tb.rate <= 0 {
		return time.Second, false
	}
	missing := 1 - tb.tokens
	return time.Duration(missing / tb.rate * float64(time.Second)), false
}

// Wait blocks until a token is consumed or ctx is done.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		delay, ok := tb.reserve()
		if ok {
			return nil
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
