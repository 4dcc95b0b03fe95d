package ratelimiter

import "context"

// RateLimiter decides whether a call may proceed now.
type RateLimiter interface {
	// Allow reports whether a call may proceed now, consuming a permit if so.
	Allow() bool
	// Wait blocks until a permit is available or ctx is done.
	Wait(ctx context.Context) error
}
