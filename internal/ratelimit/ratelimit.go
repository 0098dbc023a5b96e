// Package ratelimit implements a fixed-window request counter keyed by
// client. It is advisory flood protection: the memory store is per process
// and forgets everything on restart. The Redis store shares counters
// between instances.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Message is the fixed text returned to blocked clients
const Message = "Too many requests, please try again later."

// State of a single key within its current window
type State int

const (
	// Idle means no requests in the current window
	Idle State = iota
	// Counting means requests were seen but the cap is not exceeded
	Counting
	// Blocked means the cap was exceeded until the window rolls over
	Blocked
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Counting:
		return "counting"
	case Blocked:
		return "blocked"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// Store counts hits per key within fixed windows
type Store interface {
	// Incr records one hit for key and returns the hit count in the current
	// window and when that window ends. A window starts on the first hit.
	Incr(ctx context.Context, key string, window time.Duration) (int, time.Time, error)
	// Reset forgets key
	Reset(ctx context.Context, key string) error
}

// Decision is the outcome of one Allow call
type Decision struct {
	Allowed   bool
	State     State
	Count     int
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long a blocked client should wait, rounded up to
// whole seconds
func (d Decision) RetryAfter(now time.Time) time.Duration {
	wait := d.ResetAt.Sub(now)
	if wait <= 0 {
		return 0
	}
	return time.Duration(math.Ceil(wait.Seconds())) * time.Second
}

// Limiter caps each key at Limit hits per Window
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
}

// New creates a limiter allowing limit hits per window for every key
func New(store Store, limit int, window time.Duration) *Limiter {
	return &Limiter{store: store, limit: limit, window: window}
}

func (l *Limiter) Limit() int {
	return l.limit
}

func (l *Limiter) Window() time.Duration {
	return l.window
}

// Allow records a hit for key and reports whether it is within the cap
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	count, resetAt, err := l.store.Incr(ctx, key, l.window)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit store: %w", err)
	}

	d := Decision{
		Allowed: count <= l.limit,
		State:   Counting,
		Count:   count,
		Limit:   l.limit,
		ResetAt: resetAt,
	}
	if !d.Allowed {
		d.State = Blocked
	}
	if remaining := l.limit - count; remaining > 0 {
		d.Remaining = remaining
	}
	return d, nil
}

// Reset clears key so its next hit starts a new window
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.store.Reset(ctx, key)
}
