package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestLimiterFixedWindow(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewMemoryStore(WithClock(clock.Now))
	limiter := New(store, 5, time.Minute)

	for i := 1; i <= 5; i++ {
		d, err := limiter.Allow(ctx, "203.0.113.7")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d", i)
		assert.Equal(t, Counting, d.State)
		assert.Equal(t, 5-i, d.Remaining)
		clock.Advance(5 * time.Second)
	}

	d, err := limiter.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, Blocked, d.State)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, 35*time.Second, d.RetryAfter(clock.Now()))

	state, count := store.State("203.0.113.7", 5)
	assert.Equal(t, Blocked, state)
	assert.Equal(t, 6, count)

	// Other clients are unaffected
	d, err = limiter.Allow(ctx, "198.51.100.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	clock.Advance(35 * time.Second)
	state, _ = store.State("203.0.113.7", 5)
	assert.Equal(t, Idle, state)

	d, err = limiter.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Count)
	assert.Equal(t, clock.Now().Add(time.Minute), d.ResetAt)
}

func TestLimiterReset(t *testing.T) {
	ctx := context.Background()
	limiter := New(NewMemoryStore(), 1, time.Minute)

	d, _ := limiter.Allow(ctx, "k")
	assert.True(t, d.Allowed)
	d, _ = limiter.Allow(ctx, "k")
	assert.False(t, d.Allowed)

	require.NoError(t, limiter.Reset(ctx, "k"))
	d, _ = limiter.Allow(ctx, "k")
	assert.True(t, d.Allowed)
}

func TestMemoryStoreConcurrentHits(t *testing.T) {
	ctx := context.Background()
	limiter := New(NewMemoryStore(), 5, time.Minute)

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := limiter.Allow(ctx, "203.0.113.7")
			if err == nil && d.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), allowed.Load())
}

func TestMemoryStoreSweep(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewMemoryStore(WithClock(clock.Now))

	_, _, _ = store.Incr(ctx, "a", time.Minute)
	_, _, _ = store.Incr(ctx, "b", 2*time.Minute)
	clock.Advance(90 * time.Second)
	store.Sweep()

	assert.Equal(t, 1, store.Len())
	state, count := store.State("b", 5)
	assert.Equal(t, Counting, state)
	assert.Equal(t, 1, count)
}

func TestMemoryStoreJanitorStops(t *testing.T) {
	store := NewMemoryStore()
	store.StartJanitor(time.Millisecond)
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "counting", Counting.String())
	assert.Equal(t, "blocked", Blocked.String())
}
