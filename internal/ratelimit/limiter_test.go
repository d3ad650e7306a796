package ratelimit_test

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrecipes/harvester/internal/ratelimit"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
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

func TestTryAcquireExhaustsBurst(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	limiter := ratelimit.New(ratelimit.Config{}, nil, ratelimit.WithClock(clock.Now))
	limiter.Configure("provider-1", ratelimit.PerMinute(60, 5))

	for i := range 5 {
		assert.True(t, limiter.TryAcquire("provider-1", 1), "acquisition %d within burst must succeed", i+1)
	}

	assert.False(t, limiter.TryAcquire("provider-1", 1), "sixth acquisition must fail")
}

func TestRefillAfterOneSecond(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	limiter := ratelimit.New(ratelimit.Config{}, nil, ratelimit.WithClock(clock.Now))
	limiter.Configure("provider-1", ratelimit.PerMinute(60, 5))

	for range 5 {
		require.True(t, limiter.TryAcquire("provider-1", 1))
	}
	require.False(t, limiter.TryAcquire("provider-1", 1))

	// 60 rpm refills one token per second.
	clock.Advance(time.Second)
	assert.True(t, limiter.TryAcquire("provider-1", 1))
	assert.False(t, limiter.TryAcquire("provider-1", 1))
}

func TestRefillCapsAtBurst(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	limiter := ratelimit.New(ratelimit.Config{}, nil, ratelimit.WithClock(clock.Now))
	limiter.Configure("provider-1", ratelimit.PerMinute(600, 3))

	for range 3 {
		require.True(t, limiter.TryAcquire("provider-1", 1))
	}

	clock.Advance(time.Hour)

	for i := range 3 {
		assert.True(t, limiter.TryAcquire("provider-1", 1), "acquisition %d after refill", i+1)
	}
	assert.False(t, limiter.TryAcquire("provider-1", 1), "refill must cap at burst capacity")
}

func TestGetStatus(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	limiter := ratelimit.New(ratelimit.Config{}, nil, ratelimit.WithClock(clock.Now))
	limiter.Configure("provider-1", ratelimit.PerMinute(60, 5))

	status := limiter.GetStatus("provider-1")
	assert.Equal(t, 5, status.Remaining)
	assert.False(t, status.Limited)

	for range 5 {
		require.True(t, limiter.TryAcquire("provider-1", 1))
	}

	status = limiter.GetStatus("provider-1")
	assert.Equal(t, 0, status.Remaining)
	assert.True(t, status.Limited)
	assert.InDelta(t, float64(time.Second), float64(status.ResetAfter), float64(10*time.Millisecond),
		"one token refills in one second at 60 rpm")
}

func TestReset(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	limiter := ratelimit.New(ratelimit.Config{}, nil, ratelimit.WithClock(clock.Now))
	limiter.Configure("provider-1", ratelimit.PerMinute(60, 5))

	for range 5 {
		require.True(t, limiter.TryAcquire("provider-1", 1))
	}

	limiter.Reset("provider-1")

	status := limiter.GetStatus("provider-1")
	assert.Equal(t, 5, status.Remaining)
}

func TestBucketsAreIndependent(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	limiter := ratelimit.New(ratelimit.Config{}, nil, ratelimit.WithClock(clock.Now))
	limiter.Configure("provider-1", ratelimit.PerMinute(60, 1))
	limiter.Configure("provider-2", ratelimit.PerMinute(60, 5))

	require.True(t, limiter.TryAcquire("provider-1", 1))
	require.False(t, limiter.TryAcquire("provider-1", 1))

	assert.True(t, limiter.TryAcquire("provider-2", 1), "draining one bucket must not affect another")
}

func TestConfigureReplacesBucket(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	limiter := ratelimit.New(ratelimit.Config{}, nil, ratelimit.WithClock(clock.Now))
	limiter.Configure("provider-1", ratelimit.PerMinute(60, 1))

	require.True(t, limiter.TryAcquire("provider-1", 1))
	require.False(t, limiter.TryAcquire("provider-1", 1))

	limiter.Configure("provider-1", ratelimit.PerMinute(60, 3))

	for i := range 3 {
		assert.True(t, limiter.TryAcquire("provider-1", 1), "acquisition %d under new limits", i+1)
	}
}

func TestTokenCountStaysBoundedUnderRandomizedUse(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	limiter := ratelimit.New(ratelimit.Config{}, nil, ratelimit.WithClock(clock.Now))
	limiter.Configure("provider-1", ratelimit.PerMinute(60, 5))

	rng := rand.New(rand.NewSource(11))
	for i := range 10000 {
		switch rng.Intn(3) {
		case 0:
			limiter.TryAcquire("provider-1", 1+rng.Intn(3))
		case 1:
			clock.Advance(time.Duration(rng.Intn(50)) * time.Millisecond)
		case 2:
			clock.Advance(time.Duration(rng.Intn(3000)) * time.Millisecond)
		}

		remaining := limiter.GetStatus("provider-1").Remaining
		require.GreaterOrEqual(t, remaining, 0, "step %d: token count went negative", i)
		require.LessOrEqual(t, remaining, 5, "step %d: token count exceeded capacity", i)
	}
}

func TestConcurrentAcquiresNeverOversubscribe(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	limiter := ratelimit.New(ratelimit.Config{}, nil, ratelimit.WithClock(clock.Now))
	// Refill is negligible and the clock never advances, so the bucket
	// grants exactly its capacity no matter how the goroutines race.
	limiter.Configure("provider-1", ratelimit.Config{MaxTokens: 5, RefillPerSecond: 0.001})

	var acquired atomic.Int64
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				if limiter.TryAcquire("provider-1", 1) {
					acquired.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(5), acquired.Load())
	assert.GreaterOrEqual(t, limiter.GetStatus("provider-1").Remaining, 0)
}

func TestWaitBlocksUntilToken(t *testing.T) {
	t.Parallel()

	limiter := ratelimit.New(ratelimit.Config{}, nil)
	limiter.Configure("provider-1", ratelimit.Config{MaxTokens: 1, RefillPerSecond: 50})

	require.NoError(t, limiter.Wait(context.Background(), "provider-1"))

	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background(), "provider-1"))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond,
		"second Wait must block until the bucket refills")
}

func TestWaitHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	limiter := ratelimit.New(ratelimit.Config{}, nil)
	limiter.Configure("provider-1", ratelimit.Config{MaxTokens: 1, RefillPerSecond: 0.001})

	require.True(t, limiter.TryAcquire("provider-1", 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx, "provider-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
