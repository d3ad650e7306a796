package retry_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrecipes/harvester/internal/retry"
)

func TestDelayBounds(t *testing.T) {
	t.Parallel()

	base := time.Second
	rng := rand.New(rand.NewSource(42))

	for attempt := 1; attempt <= 5; attempt++ {
		lower := time.Duration(float64(base) * float64(int64(1)<<(attempt-1)))
		upper := time.Duration(float64(lower) * 1.5)

		for range 100 {
			jitter := rng.Float64() * 0.5
			delay := retry.Delay(base, attempt, jitter)

			assert.GreaterOrEqual(t, delay, lower, "attempt %d", attempt)
			assert.Less(t, delay, upper, "attempt %d", attempt)
		}
	}
}

func TestDelayDoubles(t *testing.T) {
	t.Parallel()

	assert.Equal(t, time.Second, retry.Delay(time.Second, 1, 0))
	assert.Equal(t, 2*time.Second, retry.Delay(time.Second, 2, 0))
	assert.Equal(t, 4*time.Second, retry.Delay(time.Second, 3, 0))
	assert.Equal(t, 1500*time.Millisecond, retry.Delay(time.Second, 1, 0.5))
}

func TestExecuteSucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()

	executor := retry.NewExecutor(nil, rand.New(rand.NewSource(1)))
	policy := retry.Policy{RetryCount: 3, BaseDelay: time.Millisecond}

	attempts := 0
	err := executor.Execute(context.Background(), policy, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return retry.Transient(errors.New("flaky"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestExecutePermanentShortCircuits(t *testing.T) {
	t.Parallel()

	executor := retry.NewExecutor(nil, rand.New(rand.NewSource(1)))
	policy := retry.Policy{RetryCount: 5, BaseDelay: time.Millisecond}

	cause := errors.New("malformed response")
	attempts := 0
	err := executor.Execute(context.Background(), policy, func(context.Context) error {
		attempts++
		return retry.Permanent(cause)
	})

	assert.Equal(t, 1, attempts, "permanent failures must not be retried")

	var rerr *retry.Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, retry.ClassPermanent, rerr.Class)
	assert.Equal(t, retry.CategoryValidation, rerr.Category)
	assert.Equal(t, 1, rerr.Attempts)
	assert.ErrorIs(t, err, cause)
}

func TestExecuteExhaustsRetries(t *testing.T) {
	t.Parallel()

	executor := retry.NewExecutor(nil, rand.New(rand.NewSource(1)))
	policy := retry.Policy{RetryCount: 2, BaseDelay: time.Millisecond}

	attempts := 0
	err := executor.Execute(context.Background(), policy, func(context.Context) error {
		attempts++
		return retry.Transient(errors.New("still down"))
	})

	assert.Equal(t, 3, attempts, "initial attempt plus two retries")

	var rerr *retry.Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, retry.ClassTransient, rerr.Class)
	assert.Equal(t, 3, rerr.Attempts)
}

func TestExecuteHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	executor := retry.NewExecutor(nil, rand.New(rand.NewSource(1)))
	policy := retry.Policy{RetryCount: 10, BaseDelay: 50 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := executor.Execute(ctx, policy, func(context.Context) error {
		attempts++
		cancel()
		return retry.Transient(errors.New("flaky"))
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts, "cancellation during backoff must stop retrying")
}

func TestExecuteZeroRetryPolicy(t *testing.T) {
	t.Parallel()

	executor := retry.NewExecutor(nil, rand.New(rand.NewSource(1)))
	policy := retry.Policy{RetryCount: 0, BaseDelay: time.Millisecond}

	attempts := 0
	err := executor.Execute(context.Background(), policy, func(context.Context) error {
		attempts++
		return retry.Transient(errors.New("flaky"))
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}
