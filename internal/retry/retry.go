package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/openrecipes/harvester/internal/logger"
)

const (
	// DefaultRetryCount is the default number of retries after the
	// initial attempt.
	DefaultRetryCount = 3
	// DefaultBaseDelay is the default backoff base delay.
	DefaultBaseDelay = 1 * time.Second
	// backoffMultiplier doubles the delay each attempt.
	backoffMultiplier = 2.0
	// maxJitterFraction bounds the uniform jitter drawn per attempt.
	maxJitterFraction = 0.5
)

// Policy configures retry behavior for one operation.
type Policy struct {
	// RetryCount is the number of retries after the initial attempt.
	RetryCount int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
}

// DefaultPolicy returns the default retry policy.
func DefaultPolicy() Policy {
	return Policy{RetryCount: DefaultRetryCount, BaseDelay: DefaultBaseDelay}
}

// Error is the terminal error of an exhausted or permanent operation,
// carrying the original classification.
type Error struct {
	Err      error
	Class    Class
	Category string
	Attempts int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failure (%s) after %d attempt(s): %v", e.Class, e.Category, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Executor runs operations with bounded retries. The randomness source is
// injected so jitter is deterministic in tests.
type Executor struct {
	log logger.Logger
	rng *rand.Rand
	mu  sync.Mutex
}

// NewExecutor creates an executor. A nil rng falls back to a time-seeded
// source.
func NewExecutor(log logger.Logger, rng *rand.Rand) *Executor {
	if log == nil {
		log = logger.NewNop()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Executor{log: log, rng: rng}
}

// Execute invokes op, retrying transient failures up to policy.RetryCount
// times with exponential backoff and jitter. Permanent failures and
// exhausted retries return an *Error carrying the classification.
func (e *Executor) Execute(ctx context.Context, policy Policy, op func(ctx context.Context) error) error {
	if policy.RetryCount < 0 {
		policy.RetryCount = 0
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = DefaultBaseDelay
	}

	var lastErr error
	var lastClass Class
	var lastCategory string

	for attempt := 1; attempt <= policy.RetryCount+1; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err := op(ctx)
		if err == nil {
			return nil
		}

		lastErr = err
		lastClass, lastCategory = Classify(err)

		if lastClass == ClassPermanent {
			return &Error{Err: err, Class: lastClass, Category: lastCategory, Attempts: attempt}
		}

		if attempt > policy.RetryCount {
			break
		}

		delay := Delay(policy.BaseDelay, attempt, e.jitter())
		e.log.Debug("retrying after transient failure",
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.String("category", lastCategory),
			logger.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return &Error{Err: lastErr, Class: lastClass, Category: lastCategory, Attempts: policy.RetryCount + 1}
}

// Delay computes the backoff delay for the given attempt (1-based):
// base * 2^(attempt-1) * (1 + jitter).
func Delay(base time.Duration, attempt int, jitter float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	backoff := float64(base) * math.Pow(backoffMultiplier, float64(attempt-1))
	return time.Duration(backoff * (1 + jitter))
}

// jitter draws a uniform value in [0, maxJitterFraction).
func (e *Executor) jitter() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64() * maxJitterFraction
}
