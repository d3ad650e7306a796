// Package ratelimit provides a per-key token bucket limiter used to gate
// outbound requests to recipe providers.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/openrecipes/harvester/internal/logger"
)

const (
	// DefaultMaxTokens is the default bucket capacity.
	DefaultMaxTokens = 10
	// DefaultRefillPerSecond is the default refill rate.
	DefaultRefillPerSecond = 1.0
	// waitPollInterval caps how long Wait sleeps between acquire attempts.
	waitPollInterval = 50 * time.Millisecond
	// secondsPerMinute converts per-minute limits to per-second rates.
	secondsPerMinute = 60.0
)

// Config holds the bucket parameters for one key.
type Config struct {
	// MaxTokens is the bucket capacity.
	MaxTokens float64
	// RefillPerSecond is the continuous refill rate.
	RefillPerSecond float64
}

// PerMinute builds a Config from a requests-per-minute limit and a burst
// capacity, the shape provider configs express limits in.
func PerMinute(requestsPerMinute, burst int) Config {
	if requestsPerMinute <= 0 {
		requestsPerMinute = int(DefaultRefillPerSecond * secondsPerMinute)
	}
	if burst <= 0 {
		burst = DefaultMaxTokens
	}
	return Config{
		MaxTokens:       float64(burst),
		RefillPerSecond: float64(requestsPerMinute) / secondsPerMinute,
	}
}

// Status reports the observable state of one bucket.
type Status struct {
	// Remaining is the whole number of immediately available tokens.
	Remaining int
	// ResetAfter is the time until one more token becomes available.
	ResetAfter time.Duration
	// Limited is true when no whole token is available.
	Limited bool
}

// bucket is the refillable token store for one key. Mutated only under
// its own lock; buckets for different keys are fully independent.
type bucket struct {
	mu         sync.Mutex
	maxTokens  float64
	refillRate float64
	tokens     float64
	lastRefill time.Time
}

// refill adds elapsed*rate tokens, capped at capacity. Caller holds mu.
func (b *bucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(b.maxTokens, b.tokens+elapsed*b.refillRate)
		b.lastRefill = now
	}
}

// Limiter manages independent token buckets keyed by provider id.
// Buckets are created lazily on first use and live for the process
// lifetime; rate-limit history is deliberately not persisted.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	configs  map[string]Config
	defaults Config
	now      func() time.Time
	log      logger.Logger
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock injects the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a limiter with the given default bucket config.
func New(defaults Config, log logger.Logger, opts ...Option) *Limiter {
	if defaults.MaxTokens <= 0 {
		defaults.MaxTokens = DefaultMaxTokens
	}
	if defaults.RefillPerSecond <= 0 {
		defaults.RefillPerSecond = DefaultRefillPerSecond
	}
	if log == nil {
		log = logger.NewNop()
	}
	l := &Limiter{
		buckets:  make(map[string]*bucket),
		configs:  make(map[string]Config),
		defaults: defaults,
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Configure sets the bucket parameters for a key. Existing buckets are
// replaced so the new limits apply immediately.
func (l *Limiter) Configure(key string, cfg Config) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.configs[key] = cfg
	delete(l.buckets, key)
}

// TryAcquire refills the bucket for key and attempts to deduct permits
// tokens. Returns whether the deduction succeeded.
func (l *Limiter) TryAcquire(key string, permits int) bool {
	if permits <= 0 {
		permits = 1
	}

	b := l.bucketFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill(l.now())
	if b.tokens < float64(permits) {
		return false
	}
	b.tokens -= float64(permits)
	return true
}

// GetStatus refills the bucket for key and reports its state.
func (l *Limiter) GetStatus(key string) Status {
	b := l.bucketFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill(l.now())

	remaining := int(math.Floor(b.tokens))
	fractional := b.tokens - math.Floor(b.tokens)
	resetAfter := time.Duration((1 - fractional) / b.refillRate * float64(time.Second))

	return Status{
		Remaining:  remaining,
		ResetAfter: resetAfter,
		Limited:    remaining == 0,
	}
}

// Reset restores the bucket for key to full capacity and resets its
// refill clock.
func (l *Limiter) Reset(key string) {
	b := l.bucketFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = b.maxTokens
	b.lastRefill = l.now()
}

// Wait blocks until one token for key is acquired or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	for {
		if l.TryAcquire(key, 1) {
			return nil
		}

		sleep := l.GetStatus(key).ResetAfter
		if sleep <= 0 || sleep > waitPollInterval {
			sleep = waitPollInterval
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
}

// bucketFor returns the bucket for key, creating it full on first use.
func (l *Limiter) bucketFor(key string) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets[key]; ok {
		return b
	}

	cfg, ok := l.configs[key]
	if !ok {
		cfg = l.defaults
	}
	b := &bucket{
		maxTokens:  cfg.MaxTokens,
		refillRate: cfg.RefillPerSecond,
		tokens:     cfg.MaxTokens,
		lastRefill: l.now(),
	}
	l.buckets[key] = b
	l.log.Debug("rate limit bucket created",
		logger.String("key", key),
		logger.Int("max_tokens", int(cfg.MaxTokens)),
	)
	return b
}
