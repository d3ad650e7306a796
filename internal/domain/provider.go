package domain

import (
	"time"
)

// ProviderConfig describes one recipe provider. It is loaded once per
// batch start and treated as read-only for the batch's duration.
type ProviderConfig struct {
	// ID is the provider identifier used as the rate-limit key.
	ID string `mapstructure:"id" yaml:"id"`
	// Name is the human-readable provider name.
	Name string `mapstructure:"name" yaml:"name"`
	// Enabled gates whether batches may be started for this provider.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Priority orders providers in operator listings.
	Priority string `mapstructure:"priority" yaml:"priority"`
	// DiscoveryStrategy selects the registered discovery implementation.
	DiscoveryStrategy string `mapstructure:"discovery_strategy" yaml:"discovery_strategy"`
	// SeedURLs are the entry points handed to the discovery strategy.
	SeedURLs []string `mapstructure:"seed_urls" yaml:"seed_urls"`
	// MaxRequestsPerMinute bounds outbound requests to the provider.
	MaxRequestsPerMinute int `mapstructure:"max_requests_per_minute" yaml:"max_requests_per_minute"`
	// BurstSize is the token bucket capacity for the provider.
	BurstSize int `mapstructure:"burst_size" yaml:"burst_size"`
	// RetryCount bounds retries of transient failures per URL.
	RetryCount int `mapstructure:"retry_count" yaml:"retry_count"`
	// RequestTimeout bounds a single outbound call.
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}
