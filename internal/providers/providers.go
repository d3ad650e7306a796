// Package providers manages recipe provider configurations.
package providers

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/openrecipes/harvester/internal/domain"
	"github.com/openrecipes/harvester/internal/logger"
)

var (
	// ErrProviderNotConfigured is returned when no provider exists for the id.
	ErrProviderNotConfigured = errors.New("provider not configured")
	// ErrProviderDisabled is returned when the provider exists but is disabled.
	ErrProviderDisabled = errors.New("provider disabled")
)

// Defaults applied to provider fields left unset in configuration.
const (
	DefaultMaxRequestsPerMinute = 60
	DefaultBurstSize            = 5
	DefaultRetryCount           = 3
	DefaultRequestTimeout       = 30 * time.Second
)

// Registry holds the validated provider configurations for this process.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]domain.ProviderConfig
	log       logger.Logger
}

// NewRegistry validates the given configurations and builds a registry.
// Invalid entries fail the whole load so misconfiguration is caught at
// startup rather than mid-batch.
func NewRegistry(configs []domain.ProviderConfig, log logger.Logger) (*Registry, error) {
	if log == nil {
		log = logger.NewNop()
	}

	r := &Registry{
		providers: make(map[string]domain.ProviderConfig, len(configs)),
		log:       log,
	}

	for i, cfg := range configs {
		applyDefaults(&cfg)
		if err := validate(cfg); err != nil {
			return nil, fmt.Errorf("invalid provider at index %d: %w", i, err)
		}
		if _, exists := r.providers[cfg.ID]; exists {
			return nil, fmt.Errorf("duplicate provider id: %s", cfg.ID)
		}
		r.providers[cfg.ID] = cfg
		log.Debug("registered provider",
			logger.String("provider_id", cfg.ID),
			logger.Bool("enabled", cfg.Enabled))
	}

	return r, nil
}

// Get returns the configuration for an enabled provider.
func (r *Registry) Get(id string) (domain.ProviderConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.providers[id]
	if !ok {
		return domain.ProviderConfig{}, fmt.Errorf("%w: %s", ErrProviderNotConfigured, id)
	}
	if !cfg.Enabled {
		return domain.ProviderConfig{}, fmt.Errorf("%w: %s", ErrProviderDisabled, id)
	}

	return cfg, nil
}

// List returns all configured providers ordered by id.
func (r *Registry) List() []domain.ProviderConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ProviderConfig, 0, len(r.providers))
	for _, cfg := range r.providers {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

func applyDefaults(cfg *domain.ProviderConfig) {
	if cfg.MaxRequestsPerMinute <= 0 {
		cfg.MaxRequestsPerMinute = DefaultMaxRequestsPerMinute
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = DefaultBurstSize
	}
	if cfg.RetryCount <= 0 {
		cfg.RetryCount = DefaultRetryCount
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
}

func validate(cfg domain.ProviderConfig) error {
	if cfg.ID == "" {
		return errors.New("provider id is required")
	}
	if cfg.Name == "" {
		return errors.New("provider name is required")
	}
	if cfg.DiscoveryStrategy == "" {
		return errors.New("discovery strategy is required")
	}
	return nil
}
