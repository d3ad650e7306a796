// Package discovery provides pluggable strategies for collecting candidate
// recipe URLs from a provider. Strategies register themselves by name and
// are selected through provider configuration.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/openrecipes/harvester/internal/domain"
	"github.com/openrecipes/harvester/internal/logger"
)

// ErrUnknownStrategy is returned when no strategy is registered for a name.
var ErrUnknownStrategy = errors.New("unknown discovery strategy")

// Strategy collects candidate recipe pages for one provider.
type Strategy interface {
	Discover(ctx context.Context, provider domain.ProviderConfig) ([]domain.CandidatePage, error)
}

// Factory builds a strategy instance.
type Factory func(log logger.Logger) Strategy

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a strategy factory available under the given name.
// It panics on duplicate registration, like database/sql drivers.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if factory == nil {
		panic("discovery: Register factory is nil")
	}
	if _, dup := registry[name]; dup {
		panic("discovery: Register called twice for strategy " + name)
	}
	registry[name] = factory
}

// New builds the strategy registered under name.
func New(name string, log logger.Logger) (Strategy, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, name)
	}

	return factory(log), nil
}

// Strategies returns the registered strategy names, sorted.
func Strategies() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
