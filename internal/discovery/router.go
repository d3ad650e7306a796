package discovery

import (
	"context"

	"github.com/openrecipes/harvester/internal/domain"
	"github.com/openrecipes/harvester/internal/logger"
)

// Router dispatches discovery to the strategy named in the provider
// config. It is the Discovery collaborator handed to the orchestrator.
type Router struct {
	log logger.Logger
}

// NewRouter creates a strategy router.
func NewRouter(log logger.Logger) *Router {
	if log == nil {
		log = logger.NewNop()
	}
	return &Router{log: log}
}

// Discover resolves and runs the provider's configured strategy.
func (r *Router) Discover(ctx context.Context, provider domain.ProviderConfig) ([]domain.CandidatePage, error) {
	strategy, err := New(provider.DiscoveryStrategy, r.log)
	if err != nil {
		return nil, err
	}
	return strategy.Discover(ctx, provider)
}
