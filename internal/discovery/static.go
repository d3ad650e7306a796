package discovery

import (
	"context"
	"errors"

	"github.com/openrecipes/harvester/internal/domain"
	"github.com/openrecipes/harvester/internal/logger"
)

// StrategyStatic serves the provider's configured seed URLs verbatim.
const StrategyStatic = "static"

func init() {
	Register(StrategyStatic, func(log logger.Logger) Strategy {
		return &staticStrategy{log: log}
	})
}

// staticStrategy treats the provider's seed URLs as the full candidate
// list. Used for providers with a curated index and in tests.
type staticStrategy struct {
	log logger.Logger
}

func (s *staticStrategy) Discover(_ context.Context, provider domain.ProviderConfig) ([]domain.CandidatePage, error) {
	if len(provider.SeedURLs) == 0 {
		return nil, errors.New("static discovery requires seed_urls")
	}

	pages := make([]domain.CandidatePage, 0, len(provider.SeedURLs))
	for _, u := range provider.SeedURLs {
		pages = append(pages, domain.CandidatePage{URL: u})
	}

	if s.log != nil {
		s.log.Debug("static discovery collected seeds",
			logger.String("provider_id", provider.ID),
			logger.Int("count", len(pages)))
	}

	return pages, nil
}
