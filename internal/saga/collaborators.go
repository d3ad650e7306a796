package saga

import (
	"context"

	"github.com/openrecipes/harvester/internal/domain"
)

// Discovery collects candidate recipe pages for a provider. Discovery
// strategies are external collaborators; the orchestrator only depends on
// this narrow contract.
type Discovery interface {
	Discover(ctx context.Context, provider domain.ProviderConfig) ([]domain.CandidatePage, error)
}

// Extractor turns one recipe page into structured recipe content.
type Extractor interface {
	Extract(ctx context.Context, provider domain.ProviderConfig, url string) (*domain.ExtractedRecipe, error)
}

// IngredientNormalizer resolves provider ingredient codes to canonical
// names. The returned map holds an entry per resolvable code; codes absent
// from the map have no mapping, which is not an error.
type IngredientNormalizer interface {
	Normalize(ctx context.Context, providerID string, codes []string) (map[string]string, error)
}
