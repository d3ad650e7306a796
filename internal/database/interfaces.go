package database

import (
	"context"

	"github.com/openrecipes/harvester/internal/domain"
)

// BatchStore defines the contract for batch state persistence.
type BatchStore interface {
	Create(ctx context.Context, state *domain.BatchState) error
	GetByID(ctx context.Context, batchID string) (*domain.BatchState, error)
	Update(ctx context.Context, state *domain.BatchState) error
	ListRecent(ctx context.Context, limit int) ([]*domain.BatchState, error)
}

// FingerprintStore defines the contract for the fingerprint ledger.
type FingerprintStore interface {
	Exists(ctx context.Context, hash string) (bool, error)
	Create(ctx context.Context, fp *domain.RecipeFingerprint) error
}

// RecipeStore defines the contract for recipe persistence.
type RecipeStore interface {
	Upsert(ctx context.Context, recipe *domain.Recipe) error
	Exists(ctx context.Context, id string) (bool, error)
}

// Compile-time interface checks.
var (
	_ BatchStore       = (*BatchRepository)(nil)
	_ FingerprintStore = (*FingerprintRepository)(nil)
	_ RecipeStore      = (*RecipeRepository)(nil)
)
