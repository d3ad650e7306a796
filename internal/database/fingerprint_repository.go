package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/openrecipes/harvester/internal/domain"
)

// FingerprintRepository handles database operations for the append-only
// recipe fingerprint ledger. Entries are never updated or deleted.
type FingerprintRepository struct {
	db *sqlx.DB
}

// NewFingerprintRepository creates a new fingerprint repository.
func NewFingerprintRepository(db *sqlx.DB) *FingerprintRepository {
	return &FingerprintRepository{db: db}
}

// Exists reports whether a fingerprint with the given hash is recorded.
func (r *FingerprintRepository) Exists(ctx context.Context, hash string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM recipe_fingerprints WHERE hash = $1)`

	if err := r.db.GetContext(ctx, &exists, query, hash); err != nil {
		return false, fmt.Errorf("failed to check fingerprint: %w", err)
	}

	return exists, nil
}

// Create appends a new ledger entry. Concurrent writers recording the
// same hash are tolerated: the first insert wins and later ones no-op.
func (r *FingerprintRepository) Create(ctx context.Context, fp *domain.RecipeFingerprint) error {
	query := `
		INSERT INTO recipe_fingerprints (hash, provider_id, recipe_url, recipe_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (hash) DO NOTHING
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		fp.Hash,
		fp.ProviderID,
		fp.RecipeURL,
		fp.RecipeID,
		fp.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create fingerprint: %w", err)
	}

	return nil
}

// GetByProviderURL retrieves a ledger entry by provider and recipe URL,
// used for operational lookups.
func (r *FingerprintRepository) GetByProviderURL(ctx context.Context, providerID, recipeURL string) (*domain.RecipeFingerprint, error) {
	query := `
		SELECT hash, provider_id, recipe_url, recipe_id, created_at
		FROM recipe_fingerprints
		WHERE provider_id = $1 AND recipe_url = $2
	`

	var fp domain.RecipeFingerprint
	if err := r.db.GetContext(ctx, &fp, query, providerID, recipeURL); err != nil {
		return nil, fmt.Errorf("failed to get fingerprint: %w", err)
	}

	return &fp, nil
}
