package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/openrecipes/harvester/internal/domain"
)

// RecipeRepository handles database operations for persisted recipes.
type RecipeRepository struct {
	db *sqlx.DB
}

// NewRecipeRepository creates a new recipe repository.
func NewRecipeRepository(db *sqlx.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

// Upsert stores a fully-assembled recipe. The operation is idempotent:
// re-storing the same recipe id replaces its content.
func (r *RecipeRepository) Upsert(ctx context.Context, recipe *domain.Recipe) error {
	ingredients, err := json.Marshal(recipe.Ingredients)
	if err != nil {
		return fmt.Errorf("failed to marshal ingredients: %w", err)
	}

	query := `
		INSERT INTO recipes (id, provider_id, source_url, title, description, instructions, ingredients)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET provider_id = EXCLUDED.provider_id,
		    source_url = EXCLUDED.source_url,
		    title = EXCLUDED.title,
		    description = EXCLUDED.description,
		    instructions = EXCLUDED.instructions,
		    ingredients = EXCLUDED.ingredients,
		    updated_at = NOW()
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		recipe.ID,
		recipe.ProviderID,
		recipe.SourceURL,
		recipe.Title,
		recipe.Description,
		recipe.Instructions,
		ingredients,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert recipe: %w", err)
	}

	return nil
}

// Exists reports whether a recipe with the given id is stored.
func (r *RecipeRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM recipes WHERE id = $1)`

	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("failed to check recipe: %w", err)
	}

	return exists, nil
}
