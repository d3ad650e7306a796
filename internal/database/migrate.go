package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schemaStatements is the idempotent DDL applied at startup.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS harvest_batches (
		batch_id TEXT PRIMARY KEY,
		provider_id TEXT NOT NULL,
		status TEXT NOT NULL,
		pending_urls TEXT[] NOT NULL DEFAULT '{}',
		processed_urls TEXT[] NOT NULL DEFAULT '{}',
		failed_urls TEXT[] NOT NULL DEFAULT '{}',
		processed INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		started_at TIMESTAMPTZ NOT NULL,
		deadline TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ,
		partial BOOLEAN NOT NULL DEFAULT FALSE,
		last_error TEXT,
		concurrency_token BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_harvest_batches_provider
		ON harvest_batches (provider_id, started_at DESC)`,
	`CREATE TABLE IF NOT EXISTS recipe_fingerprints (
		hash TEXT PRIMARY KEY,
		provider_id TEXT NOT NULL,
		recipe_url TEXT NOT NULL,
		recipe_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_recipe_fingerprints_provider_url
		ON recipe_fingerprints (provider_id, recipe_url)`,
	`CREATE TABLE IF NOT EXISTS recipes (
		id TEXT PRIMARY KEY,
		provider_id TEXT NOT NULL,
		source_url TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		instructions TEXT NOT NULL DEFAULT '',
		ingredients JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_recipes_provider_url
		ON recipes (provider_id, source_url)`,
}

// Migrate applies the schema. All statements are idempotent so Migrate
// is safe to run on every startup.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
