package domain

import (
	"time"
)

// RecipeFingerprint is one entry in the append-only dedup ledger.
// Entries are immutable once created and are never deleted.
type RecipeFingerprint struct {
	Hash       string    `db:"hash"        json:"hash"`
	ProviderID string    `db:"provider_id" json:"provider_id"`
	RecipeURL  string    `db:"recipe_url"  json:"recipe_url"`
	RecipeID   string    `db:"recipe_id"   json:"recipe_id"`
	CreatedAt  time.Time `db:"created_at"  json:"created_at"`
}
