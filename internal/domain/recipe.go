package domain

import (
	"time"
)

// Ingredient is one recipe ingredient. ProviderCode is the provider's
// internal identifier; Canonical is the normalized name resolved from it,
// nil when no mapping exists.
type Ingredient struct {
	ProviderCode string  `json:"provider_code"`
	Quantity     string  `json:"quantity,omitempty"`
	Canonical    *string `json:"canonical,omitempty"`
}

// Recipe is a fully assembled recipe ready for persistence.
type Recipe struct {
	ID           string       `db:"id"            json:"id"`
	ProviderID   string       `db:"provider_id"   json:"provider_id"`
	SourceURL    string       `db:"source_url"    json:"source_url"`
	Title        string       `db:"title"         json:"title"`
	Description  string       `db:"description"   json:"description"`
	Instructions string       `db:"instructions"  json:"instructions"`
	Ingredients  []Ingredient `db:"-"             json:"ingredients"`
	CreatedAt    time.Time    `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"    json:"updated_at"`
}

// ExtractedRecipe is the raw result of extracting one recipe page.
// Ingredient codes are provider-specific and not yet normalized.
type ExtractedRecipe struct {
	Title           string
	Description     string
	Instructions    string
	IngredientCodes []string
	RawContent      []byte
}
