// Package events provides domain events and an in-process publish/subscribe
// bus that decouples the harvest pipeline from side-effect handlers.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Event names.
const (
	BatchStartedName             = "BATCH_STARTED"
	BatchCompletedName           = "BATCH_COMPLETED"
	BatchFailedName              = "BATCH_FAILED"
	RecipeProcessedName          = "RECIPE_PROCESSED"
	RecipeFailedName             = "RECIPE_FAILED"
	IngredientMappingMissingName = "INGREDIENT_MAPPING_MISSING"
)

// eventVersion is the current schema version of published events.
const eventVersion = 1

// Event is an immutable record of a business-significant occurrence.
type Event interface {
	// Name returns the event type name handlers subscribe to.
	Name() string
	// ID returns the unique event identifier.
	ID() uuid.UUID
	// OccurredAt returns when the event happened.
	OccurredAt() time.Time
}

// Base carries the envelope fields shared by all events.
type Base struct {
	EventID    uuid.UUID `json:"event_id"`
	OccurredOn time.Time `json:"occurred_on"`
	Version    int       `json:"version"`
}

// NewBase creates a fresh event envelope.
func NewBase() Base {
	return Base{
		EventID:    uuid.New(),
		OccurredOn: time.Now().UTC(),
		Version:    eventVersion,
	}
}

// ID returns the unique event identifier.
func (b Base) ID() uuid.UUID { return b.EventID }

// OccurredAt returns when the event happened.
func (b Base) OccurredAt() time.Time { return b.OccurredOn }

// BatchStarted is published when a harvest batch begins execution.
type BatchStarted struct {
	Base
	BatchID    string `json:"batch_id"`
	ProviderID string `json:"provider_id"`
	URLCount   int    `json:"url_count"`
}

// Name returns the event type name.
func (BatchStarted) Name() string { return BatchStartedName }

// BatchCompleted is published when a batch reaches the Completed status.
type BatchCompleted struct {
	Base
	BatchID    string `json:"batch_id"`
	ProviderID string `json:"provider_id"`
	Processed  int    `json:"processed"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
	Pending    int    `json:"pending"`
	Partial    bool   `json:"partial"`
}

// Name returns the event type name.
func (BatchCompleted) Name() string { return BatchCompletedName }

// BatchFailed is published when a batch hits an unrecoverable error.
type BatchFailed struct {
	Base
	BatchID    string `json:"batch_id"`
	ProviderID string `json:"provider_id"`
	Category   string `json:"category"`
	Message    string `json:"message"`
}

// Name returns the event type name.
func (BatchFailed) Name() string { return BatchFailedName }

// RecipeProcessed is published after a recipe is persisted and its
// fingerprint recorded.
type RecipeProcessed struct {
	Base
	BatchID    string `json:"batch_id"`
	ProviderID string `json:"provider_id"`
	RecipeID   string `json:"recipe_id"`
	RecipeURL  string `json:"recipe_url"`
}

// Name returns the event type name.
func (RecipeProcessed) Name() string { return RecipeProcessedName }

// RecipeFailed is published when a URL fails permanently or exhausts its
// retries. Category carries the error classification for observability.
type RecipeFailed struct {
	Base
	BatchID    string `json:"batch_id"`
	ProviderID string `json:"provider_id"`
	RecipeURL  string `json:"recipe_url"`
	Category   string `json:"category"`
	Message    string `json:"message"`
}

// Name returns the event type name.
func (RecipeFailed) Name() string { return RecipeFailedName }

// IngredientMappingMissing is published once per ingredient code that has
// no canonical mapping. A missing mapping is not an error; the recipe is
// still persisted.
type IngredientMappingMissing struct {
	Base
	BatchID      string `json:"batch_id"`
	ProviderID   string `json:"provider_id"`
	ProviderCode string `json:"provider_code"`
}

// Name returns the event type name.
func (IngredientMappingMissing) Name() string { return IngredientMappingMissingName }
