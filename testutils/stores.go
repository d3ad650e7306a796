// Package testutils provides in-memory stores and stub collaborators for
// tests.
package testutils

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/openrecipes/harvester/internal/database"
	"github.com/openrecipes/harvester/internal/domain"
)

// InMemoryBatchStore is a thread-safe BatchStore backed by a map. It
// enforces the same optimistic concurrency semantics as the Postgres
// repository.
type InMemoryBatchStore struct {
	mu      sync.Mutex
	batches map[string]domain.BatchState

	// Updates counts successful Update calls, used to assert
	// checkpointing behavior.
	Updates int

	// FailNextUpdate makes the next Update return this error once.
	FailNextUpdate error
}

// NewInMemoryBatchStore creates an empty batch store.
func NewInMemoryBatchStore() *InMemoryBatchStore {
	return &InMemoryBatchStore{batches: make(map[string]domain.BatchState)}
}

// Create inserts the initial batch state.
func (s *InMemoryBatchStore) Create(_ context.Context, state *domain.BatchState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.batches[state.BatchID]; exists {
		return fmt.Errorf("batch %s already exists", state.BatchID)
	}
	s.batches[state.BatchID] = *state
	return nil
}

// GetByID returns a copy of the stored state.
func (s *InMemoryBatchStore) GetByID(_ context.Context, batchID string) (*domain.BatchState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.batches[batchID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", database.ErrBatchNotFound, batchID)
	}
	copied := state
	return &copied, nil
}

// Update persists state under its concurrency token, advancing the token
// on success.
func (s *InMemoryBatchStore) Update(_ context.Context, state *domain.BatchState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailNextUpdate != nil {
		err := s.FailNextUpdate
		s.FailNextUpdate = nil
		return err
	}

	stored, ok := s.batches[state.BatchID]
	if !ok {
		return fmt.Errorf("%w: %s", database.ErrBatchNotFound, state.BatchID)
	}
	if stored.ConcurrencyToken != state.ConcurrencyToken {
		return fmt.Errorf("%w: batch %s token %d", database.ErrConcurrencyConflict, state.BatchID, state.ConcurrencyToken)
	}

	next := *state
	next.ConcurrencyToken++
	s.batches[state.BatchID] = next
	state.ConcurrencyToken++
	s.Updates++
	return nil
}

// ListRecent returns all batches ordered by start time, newest first.
func (s *InMemoryBatchStore) ListRecent(_ context.Context, limit int) ([]*domain.BatchState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	states := make([]*domain.BatchState, 0, len(s.batches))
	for id := range s.batches {
		state := s.batches[id]
		states = append(states, &state)
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].StartedAt.After(states[j].StartedAt)
	})
	if limit > 0 && len(states) > limit {
		states = states[:limit]
	}
	return states, nil
}

// InMemoryFingerprintStore is a thread-safe fingerprint ledger backed by
// a map.
type InMemoryFingerprintStore struct {
	mu     sync.Mutex
	hashes map[string]domain.RecipeFingerprint
}

// NewInMemoryFingerprintStore creates an empty ledger.
func NewInMemoryFingerprintStore() *InMemoryFingerprintStore {
	return &InMemoryFingerprintStore{hashes: make(map[string]domain.RecipeFingerprint)}
}

// Exists reports whether hash is recorded.
func (s *InMemoryFingerprintStore) Exists(_ context.Context, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.hashes[hash]
	return ok, nil
}

// Create records a ledger entry; duplicates no-op like the Postgres
// repository's ON CONFLICT DO NOTHING.
func (s *InMemoryFingerprintStore) Create(_ context.Context, fp *domain.RecipeFingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hashes[fp.Hash]; !ok {
		s.hashes[fp.Hash] = *fp
	}
	return nil
}

// Count returns the number of recorded fingerprints.
func (s *InMemoryFingerprintStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hashes)
}

// InMemoryRecipeStore is a thread-safe RecipeStore backed by a map.
type InMemoryRecipeStore struct {
	mu      sync.Mutex
	recipes map[string]domain.Recipe

	// Upserts counts Upsert calls including idempotent re-stores.
	Upserts int

	// FailWith makes every Upsert return this error.
	FailWith error
}

// NewInMemoryRecipeStore creates an empty recipe store.
func NewInMemoryRecipeStore() *InMemoryRecipeStore {
	return &InMemoryRecipeStore{recipes: make(map[string]domain.Recipe)}
}

// Upsert stores the recipe, replacing any previous version.
func (s *InMemoryRecipeStore) Upsert(_ context.Context, recipe *domain.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	s.recipes[recipe.ID] = *recipe
	s.Upserts++
	return nil
}

// Exists reports whether a recipe with the given id is stored.
func (s *InMemoryRecipeStore) Exists(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.recipes[id]
	return ok, nil
}

// Get returns a stored recipe and whether it exists.
func (s *InMemoryRecipeStore) Get(id string) (domain.Recipe, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recipes[id]
	return r, ok
}

// All returns copies of every stored recipe.
func (s *InMemoryRecipeStore) All() []domain.Recipe {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Recipe, 0, len(s.recipes))
	for id := range s.recipes {
		out = append(out, s.recipes[id])
	}
	return out
}

// Count returns the number of stored recipes.
func (s *InMemoryRecipeStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recipes)
}

// Compile-time interface checks.
var (
	_ database.BatchStore       = (*InMemoryBatchStore)(nil)
	_ database.FingerprintStore = (*InMemoryFingerprintStore)(nil)
	_ database.RecipeStore      = (*InMemoryRecipeStore)(nil)
)
