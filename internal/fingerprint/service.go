package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openrecipes/harvester/internal/domain"
	"github.com/openrecipes/harvester/internal/logger"
)

// cacheKey is the Redis set holding known fingerprint hashes.
const cacheKey = "harvester:fingerprints"

// ErrInvalidArgument is returned when a required fingerprint field is
// empty.
var ErrInvalidArgument = errors.New("invalid argument")

// Store is the persisted fingerprint ledger. Entries are append-only.
type Store interface {
	// Exists reports whether a fingerprint with the given hash exists.
	Exists(ctx context.Context, hash string) (bool, error)
	// Create appends a new ledger entry.
	Create(ctx context.Context, fp *domain.RecipeFingerprint) error
}

// Service checks and records recipe fingerprints. An optional Redis
// client serves as a fast-path existence cache in front of the ledger;
// a nil client disables caching.
type Service struct {
	store Store
	cache *redis.Client
	log   logger.Logger
}

// NewService creates a fingerprint service.
func NewService(store Store, cache *redis.Client, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{store: store, cache: cache, log: log}
}

// IsDuplicate reports whether hash is already present in the ledger.
// Cache failures degrade to a ledger lookup rather than failing the call.
func (s *Service) IsDuplicate(ctx context.Context, hash string) (bool, error) {
	if s.cache != nil {
		known, err := s.cache.SIsMember(ctx, cacheKey, hash).Result()
		if err == nil && known {
			return true, nil
		}
		if err != nil {
			s.log.Warn("fingerprint cache lookup failed", logger.Error(err))
		}
	}

	exists, err := s.store.Exists(ctx, hash)
	if err != nil {
		return false, fmt.Errorf("check fingerprint: %w", err)
	}

	if exists && s.cache != nil {
		if err := s.cache.SAdd(ctx, cacheKey, hash).Err(); err != nil {
			s.log.Warn("fingerprint cache backfill failed", logger.Error(err))
		}
	}

	return exists, nil
}

// StoreFingerprint appends a new ledger entry. All fields are required.
func (s *Service) StoreFingerprint(ctx context.Context, hash, providerID, recipeURL, recipeID string) error {
	for name, val := range map[string]string{
		"hash":        hash,
		"provider_id": providerID,
		"recipe_url":  recipeURL,
		"recipe_id":   recipeID,
	} {
		if val == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidArgument, name)
		}
	}

	fp := &domain.RecipeFingerprint{
		Hash:       hash,
		ProviderID: providerID,
		RecipeURL:  recipeURL,
		RecipeID:   recipeID,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.store.Create(ctx, fp); err != nil {
		return fmt.Errorf("store fingerprint: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SAdd(ctx, cacheKey, hash).Err(); err != nil {
			s.log.Warn("fingerprint cache update failed", logger.Error(err))
		}
	}

	return nil
}
