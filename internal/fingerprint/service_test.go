package fingerprint_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrecipes/harvester/internal/fingerprint"
	"github.com/openrecipes/harvester/testutils"
)

func TestServiceDuplicateRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := testutils.NewInMemoryFingerprintStore()
	svc := fingerprint.NewService(store, nil, nil)

	hash := fingerprint.Generate("https://example.com/recipes/soup", "Chicken Soup", "")

	duplicate, err := svc.IsDuplicate(ctx, hash)
	require.NoError(t, err)
	assert.False(t, duplicate)

	err = svc.StoreFingerprint(ctx, hash, "provider-1", "https://example.com/recipes/soup", "recipe-1")
	require.NoError(t, err)

	duplicate, err = svc.IsDuplicate(ctx, hash)
	require.NoError(t, err)
	assert.True(t, duplicate)
	assert.Equal(t, 1, store.Count())
}

func TestServiceStoreIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := testutils.NewInMemoryFingerprintStore()
	svc := fingerprint.NewService(store, nil, nil)

	for range 2 {
		err := svc.StoreFingerprint(ctx, "hash-1", "provider-1", "https://x.com/r", "recipe-1")
		require.NoError(t, err)
	}

	assert.Equal(t, 1, store.Count())
}

func TestServiceStoreValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := fingerprint.NewService(testutils.NewInMemoryFingerprintStore(), nil, nil)

	tests := []struct {
		name                              string
		hash, provider, recipeURL, recipe string
	}{
		{"missing hash", "", "p", "u", "r"},
		{"missing provider", "h", "", "u", "r"},
		{"missing url", "h", "p", "", "r"},
		{"missing recipe id", "h", "p", "u", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := svc.StoreFingerprint(ctx, tt.hash, tt.provider, tt.recipeURL, tt.recipe)
			assert.ErrorIs(t, err, fingerprint.ErrInvalidArgument)
		})
	}
}
