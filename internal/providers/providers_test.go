package providers_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrecipes/harvester/internal/domain"
	"github.com/openrecipes/harvester/internal/providers"
)

func validProvider(id string) domain.ProviderConfig {
	return domain.ProviderConfig{
		ID:                id,
		Name:              "Provider " + id,
		Enabled:           true,
		DiscoveryStrategy: "static",
	}
}

func TestNewRegistryValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		configs []domain.ProviderConfig
		wantErr string
	}{
		{
			"missing id",
			[]domain.ProviderConfig{{Name: "X", DiscoveryStrategy: "static"}},
			"provider id is required",
		},
		{
			"missing name",
			[]domain.ProviderConfig{{ID: "x", DiscoveryStrategy: "static"}},
			"provider name is required",
		},
		{
			"missing strategy",
			[]domain.ProviderConfig{{ID: "x", Name: "X"}},
			"discovery strategy is required",
		},
		{
			"duplicate id",
			[]domain.ProviderConfig{validProvider("x"), validProvider("x")},
			"duplicate provider id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := providers.NewRegistry(tt.configs, nil)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewRegistryAppliesDefaults(t *testing.T) {
	t.Parallel()

	registry, err := providers.NewRegistry([]domain.ProviderConfig{validProvider("x")}, nil)
	require.NoError(t, err)

	cfg, err := registry.Get("x")
	require.NoError(t, err)

	assert.Equal(t, providers.DefaultMaxRequestsPerMinute, cfg.MaxRequestsPerMinute)
	assert.Equal(t, providers.DefaultBurstSize, cfg.BurstSize)
	assert.Equal(t, providers.DefaultRetryCount, cfg.RetryCount)
	assert.Equal(t, providers.DefaultRequestTimeout, cfg.RequestTimeout)
}

func TestRegistryGet(t *testing.T) {
	t.Parallel()

	disabled := validProvider("off")
	disabled.Enabled = false

	configured := validProvider("on")
	configured.MaxRequestsPerMinute = 120
	configured.RequestTimeout = 10 * time.Second

	registry, err := providers.NewRegistry([]domain.ProviderConfig{configured, disabled}, nil)
	require.NoError(t, err)

	cfg, err := registry.Get("on")
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.MaxRequestsPerMinute)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)

	_, err = registry.Get("off")
	assert.ErrorIs(t, err, providers.ErrProviderDisabled)

	_, err = registry.Get("never")
	assert.ErrorIs(t, err, providers.ErrProviderNotConfigured)
}

func TestRegistryList(t *testing.T) {
	t.Parallel()

	registry, err := providers.NewRegistry([]domain.ProviderConfig{
		validProvider("zulu"), validProvider("alpha"),
	}, nil)
	require.NoError(t, err)

	list := registry.List()

	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].ID)
	assert.Equal(t, "zulu", list[1].ID)
}
