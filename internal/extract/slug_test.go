package extract_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrecipes/harvester/internal/domain"
	"github.com/openrecipes/harvester/internal/extract"
	"github.com/openrecipes/harvester/internal/retry"
)

func TestSlugExtract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		url       string
		wantTitle string
		wantErr   bool
	}{
		{"simple slug", "https://x.com/recipes/chicken-noodle-soup", "Chicken Noodle Soup", false},
		{"underscores", "https://x.com/r/beef_and_barley", "Beef And Barley", false},
		{"trailing slash", "https://x.com/recipes/lentil-curry/", "Lentil Curry", false},
		{"file extension stripped", "https://x.com/recipes/pancakes.html", "Pancakes", false},
		{"single word", "https://x.com/goulash", "Goulash", false},
		{"no path", "https://x.com", "", true},
		{"root path", "https://x.com/", "", true},
	}

	extractor := extract.NewSlug()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			recipe, err := extractor.Extract(context.Background(), domain.ProviderConfig{}, tt.url)

			if tt.wantErr {
				require.Error(t, err)
				class, _ := retry.Classify(err)
				assert.Equal(t, retry.ClassPermanent, class, "slug failures must not be retried")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, recipe.Title)
		})
	}
}
