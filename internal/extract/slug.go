// Package extract provides lightweight recipe extractors. Provider
// integrations supply their own implementations; the slug extractor here
// derives recipe content from the URL alone and needs no network access.
package extract

import (
	"context"
	"errors"
	"net/url"
	"path"
	"strings"
	"unicode"

	"github.com/openrecipes/harvester/internal/domain"
	"github.com/openrecipes/harvester/internal/retry"
)

// Slug derives a recipe title from the last URL path segment, e.g.
// "/recipes/chicken-noodle-soup" yields "Chicken Noodle Soup".
type Slug struct{}

// NewSlug creates a slug extractor.
func NewSlug() *Slug {
	return &Slug{}
}

// Extract builds a minimal recipe from the URL path.
func (*Slug) Extract(_ context.Context, _ domain.ProviderConfig, rawURL string) (*domain.ExtractedRecipe, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, retry.Permanent(err)
	}

	segment := path.Base(strings.TrimSuffix(parsed.Path, "/"))
	if ext := path.Ext(segment); ext != "" {
		segment = strings.TrimSuffix(segment, ext)
	}
	if segment == "" || segment == "." || segment == "/" {
		return nil, retry.Permanent(errors.New("url path has no recipe slug"))
	}

	return &domain.ExtractedRecipe{Title: titleFromSlug(segment)}, nil
}

// titleFromSlug turns "chicken-noodle_soup" into "Chicken Noodle Soup".
func titleFromSlug(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool {
		return r == '-' || r == '_'
	})
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
