// Package normalize resolves provider ingredient codes to canonical
// names. The static implementation serves a mapping table loaded from
// configuration; provider integrations may substitute their own lookup.
package normalize

import (
	"context"
)

// Static resolves codes against an in-memory per-provider mapping table.
type Static struct {
	mappings map[string]map[string]string
}

// NewStatic creates a normalizer over the given provider->code->name table.
func NewStatic(mappings map[string]map[string]string) *Static {
	return &Static{mappings: mappings}
}

// Normalize returns an entry per resolvable code. Codes without a mapping
// are simply absent from the result; that is not an error.
func (s *Static) Normalize(_ context.Context, providerID string, codes []string) (map[string]string, error) {
	table := s.mappings[providerID]
	resolved := make(map[string]string, len(codes))
	for _, code := range codes {
		if name, ok := table[code]; ok && name != "" {
			resolved[code] = name
		}
	}
	return resolved, nil
}
