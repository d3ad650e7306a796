package testutils

import (
	"context"
	"sync"

	"github.com/openrecipes/harvester/internal/domain"
)

// StubDiscovery serves a fixed candidate list or a scripted error.
type StubDiscovery struct {
	Pages []domain.CandidatePage
	Err   error

	mu    sync.Mutex
	calls int
}

// Discover returns the scripted result.
func (d *StubDiscovery) Discover(_ context.Context, _ domain.ProviderConfig) ([]domain.CandidatePage, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()

	if d.Err != nil {
		return nil, d.Err
	}
	return d.Pages, nil
}

// Calls returns how many times Discover ran.
func (d *StubDiscovery) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// StubExtractor maps URLs to scripted extraction results or errors.
type StubExtractor struct {
	// Results maps URL to the extracted recipe returned for it.
	Results map[string]*domain.ExtractedRecipe
	// Errors maps URL to the error returned for it; takes precedence.
	Errors map[string]error

	mu    sync.Mutex
	calls map[string]int
}

// Extract returns the scripted result for url.
func (e *StubExtractor) Extract(_ context.Context, _ domain.ProviderConfig, url string) (*domain.ExtractedRecipe, error) {
	e.mu.Lock()
	if e.calls == nil {
		e.calls = make(map[string]int)
	}
	e.calls[url]++
	e.mu.Unlock()

	if err, ok := e.Errors[url]; ok {
		return nil, err
	}
	if result, ok := e.Results[url]; ok {
		return result, nil
	}
	return &domain.ExtractedRecipe{Title: "Untitled"}, nil
}

// CallsFor returns how many times url was extracted.
func (e *StubExtractor) CallsFor(url string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[url]
}

// StubNormalizer resolves codes against a fixed table.
type StubNormalizer struct {
	// Mappings maps provider code to canonical name.
	Mappings map[string]string
	Err      error
}

// Normalize returns entries for resolvable codes.
func (n *StubNormalizer) Normalize(_ context.Context, _ string, codes []string) (map[string]string, error) {
	if n.Err != nil {
		return nil, n.Err
	}
	resolved := make(map[string]string, len(codes))
	for _, code := range codes {
		if name, ok := n.Mappings[code]; ok {
			resolved[code] = name
		}
	}
	return resolved, nil
}
