package knowledge

import (
	"context"
	"sort"
)

// Source is a pluggable knowledge search provider. Implementations
// absorb transient failures and return an empty slice instead of an
// error so callers can fall back to lower-ranked sources.
type Source interface {
	// Name returns the stable source name used by the ranker
	Name() string

	// Search returns up to topK text snippets for the query. Empty on
	// failure or no results, never panics.
	Search(ctx context.Context, query string, topK int) []string
}

// Well-known source names.
const (
	SourceWikipedia = "wikipedia"
	SourceWikidata  = "wikidata_sparql"
	SourceWebSearch = "websearch"
)

// Registry holds the configured knowledge sources by name.
type Registry struct {
	sources map[string]Source
}

// NewRegistry creates an empty source registry
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

// Add registers a source under its own name
func (r *Registry) Add(source Source) {
	r.sources[source.Name()] = source
}

// Get returns the named source, nil if absent
func (r *Registry) Get(name string) Source {
	return r.sources[name]
}

// Names returns the registered source names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
