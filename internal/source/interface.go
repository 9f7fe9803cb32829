package source

import (
	"github.com/newswire-agent/internal/models"
)

// Parser maps raw response text to extracted items. Implementations are
// selected by SourceConfig.Kind: the generic feed parser handles RSS
// 2.0, Atom and RSS 1.0/RDF, while html sources get a per-site scraper
// bound to a fixed structural contract. A scraper that no longer
// matches the live markup yields zero items rather than guessing; the
// runner treats that as a parse failure.
type Parser interface {
	// Parse extracts items from the raw body. Items without a title,
	// URL or parseable timestamp are dropped.
	Parse(text string) ([]models.RawItem, error)
}

// Registry manages the static source table.
type Registry struct {
	sources []models.SourceConfig
}

// NewRegistry creates a registry over the given descriptors.
func NewRegistry(sources []models.SourceConfig) *Registry {
	return &Registry{sources: sources}
}

// All returns every configured source.
func (r *Registry) All() []models.SourceConfig {
	return r.sources
}

// ByID returns the source with the given id, or false.
func (r *Registry) ByID(id string) (models.SourceConfig, bool) {
	for _, s := range r.sources {
		if s.ID == id {
			return s, true
		}
	}
	return models.SourceConfig{}, false
}
