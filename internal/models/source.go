package models

// SourceKind selects the parser adapter for a source.
type SourceKind string

const (
	SourceKindFeed SourceKind = "feed" // RSS 2.0 / Atom / RSS 1.0 (RDF)
	SourceKindHTML SourceKind = "html" // site-specific scraper
)

// SourceConfig is the static descriptor of one external origin. The
// registry is loaded once per run and never mutated.
type SourceConfig struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Kind     SourceKind `json:"kind"`
	URL      string     `json:"url"`
	Homepage string     `json:"homepage,omitempty"`
	Category string     `json:"category"`
	Lang     string     `json:"lang,omitempty"`

	// Include is an optional regex tested against title+summary; items
	// that do not match are dropped before normalization.
	Include string `json:"include,omitempty"`
}
