package models

// Text budgets for published posts. Anything longer is clipped with a
// trailing ellipsis by the normalizer.
const (
	MaxTitleLen   = 180
	MaxSummaryLen = 360
	MaxPreviewLen = 420
	MaxTags       = 6
)

// RawItem is one story as extracted by a parser adapter, before
// normalization. PublishedAt is already validated: adapters drop items
// whose date does not parse instead of defaulting to "now".
type RawItem struct {
	Title       string
	URL         string
	PublishedAt string // RFC 3339 UTC
	Summary     string
	Cover       string
}

// Translated holds the per-language variants of a post's text fields.
type Translated struct {
	Title   string `json:"title,omitempty"`
	Summary string `json:"summary,omitempty"`
	Preview string `json:"preview,omitempty"`
}

// Post is one normalized story as published in posts.json.
//
// ID is the content address: hash of the normalized URL. It is stable
// across runs and doubles as the dedup/merge key and the storage key for
// cover thumbnails and translation lookups.
type Post struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`
	Preview string `json:"preview,omitempty"`
	URL     string `json:"url"`

	// PublishedAt is RFC 3339 in UTC; all timestamps are normalized to
	// the same format so lexicographic comparison orders correctly.
	PublishedAt string `json:"publishedAt"`

	// Cover may be a local cached path or a remote URL. CoverOriginal
	// keeps the pre-cache remote URL so a failed local cache can be
	// reverted losslessly.
	Cover         string `json:"cover,omitempty"`
	CoverOriginal string `json:"coverOriginal,omitempty"`

	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	// Lang is the declared language of the source; the translator skips
	// posts whose Lang already matches the target.
	Lang       string `json:"lang,omitempty"`
	SourceID   string `json:"sourceId"`
	SourceName string `json:"sourceName"`
	SourceURL  string `json:"sourceUrl"`

	Translations map[string]Translated `json:"translations,omitempty"`
}

// HasCover reports whether the post carries any cover reference at all.
func (p *Post) HasCover() bool {
	return p.Cover != "" || p.CoverOriginal != ""
}
