package normalize

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"strings"

	"github.com/newswire-agent/internal/models"
)

// URL strips the fragment and surrounding whitespace from a raw article
// URL. The query survives so display links keep working; comparison
// happens on the lower-cased result at merge time. Idempotent:
// URL(URL(x)) == URL(x).
func URL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		if i := strings.IndexByte(raw, '#'); i >= 0 {
			return raw[:i]
		}
		return raw
	}
	u.Fragment = ""
	return u.String()
}

// PostID is the content address of a post: sha256 of the normalized
// URL, first 16 bytes as hex. Stable across runs.
func PostID(rawURL string) string {
	h := sha256.Sum256([]byte(URL(rawURL)))
	return fmt.Sprintf("%x", h[:16])
}

// Clip truncates s to at most max runes, marking truncation with a
// trailing ellipsis.
func Clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 1 {
		return string(runes[:max])
	}
	return string(runes[:max-1]) + "…"
}

// Post converts one raw item into a normalized Post. Pure function of
// its inputs.
func Post(item models.RawItem, src models.SourceConfig) models.Post {
	canonical := URL(item.URL)
	title := Clip(strings.TrimSpace(item.Title), models.MaxTitleLen)
	summary := Clip(strings.TrimSpace(item.Summary), models.MaxSummaryLen)

	return models.Post{
		ID:          PostID(canonical),
		Title:       title,
		Summary:     summary,
		URL:         canonical,
		PublishedAt: item.PublishedAt,
		Cover:       item.Cover,
		Category:    src.Category,
		Tags:        Tags(title, summary, src.Category),
		Lang:        src.Lang,
		SourceID:    src.ID,
		SourceName:  src.Name,
		SourceURL:   src.Homepage,
	}
}
