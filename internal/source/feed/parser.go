package feed

import (
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/newswire-agent/internal/models"
	"github.com/newswire-agent/pkg/logger"
)

// Parser extracts items from RSS 2.0, Atom and RSS 1.0/RDF documents
// using a single shared item shape.
type Parser struct {
	src    models.SourceConfig
	parser *gofeed.Parser
	log    *logger.Logger
}

// New creates a feed parser for a single source
func New(src models.SourceConfig, log *logger.Logger) *Parser {
	return &Parser{
		src:    src,
		parser: gofeed.NewParser(),
		log:    log.WithSource("feed", src.ID),
	}
}

// Parse maps the raw feed document to items. An item is kept only when
// both title and url are non-empty and its published (or updated) date
// parses to a valid instant. Unparseable dates are dropped, not
// defaulted to now, so stale entries cannot inject false freshness.
func (p *Parser) Parse(text string) ([]models.RawItem, error) {
	parsed, err := p.parser.ParseString(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", p.src.ID, err)
	}

	items := make([]models.RawItem, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		published := item.PublishedParsed
		if published == nil {
			published = item.UpdatedParsed
		}
		if published == nil || item.Title == "" || item.Link == "" {
			continue
		}

		summary := item.Description
		if summary == "" {
			summary = item.Content
		}

		items = append(items, models.RawItem{
			Title:       cleanText(item.Title),
			URL:         strings.TrimSpace(item.Link),
			PublishedAt: published.UTC().Format(time.RFC3339),
			Summary:     cleanText(summary),
			Cover:       itemImage(item),
		})
	}

	p.log.Debug().
		Int("raw", len(parsed.Items)).
		Int("kept", len(items)).
		Msg("Parsed feed")

	return items, nil
}

// itemImage picks a cover candidate from feed-level metadata
func itemImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}
	return ""
}

// cleanText removes HTML tags and extra whitespace
func cleanText(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
		} else if r == '>' {
			inTag = false
		} else if !inTag {
			result.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(result.String()), " ")
}
