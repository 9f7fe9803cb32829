package source

import (
	"fmt"

	"github.com/newswire-agent/internal/models"
	"github.com/newswire-agent/internal/source/feed"
	"github.com/newswire-agent/internal/source/htmlparse"
	"github.com/newswire-agent/pkg/logger"
)

// Default is the static source table. Immutable, loaded once per run.
var Default = []models.SourceConfig{
	{
		ID:       "hn-frontpage",
		Name:     "Hacker News",
		Kind:     models.SourceKindFeed,
		URL:      "https://hnrss.org/frontpage",
		Homepage: "https://news.ycombinator.com",
		Category: "tech",
		Lang:     "en",
	},
	{
		ID:       "ars-technica",
		Name:     "Ars Technica",
		Kind:     models.SourceKindFeed,
		URL:      "https://feeds.arstechnica.com/arstechnica/index",
		Homepage: "https://arstechnica.com",
		Category: "tech",
		Lang:     "en",
	},
	{
		ID:       "verge-ai",
		Name:     "The Verge — AI",
		Kind:     models.SourceKindFeed,
		URL:      "https://www.theverge.com/rss/index.xml",
		Homepage: "https://www.theverge.com",
		Category: "ai",
		Lang:     "en",
		Include:  `(?i)\b(ai|llm|gpt|model|machine learning|anthropic|openai)\b`,
	},
	{
		ID:       "mit-tech-review",
		Name:     "MIT Technology Review",
		Kind:     models.SourceKindFeed,
		URL:      "https://www.technologyreview.com/feed/",
		Homepage: "https://www.technologyreview.com",
		Category: "science",
		Lang:     "en",
	},
	{
		ID:       "publickey",
		Name:     "Publickey",
		Kind:     models.SourceKindFeed,
		URL:      "https://www.publickey1.jp/atom.xml",
		Homepage: "https://www.publickey1.jp",
		Category: "dev",
		Lang:     "ja",
	},
	{
		ID:       "techmeme",
		Name:     "Techmeme",
		Kind:     models.SourceKindHTML,
		URL:      "https://www.techmeme.com/",
		Homepage: "https://www.techmeme.com",
		Category: "tech",
		Lang:     "en",
	},
	{
		ID:       "lwn-headlines",
		Name:     "LWN.net",
		Kind:     models.SourceKindHTML,
		URL:      "https://lwn.net/",
		Homepage: "https://lwn.net",
		Category: "dev",
		Lang:     "en",
	},
}

// ParserFor returns the parser adapter for a source based on its kind.
func ParserFor(src models.SourceConfig, log *logger.Logger) (Parser, error) {
	switch src.Kind {
	case models.SourceKindFeed:
		return feed.New(src, log), nil
	case models.SourceKindHTML:
		p, err := htmlparse.For(src, log)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown source kind %q for source %s", src.Kind, src.ID)
	}
}

// Ensure the adapters implement Parser
var (
	_ Parser = (*feed.Parser)(nil)
	_ Parser = (*htmlparse.Scraper)(nil)
)
