package htmlparse

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/newswire-agent/internal/models"
	"github.com/newswire-agent/pkg/logger"
)

// extractFunc is one site's structural contract: fixed DOM queries that
// either match the live markup or yield nothing. Guessing on drift is
// worse than returning zero items, which the runner already treats as a
// parse failure.
type extractFunc func(s *Scraper, doc *goquery.Document) []models.RawItem

var adapters = map[string]extractFunc{
	"techmeme":      extractTechmeme,
	"lwn-headlines": extractLWN,
}

// Scraper parses one HTML listing source via its registered adapter.
type Scraper struct {
	src     models.SourceConfig
	base    *url.URL
	extract extractFunc
	log     *logger.Logger
}

// For returns the scraper registered for the source id.
func For(src models.SourceConfig, log *logger.Logger) (*Scraper, error) {
	extract, ok := adapters[src.ID]
	if !ok {
		return nil, fmt.Errorf("no html adapter registered for source %s", src.ID)
	}
	base, err := url.Parse(src.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid source url %s: %w", src.URL, err)
	}
	return &Scraper{
		src:     src,
		base:    base,
		extract: extract,
		log:     log.WithSource("html", src.ID),
	}, nil
}

// Parse runs the site adapter over the raw listing HTML.
func (s *Scraper) Parse(text string) ([]models.RawItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html for %s: %w", s.src.ID, err)
	}
	items := s.extract(s, doc)
	s.log.Debug().Int("items", len(items)).Msg("Scraped listing")
	return items, nil
}

// absolute resolves href against the listing URL.
func (s *Scraper) absolute(href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return s.base.ResolveReference(ref).String()
}

// Techmeme river: one story per div.clus, headline anchor under
// strong a.ourh, item timestamp in the block's data-dt attribute.
func extractTechmeme(s *Scraper, doc *goquery.Document) []models.RawItem {
	var items []models.RawItem
	doc.Find("div.clus").Each(func(_ int, sel *goquery.Selection) {
		anchor := sel.Find("strong a.ourh").First()
		href, _ := anchor.Attr("href")
		title := strings.TrimSpace(anchor.Text())
		published := parseDate(sel.AttrOr("data-dt", ""))
		if href == "" || title == "" || published == "" {
			return
		}
		items = append(items, models.RawItem{
			Title:       title,
			URL:         s.absolute(href),
			PublishedAt: published,
			Summary:     strings.TrimSpace(sel.Find("div.ii").First().Text()),
		})
	})
	return items
}

// LWN front page: article blocks with a headline anchor in
// h2.SummaryHL and the publication instant on a time[datetime] node.
func extractLWN(s *Scraper, doc *goquery.Document) []models.RawItem {
	var items []models.RawItem
	doc.Find("div.ArticleEntry").Each(func(_ int, sel *goquery.Selection) {
		anchor := sel.Find("h2.SummaryHL a").First()
		href, _ := anchor.Attr("href")
		title := strings.TrimSpace(anchor.Text())
		published := parseDate(sel.Find("time").First().AttrOr("datetime", ""))
		if href == "" || title == "" || published == "" {
			return
		}
		items = append(items, models.RawItem{
			Title:       title,
			URL:         s.absolute(href),
			PublishedAt: published,
			Summary:     strings.TrimSpace(sel.Find("p.BlurbListing").First().Text()),
		})
	})
	return items
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseDate returns the normalized RFC 3339 UTC instant, or "" when the
// value does not parse. Items without a valid date are dropped upstream
// rather than stamped with the current time.
func parseDate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return ""
}
