package enrich

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/newswire-agent/internal/models"
)

// junkText matches boilerplate that must never become a preview:
// cookie banners, login prompts, legal footers, subscription nags.
var junkText = regexp.MustCompile(`(?i)(cookie|consent|javascript.{0,20}(enable|disable)|sign (in|up)|log ?in|subscribe|newsletter|all rights reserved|privacy policy|terms of (use|service)|advertis)`)

const minParagraphLen = 40

// paragraph container selectors, most specific first
var paragraphScopes = []string{
	"article p",
	"main p",
	`[role="main"] p`,
	"section p",
	"p",
}

// extractPreview derives a short preview from an article page.
// Priority: og:description / meta description / twitter:description →
// non-boilerplate paragraphs concatenated up to the budget → a
// readability excerpt as the last resort.
func extractPreview(doc *goquery.Document, rawHTML string, base *url.URL) string {
	metaSelectors := []string{
		`meta[property="og:description"]`,
		`meta[name="description"]`,
		`meta[name="twitter:description"]`,
	}
	for _, sel := range metaSelectors {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			content = strings.TrimSpace(content)
			if content != "" && !junkText.MatchString(content) {
				return content
			}
		}
	}

	for _, scope := range paragraphScopes {
		if text := harvestParagraphs(doc, scope); text != "" {
			return text
		}
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), base)
	if err == nil {
		if excerpt := strings.TrimSpace(article.Excerpt); excerpt != "" && !junkText.MatchString(excerpt) {
			return excerpt
		}
	}
	return ""
}

// harvestParagraphs concatenates acceptable paragraphs from one scope
// until the preview budget is reached.
func harvestParagraphs(doc *goquery.Document, scope string) string {
	var parts []string
	total := 0
	doc.Find(scope).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.Join(strings.Fields(sel.Text()), " ")
		if len([]rune(text)) < minParagraphLen || junkText.MatchString(text) {
			return true
		}
		parts = append(parts, text)
		total += len([]rune(text))
		return total < models.MaxPreviewLen
	})
	return strings.Join(parts, " ")
}
