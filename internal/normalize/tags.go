package normalize

import (
	"regexp"

	"github.com/newswire-agent/internal/models"
)

// tagRule maps a pattern over title+summary to a tag. Rules are
// evaluated top to bottom; the first MaxTags matches win.
type tagRule struct {
	pattern *regexp.Regexp
	tag     string
}

var tagRules = []tagRule{
	{regexp.MustCompile(`(?i)\b(llm|gpt|claude|gemini|chatgpt|generative ai|\bai\b|machine learning|deep learning|neural)`), "ai"},
	{regexp.MustCompile(`(?i)\b(security|vulnerabilit|exploit|breach|ransomware|phishing|cve-)`), "security"},
	{regexp.MustCompile(`(?i)\b(kubernetes|docker|container|serverless|aws|azure|gcp|cloud)`), "cloud"},
	{regexp.MustCompile(`(?i)\b(linux|kernel|unix|bsd|systemd)`), "linux"},
	{regexp.MustCompile(`(?i)\b(golang|\bgo\b 1\.|rust|python|typescript|javascript|compiler|programming language)`), "lang"},
	{regexp.MustCompile(`(?i)\b(iphone|android|smartphone|mobile app|tablet)`), "mobile"},
	{regexp.MustCompile(`(?i)\b(chip|semiconductor|gpu|cpu|silicon|fab\b|tsmc|nvidia)`), "hardware"},
	{regexp.MustCompile(`(?i)\b(startup|funding|acquisition|ipo|venture|layoff)`), "business"},
	{regexp.MustCompile(`(?i)\b(game|gaming|playstation|nintendo|xbox|steam)`), "games"},
	{regexp.MustCompile(`(?i)\b(space|nasa|rocket|satellite|astronomy|quantum|physics)`), "science"},
	{regexp.MustCompile(`(?i)\b(privacy|regulation|antitrust|lawsuit|gdpr|copyright)`), "policy"},
	{regexp.MustCompile(`(?i)\b(open source|oss\b|github|gitlab|license)`), "opensource"},
}

// Tags derives a bounded tag set from the title+summary blob by testing
// the ordered rule table. When nothing matches, the source category is
// the fallback tag.
func Tags(title, summary, category string) []string {
	blob := title + " " + summary
	tags := make([]string, 0, models.MaxTags)
	seen := make(map[string]bool)
	for _, rule := range tagRules {
		if len(tags) == models.MaxTags {
			break
		}
		if seen[rule.tag] {
			continue
		}
		if rule.pattern.MatchString(blob) {
			tags = append(tags, rule.tag)
			seen[rule.tag] = true
		}
	}
	if len(tags) == 0 && category != "" {
		tags = append(tags, category)
	}
	return tags
}
