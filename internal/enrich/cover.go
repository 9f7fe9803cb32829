package enrich

import (
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
)

// denyAsset filters decorative assets out of cover candidates:
// favicons, logos, tracking pixels, sprites.
var denyAsset = regexp.MustCompile(`(?i)(favicon|logo|sprite|spacer|blank|pixel|1x1|avatar|badge|icon[-_.]|[-_.]icon|placeholder|default[-_.])`)

// extractCover picks the best cover image URL from an article page.
// Priority: og:image/twitter:image meta → link rel=image_src → JSON-LD
// image fields → in-body img candidates surviving the deny-list.
func extractCover(doc *goquery.Document, base *url.URL) string {
	metaSelectors := []string{
		`meta[property="og:image"]`,
		`meta[property="og:image:url"]`,
		`meta[name="twitter:image"]`,
		`meta[name="twitter:image:src"]`,
	}
	for _, sel := range metaSelectors {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if u := absoluteImage(content, base); u != "" {
				return u
			}
		}
	}

	if href, ok := doc.Find(`link[rel="image_src"]`).First().Attr("href"); ok {
		if u := absoluteImage(href, base); u != "" {
			return u
		}
	}

	if u := jsonLDImage(doc, base); u != "" {
		return u
	}

	var found string
	doc.Find("img").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, ok := sel.Attr("src")
		if !ok || src == "" {
			src, _ = sel.Attr("data-src")
		}
		if src == "" || denyAsset.MatchString(src) || strings.HasPrefix(src, "data:") {
			return true
		}
		if u := absoluteImage(src, base); u != "" {
			found = u
			return false
		}
		return true
	})
	return found
}

// jsonLDImage walks every ld+json script looking for an image field.
// The shapes in the wild vary: a bare string, {url: ...}, an array, or
// nested under @graph.
func jsonLDImage(doc *goquery.Document, base *url.URL) string {
	var found string
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		raw := sel.Text()
		if !gjson.Valid(raw) {
			return true
		}
		for _, path := range []string{"image", "image.url", "image.0", "image.0.url", "@graph.0.image", "@graph.0.image.url"} {
			v := gjson.Get(raw, path)
			if v.Type == gjson.String && v.Str != "" {
				if u := absoluteImage(v.Str, base); u != "" {
					found = u
					return false
				}
			}
		}
		return true
	})
	return found
}

// absoluteImage resolves an image reference against the page URL and
// drops anything that is not http(s).
func absoluteImage(ref string, base *url.URL) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}

// readBounded reads at most limit+1 bytes so callers can tell "fits
// exactly" apart from "too large".
func readBounded(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit+1))
}
