package enrich

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/newswire-agent/internal/config"
	"github.com/newswire-agent/internal/fetch"
	"github.com/newswire-agent/internal/models"
	"github.com/newswire-agent/internal/normalize"
	"github.com/newswire-agent/pkg/logger"
	"github.com/newswire-agent/pkg/ratelimit"
)

// Enricher backfills covers and previews from article pages.
// Everything here is best-effort: a failure leaves the post with
// whatever it already had and is recorded as a timestamped miss so the
// origin is not hammered again before the TTL expires.
type Enricher struct {
	cfg     config.EnrichConfig
	http    *http.Client
	cache   *fetch.Cache
	limiter *ratelimit.HostLimiter
	log     *logger.Logger

	// now and parse are swapped in tests
	now   func() time.Time
	parse func(body string) (*goquery.Document, error)
}

// Stats summarizes one enrichment pass.
type Stats struct {
	Pages    int
	Covers   int
	Previews int
	Skipped  int
}

// New creates an enricher sharing the run's HTTP cache for miss/ok
// timestamps.
func New(cfg config.EnrichConfig, cache *fetch.Cache, log *logger.Logger) *Enricher {
	rps := cfg.HostRPS
	if rps <= 0 {
		rps = 1
	}
	return &Enricher{
		cfg:     cfg,
		http:    &http.Client{Timeout: 25 * time.Second},
		cache:   cache,
		limiter: ratelimit.NewHostLimiter(rps, 1),
		log:     log.WithComponent("enrich"),
		now:     time.Now,
		parse: func(body string) (*goquery.Document, error) {
			return goquery.NewDocumentFromReader(strings.NewReader(body))
		},
	}
}

// candidate is one post needing enrichment, with the fields still open
// after the miss-TTL check.
type candidate struct {
	idx     int
	cover   bool
	preview bool
}

// placeholder matches decorative cover URLs that should be treated as
// missing.
func placeholderCover(cover string) bool {
	if cover == "" {
		return true
	}
	return denyAsset.MatchString(cover)
}

func (e *Enricher) needsCover(p *models.Post) bool {
	if p.Cover == "" {
		return true
	}
	if strings.HasPrefix(p.Cover, "/") {
		return false // already cached locally
	}
	return placeholderCover(p.Cover)
}

func (e *Enricher) needsPreview(p *models.Post) bool {
	min := e.cfg.MinPreviewLen
	if min <= 0 {
		min = 120
	}
	return len([]rune(p.Preview)) < min && len([]rune(p.Summary)) < min
}

// ttlOpen reports whether an attempt is allowed given the last recorded
// miss and the configured TTL. Cover and preview are checked
// independently since they can succeed or fail on different runs.
func ttlOpen(missAt time.Time, ttl time.Duration, now time.Time) bool {
	if missAt.IsZero() {
		return true
	}
	return now.Sub(missAt) >= ttl
}

// candidates selects and prioritizes posts: missing/placeholder cover
// before missing preview, newest first (posts arrive sorted by
// publishedAt descending), bounded by the total and per-source budgets.
func (e *Enricher) candidates(posts []models.Post) []candidate {
	now := e.now()
	coverTTL := time.Duration(e.cfg.CoverMissTTLHours) * time.Hour
	previewTTL := time.Duration(e.cfg.PreviewMissTTLHours) * time.Hour

	var coverFirst, previewOnly []candidate
	for i := range posts {
		p := &posts[i]
		entry := e.cache.Entry(p.URL)

		wantCover := e.needsCover(p) && ttlOpen(entry.CoverMissAt, coverTTL, now)
		wantPreview := e.needsPreview(p) && ttlOpen(entry.PreviewMissAt, previewTTL, now)

		switch {
		case wantCover:
			coverFirst = append(coverFirst, candidate{idx: i, cover: true, preview: wantPreview})
		case wantPreview:
			previewOnly = append(previewOnly, candidate{idx: i, preview: true})
		}
	}

	selected := append(coverFirst, previewOnly...)

	perSource := make(map[string]int)
	kept := selected[:0]
	for _, c := range selected {
		if e.cfg.MaxTotal > 0 && len(kept) >= e.cfg.MaxTotal {
			break
		}
		sid := posts[c.idx].SourceID
		if e.cfg.MaxPerSource > 0 && perSource[sid] >= e.cfg.MaxPerSource {
			continue
		}
		perSource[sid]++
		kept = append(kept, c)
	}
	return kept
}

// Run enriches posts in place. Article pages are fetched sequentially
// with a politeness delay and a per-host limiter; the miss-TTL recorded
// here is the pipeline's backpressure against slow or broken origins.
func (e *Enricher) Run(ctx context.Context, posts []models.Post) Stats {
	var stats Stats
	delay := time.Duration(e.cfg.DelayMs) * time.Millisecond

	for _, c := range e.candidates(posts) {
		p := &posts[c.idx]
		entry := e.cache.Entry(p.URL)

		pageURL, err := url.Parse(p.URL)
		if err != nil {
			continue
		}
		if err := e.limiter.Wait(ctx, pageURL.Host); err != nil {
			break // context cancelled
		}

		body, ok := e.fetchPage(ctx, p.URL)
		stats.Pages++
		now := e.now()
		if !ok {
			if c.cover {
				entry.CoverMissAt = now
			}
			if c.preview {
				entry.PreviewMissAt = now
			}
			stats.Skipped++
			continue
		}

		doc, err := e.parse(body)
		if err != nil {
			// An unparseable page counts as a miss, same as a failed
			// fetch, so the TTL backpressure still applies.
			e.log.Debug().Str("url", p.URL).Err(err).Msg("Article page did not parse")
			if c.cover {
				entry.CoverMissAt = now
			}
			if c.preview {
				entry.PreviewMissAt = now
			}
			stats.Skipped++
			continue
		}

		if c.cover {
			if cover := extractCover(doc, pageURL); cover != "" {
				p.Cover = cover
				entry.CoverOkAt = now
				stats.Covers++
			} else {
				entry.CoverMissAt = now
			}
		}

		if c.preview {
			if preview := extractPreview(doc, body, pageURL); preview != "" {
				p.Preview = normalize.Clip(preview, models.MaxPreviewLen)
				entry.PreviewOkAt = now
				stats.Previews++
			} else {
				entry.PreviewMissAt = now
			}
		}

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return stats
			}
		}
	}

	e.log.Info().
		Int("pages", stats.Pages).
		Int("covers", stats.Covers).
		Int("previews", stats.Previews).
		Int("skipped", stats.Skipped).
		Msg("Enrichment pass completed")

	return stats
}

func (e *Enricher) fetchPage(ctx context.Context, pageURL string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", false
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.http.Do(req)
	if err != nil {
		e.log.Debug().Str("url", pageURL).Err(err).Msg("Article fetch failed")
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false
	}
	body, err := readBounded(resp.Body, 2<<20)
	if err != nil {
		return "", false
	}
	return string(body), true
}
