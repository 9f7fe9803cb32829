package runner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/newswire-agent/internal/config"
	"github.com/newswire-agent/internal/fetch"
	"github.com/newswire-agent/internal/models"
	"github.com/newswire-agent/internal/source/feed"
	"github.com/newswire-agent/pkg/logger"
)

var testDrop = config.ParseDropConfig{MinPrev: 12, MinKeep: 3, Ratio: 0.15}

// stubParser returns a fixed item set regardless of input.
type stubParser struct {
	items []models.RawItem
	err   error
}

func (p *stubParser) Parse(string) ([]models.RawItem, error) {
	return p.items, p.err
}

func rawItems(n int) []models.RawItem {
	items := make([]models.RawItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, models.RawItem{
			Title:       fmt.Sprintf("Item %d", i),
			URL:         fmt.Sprintf("https://x.test/%d", i),
			PublishedAt: time.Now().UTC().Format(time.RFC3339),
		})
	}
	return items
}

func prevPosts(n int) []models.Post {
	posts := make([]models.Post, 0, n)
	for i := 0; i < n; i++ {
		posts = append(posts, models.Post{
			ID:          fmt.Sprintf("prev-%d", i),
			URL:         fmt.Sprintf("https://x.test/prev/%d", i),
			Title:       fmt.Sprintf("Prev %d", i),
			PublishedAt: "2026-08-20T00:00:00Z",
		})
	}
	return posts
}

func newRunner(t *testing.T) *Runner {
	t.Helper()
	cache := fetch.LoadCache(filepath.Join(t.TempDir(), "cache.json"))
	client := fetch.NewClient(config.FetchConfig{TimeoutSeconds: 5}, cache, logger.Default())
	return New(client, testDrop, false, logger.Default())
}

func okServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func src(url string) models.SourceConfig {
	return models.SourceConfig{ID: "test", Name: "Test", Kind: models.SourceKindFeed, URL: url, Category: "tech"}
}

func TestAnomalyGuardRejectsCollapse(t *testing.T) {
	srv := okServer(t, "ignored")
	r := newRunner(t)
	previous := prevPosts(20) // threshold = floor(20*0.15) = 3

	out := r.Run(context.Background(), src(srv.URL), &stubParser{items: rawItems(2)}, previous)

	if out.Status.OK {
		t.Error("2 raw items against 20 previous must be rejected")
	}
	if out.Status.Used != models.UsedFallback {
		t.Errorf("used = %q, want fallback", out.Status.Used)
	}
	if len(out.Posts) != 20 {
		t.Errorf("fallback must republish all 20 previous posts, got %d", len(out.Posts))
	}
	if out.Status.Error == "" {
		t.Error("parse_drop must be surfaced in the status error")
	}
}

func TestAnomalyGuardAcceptsAboveThreshold(t *testing.T) {
	srv := okServer(t, "ignored")
	r := newRunner(t)

	out := r.Run(context.Background(), src(srv.URL), &stubParser{items: rawItems(4)}, prevPosts(20))

	if !out.Status.OK || out.Status.Used != models.UsedFetched {
		t.Fatalf("4 raw items must be accepted: %+v", out.Status)
	}
	if len(out.Posts) != 4 {
		t.Errorf("published %d posts, want 4", len(out.Posts))
	}
}

func TestAnomalyGuardInactiveForThinHistory(t *testing.T) {
	// floor(15*0.15)=2 is below the keep floor, so the ratio test does
	// not engage and even a single item is accepted.
	srv := okServer(t, "ignored")
	r := newRunner(t)

	out := r.Run(context.Background(), src(srv.URL), &stubParser{items: rawItems(1)}, prevPosts(15))

	if !out.Status.OK {
		t.Fatalf("single item against 15 previous must be accepted: %+v", out.Status)
	}
	if out.Status.Raw != 1 || len(out.Posts) != 1 {
		t.Errorf("raw=%d posts=%d, want 1/1", out.Status.Raw, len(out.Posts))
	}
}

func TestParseEmptyFallsBack(t *testing.T) {
	srv := okServer(t, "ignored")
	r := newRunner(t)
	previous := prevPosts(5)

	out := r.Run(context.Background(), src(srv.URL), &stubParser{}, previous)

	if out.Status.OK || out.Status.Used != models.UsedFallback {
		t.Fatalf("zero items must fall back: %+v", out.Status)
	}
	if len(out.Posts) != 5 {
		t.Errorf("expected previous posts republished, got %d", len(out.Posts))
	}
}

func TestParseErrorFallsBack(t *testing.T) {
	srv := okServer(t, "ignored")
	r := newRunner(t)

	out := r.Run(context.Background(), src(srv.URL), &stubParser{err: errors.New("boom")}, prevPosts(3))

	if out.Status.OK || out.Status.Error == "" {
		t.Fatalf("parse error must fall back with error string: %+v", out.Status)
	}
}

func TestFetchFailureFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	r := newRunner(t)
	previous := prevPosts(7)

	out := r.Run(context.Background(), src(srv.URL), &stubParser{items: rawItems(10)}, previous)

	if out.Status.OK {
		t.Error("503 must not report OK")
	}
	if out.Status.Used != models.UsedFallback || len(out.Posts) != 7 {
		t.Errorf("expected fallback to 7 previous posts: %+v", out.Status)
	}
	if out.Status.HTTPStatus != http.StatusServiceUnavailable {
		t.Errorf("status = %d", out.Status.HTTPStatus)
	}
}

func TestNotModifiedRepublishesPrevious(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte("body"))
	}))
	defer srv.Close()

	cache := fetch.LoadCache(filepath.Join(t.TempDir(), "cache.json"))
	cache.Entry(srv.URL).ETag = `"v1"`
	client := fetch.NewClient(config.FetchConfig{TimeoutSeconds: 5}, cache, logger.Default())
	r := New(client, testDrop, false, logger.Default())

	previous := prevPosts(4)
	out := r.Run(context.Background(), src(srv.URL), &stubParser{items: rawItems(9)}, previous)

	if !out.Status.OK || out.Status.Used != models.UsedCached {
		t.Fatalf("expected cached path: %+v", out.Status)
	}
	if len(out.Posts) != 4 {
		t.Errorf("cached path must republish previous unchanged, got %d posts", len(out.Posts))
	}
}

func TestEmptyRepoEscapeForcesRefetch(t *testing.T) {
	var forced bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		forced = true
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte("body"))
	}))
	defer srv.Close()

	cache := fetch.LoadCache(filepath.Join(t.TempDir(), "cache.json"))
	cache.Entry(srv.URL).ETag = `"v1"`
	client := fetch.NewClient(config.FetchConfig{TimeoutSeconds: 5}, cache, logger.Default())
	r := New(client, testDrop, false, logger.Default())

	out := r.Run(context.Background(), src(srv.URL), &stubParser{items: rawItems(2)}, nil)

	if !forced {
		t.Fatal("empty history must force an unconditional refetch")
	}
	if !out.Status.OK || out.Status.Used != models.UsedFetched {
		t.Fatalf("forced refetch should publish fresh posts: %+v", out.Status)
	}
	if len(out.Posts) != 2 {
		t.Errorf("got %d posts, want 2", len(out.Posts))
	}
}

func TestIncludeFilter(t *testing.T) {
	srv := okServer(t, "ignored")
	r := newRunner(t)

	items := []models.RawItem{
		{Title: "AI breakthrough", URL: "https://x.test/1", PublishedAt: "2026-08-30T00:00:00Z"},
		{Title: "Gardening tips", URL: "https://x.test/2", PublishedAt: "2026-08-30T00:00:00Z"},
	}
	s := src(srv.URL)
	s.Include = `(?i)\bai\b`

	out := r.Run(context.Background(), s, &stubParser{items: items}, nil)

	if out.Status.Raw != 2 || out.Status.Filtered != 1 {
		t.Errorf("raw=%d filtered=%d, want 2/1", out.Status.Raw, out.Status.Filtered)
	}
	if len(out.Posts) != 1 || out.Posts[0].Title != "AI breakthrough" {
		t.Errorf("filter kept wrong items: %+v", out.Posts)
	}
}

func TestEndToEndFeedScenario(t *testing.T) {
	rss := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>X</title><link>http://x.test</link>
<item><title>Foo</title><link>http://x.test/1</link><pubDate>Mon, 31 Aug 2026 10:00:00 GMT</pubDate></item>
</channel></rss>`
	srv := okServer(t, rss)
	r := newRunner(t)

	s := src(srv.URL)
	parser := feed.New(s, logger.Default())
	previous := prevPosts(15)

	out := r.Run(context.Background(), s, parser, previous)

	if !out.Status.OK {
		t.Fatalf("single fresh item against 15 previous must be accepted: %+v", out.Status)
	}
	if out.Status.Raw != 1 || out.Status.New != 1 {
		t.Errorf("raw=%d new=%d, want 1/1", out.Status.Raw, out.Status.New)
	}
	if len(out.Posts) != 1 || out.Posts[0].Title != "Foo" {
		t.Fatalf("unexpected posts: %+v", out.Posts)
	}
	if out.Posts[0].PublishedAt != "2026-08-31T10:00:00Z" {
		t.Errorf("publishedAt = %q", out.Posts[0].PublishedAt)
	}
}
