package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/newswire-agent/internal/config"
	"github.com/newswire-agent/pkg/logger"
)

func newTestClient(t *testing.T) (*Client, *Cache) {
	t.Helper()
	cache := LoadCache(filepath.Join(t.TempDir(), "http-cache.json"))
	client := NewClient(config.FetchConfig{TimeoutSeconds: 5}, cache, logger.Default())
	return client, cache
}

func TestFetchStoresValidators(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	client, cache := newTestClient(t)
	res := client.Fetch(context.Background(), srv.URL, Options{Persist: true})

	if !res.OK || res.FromCache {
		t.Fatalf("expected fresh OK result, got %+v", res)
	}
	if res.Body != "hello" {
		t.Errorf("body = %q", res.Body)
	}
	entry, ok := cache.Peek(srv.URL)
	if !ok {
		t.Fatal("cache entry missing")
	}
	if entry.ETag != `"v1"` || entry.LastModified == "" || entry.LastOkAt.IsZero() {
		t.Errorf("validators not stored: %+v", entry)
	}
}

func TestFetch304RoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	client, _ := newTestClient(t)
	ctx := context.Background()

	first := client.Fetch(ctx, srv.URL, Options{})
	if !first.OK || first.FromCache {
		t.Fatalf("first fetch: %+v", first)
	}

	second := client.Fetch(ctx, srv.URL, Options{})
	if !second.OK || !second.FromCache {
		t.Fatalf("expected 304 cache hit, got %+v", second)
	}
	if second.Body != "" {
		t.Errorf("304 should carry an empty body, got %q", second.Body)
	}
}

func TestFetchForceSkipsConditionalHeaders(t *testing.T) {
	var sawConditional bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			sawConditional = true
		}
		w.Header().Set("ETag", `"v2"`)
		w.Write([]byte("fresh"))
	}))
	defer srv.Close()

	client, cache := newTestClient(t)
	cache.Entry(srv.URL).ETag = `"v1"`

	res := client.Fetch(context.Background(), srv.URL, Options{Force: true})
	if !res.OK || res.Body != "fresh" {
		t.Fatalf("forced fetch: %+v", res)
	}
	if sawConditional {
		t.Error("force should omit conditional headers")
	}
}

func TestFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client, _ := newTestClient(t)
	res := client.Fetch(context.Background(), srv.URL, Options{})
	if res.OK {
		t.Fatal("5xx must not report OK")
	}
	if res.Status != http.StatusBadGateway {
		t.Errorf("status = %d", res.Status)
	}
	if res.Err == "" {
		t.Error("expected error string")
	}
}

func TestFetchNetworkError(t *testing.T) {
	client, _ := newTestClient(t)
	res := client.Fetch(context.Background(), "http://127.0.0.1:1", Options{})
	if res.OK || res.Err == "" {
		t.Fatalf("expected typed failure, got %+v", res)
	}
}

func TestCachePersistRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	c := LoadCache(path)
	c.Entry("http://a.test").ETag = `"x"`
	if err := c.Persist(); err != nil {
		t.Fatal(err)
	}

	reloaded := LoadCache(path)
	entry, ok := reloaded.Peek("http://a.test")
	if !ok || entry.ETag != `"x"` {
		t.Fatalf("reload lost entry: %+v ok=%v", entry, ok)
	}
}
