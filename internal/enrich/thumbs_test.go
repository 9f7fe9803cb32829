package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/newswire-agent/internal/config"
	"github.com/newswire-agent/internal/models"
	"github.com/newswire-agent/pkg/logger"
)

func thumbConfig(dir string, proxies []string) config.CoverConfig {
	return config.CoverConfig{
		Dir:         dir,
		Proxies:     proxies,
		MaxBytes:    1024,
		Concurrency: 3,
	}
}

func TestThumbnailFallbackChain(t *testing.T) {
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway) // proxy down, chain must continue
	}))
	defer proxy.Close()

	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	}))
	defer origin.Close()

	dir := t.TempDir()
	tc := NewThumbCacher(thumbConfig(dir, []string{proxy.URL + "/?url=%s"}), logger.Default())

	posts := []models.Post{{ID: "abc", Cover: origin.URL + "/img.png"}}
	cached := tc.Run(context.Background(), posts)

	if cached != 1 {
		t.Fatalf("cached = %d, want 1", cached)
	}
	if posts[0].Cover != "/covers/abc.png" {
		t.Errorf("cover = %q", posts[0].Cover)
	}
	if posts[0].CoverOriginal != origin.URL+"/img.png" {
		t.Errorf("coverOriginal = %q", posts[0].CoverOriginal)
	}
	if _, err := os.Stat(filepath.Join(dir, "abc.png")); err != nil {
		t.Errorf("thumbnail file missing: %v", err)
	}
}

func TestThumbnailRejectsWrongTypeAndOversize(t *testing.T) {
	htmlSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>not an image</html>"))
	}))
	defer htmlSrv.Close()

	bigSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer bigSrv.Close()

	dir := t.TempDir()
	tc := NewThumbCacher(thumbConfig(dir, nil), logger.Default())

	posts := []models.Post{
		{ID: "p1", Cover: htmlSrv.URL + "/x"},
		{ID: "p2", Cover: bigSrv.URL + "/big.jpg"},
	}
	if cached := tc.Run(context.Background(), posts); cached != 0 {
		t.Fatalf("cached = %d, want 0", cached)
	}
	if posts[0].Cover != htmlSrv.URL+"/x" || posts[1].Cover != bigSrv.URL+"/big.jpg" {
		t.Error("rejected downloads must leave posts untouched")
	}
}

func TestRepairLocalCovers(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "exists.jpg"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	posts := []models.Post{
		{ID: "a", Cover: "/covers/exists.jpg", CoverOriginal: "https://cdn.test/a.jpg"},
		{ID: "b", Cover: "/covers/missing.jpg", CoverOriginal: "https://cdn.test/b.jpg"},
		{ID: "c", Cover: "https://cdn.test/remote.jpg"},
	}

	repaired := RepairLocalCovers(posts, dir, logger.Default())

	if repaired != 1 {
		t.Fatalf("repaired = %d, want 1", repaired)
	}
	if posts[0].Cover != "/covers/exists.jpg" {
		t.Error("existing local cover must be left alone")
	}
	if posts[1].Cover != "https://cdn.test/b.jpg" {
		t.Errorf("missing local cover must revert to original, got %q", posts[1].Cover)
	}
	if posts[2].Cover != "https://cdn.test/remote.jpg" {
		t.Error("remote covers must be untouched")
	}
}
