package enrich

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/newswire-agent/internal/config"
	"github.com/newswire-agent/internal/models"
	"github.com/newswire-agent/pkg/logger"
	"github.com/newswire-agent/pkg/pool"
)

// imageExts maps acceptable content types to file extensions. Anything
// else is rejected.
var imageExts = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/avif": ".avif",
}

// LocalCoverPrefix is the published path prefix for cached thumbnails.
const LocalCoverPrefix = "/covers/"

// ThumbCacher downloads remote covers through a resize-proxy fallback
// chain and persists them locally, keyed by post id so concurrent
// workers never collide on a file.
type ThumbCacher struct {
	cfg  config.CoverConfig
	http *http.Client
	log  *logger.Logger
}

// NewThumbCacher creates a thumbnail cacher.
func NewThumbCacher(cfg config.CoverConfig, log *logger.Logger) *ThumbCacher {
	return &ThumbCacher{
		cfg:  cfg,
		http: &http.Client{Timeout: 25 * time.Second},
		log:  log.WithComponent("thumbs"),
	}
}

// Run caches thumbnails for every post with a remote cover, fanning out
// over the worker pool. Each worker mutates only the post it claimed.
// Returns the number of covers cached.
func (t *ThumbCacher) Run(ctx context.Context, posts []models.Post) int {
	if err := os.MkdirAll(t.cfg.Dir, 0755); err != nil {
		t.log.Warn().Err(err).Msg("Cannot create cover directory, skipping thumbnail pass")
		return 0
	}

	var cached atomic.Int64
	width := t.cfg.Concurrency
	if width <= 0 {
		width = 6
	}

	pool.Run(width, len(posts), func(i int) {
		p := &posts[i]
		if !strings.HasPrefix(p.Cover, "http") {
			return
		}
		remote := p.Cover
		for _, candidate := range t.chain(remote) {
			ext, data, ok := t.download(ctx, candidate)
			if !ok {
				continue
			}
			name := p.ID + ext
			if err := os.WriteFile(filepath.Join(t.cfg.Dir, name), data, 0644); err != nil {
				t.log.Warn().Err(err).Str("post_id", p.ID).Msg("Failed to write thumbnail")
				return
			}
			p.Cover = LocalCoverPrefix + name
			p.CoverOriginal = remote
			cached.Add(1)
			return
		}
	})

	n := int(cached.Load())
	t.log.Info().Int("cached", n).Msg("Thumbnail pass completed")
	return n
}

// chain builds the candidate URL sequence: each resize proxy, then the
// original rewritten to https if it was http, then the original
// verbatim.
func (t *ThumbCacher) chain(remote string) []string {
	var candidates []string
	for _, proxy := range t.cfg.Proxies {
		candidates = append(candidates, fmt.Sprintf(proxy, url.QueryEscape(remote)))
	}
	if strings.HasPrefix(remote, "http://") {
		candidates = append(candidates, "https://"+strings.TrimPrefix(remote, "http://"))
	}
	candidates = append(candidates, remote)
	return candidates
}

// download fetches one candidate and accepts it only when the
// content-type maps to a known image extension and the byte length is
// within (0, MaxBytes].
func (t *ThumbCacher) download(ctx context.Context, imageURL string) (string, []byte, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", nil, false
	}
	resp, err := t.http.Do(req)
	if err != nil {
		return "", nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, false
	}

	contentType := resp.Header.Get("Content-Type")
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	ext, ok := imageExts[strings.TrimSpace(strings.ToLower(contentType))]
	if !ok {
		return "", nil, false
	}

	data, err := readBounded(resp.Body, t.cfg.MaxBytes)
	if err != nil || len(data) == 0 || int64(len(data)) > t.cfg.MaxBytes {
		return "", nil, false
	}
	return ext, data, true
}

// RepairLocalCovers reverts posts whose local cover file does not exist
// in the current working tree (a fresh checkout rehydrating an old
// snapshot) back to their remote original, so the published snapshot
// never references files that were not materialized here.
func RepairLocalCovers(posts []models.Post, coverDir string, log *logger.Logger) int {
	repaired := 0
	for i := range posts {
		p := &posts[i]
		if !strings.HasPrefix(p.Cover, LocalCoverPrefix) {
			continue
		}
		name := strings.TrimPrefix(p.Cover, LocalCoverPrefix)
		if _, err := os.Stat(filepath.Join(coverDir, name)); err == nil {
			continue
		}
		p.Cover = p.CoverOriginal
		repaired++
	}
	if repaired > 0 {
		log.Info().Int("repaired", repaired).Msg("Reverted covers pointing at missing local files")
	}
	return repaired
}
