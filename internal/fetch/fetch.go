package fetch

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/newswire-agent/internal/config"
	"github.com/newswire-agent/pkg/logger"
)

const maxErrorLen = 300

// Options control a single conditional fetch.
type Options struct {
	// Force skips the conditional headers so the origin must return a
	// full body. Used by the empty-repo escape.
	Force bool
	// Persist controls whether a successful fetch writes the updated
	// cache entry to disk immediately. Dry runs batch instead.
	Persist bool
}

// Result is the typed outcome of a fetch. Failures are carried as data:
// nothing escapes this component as a panic.
type Result struct {
	OK        bool
	Status    int
	Body      string
	FromCache bool
	Err       string
}

// Client performs conditional GETs backed by the shared Cache.
type Client struct {
	http      *http.Client
	cache     *Cache
	userAgent string
	timeout   time.Duration
	log       *logger.Logger
}

// NewClient creates a fetch client. Every request carries the fixed
// timeout via context cancellation; no request may hang the run.
func NewClient(cfg config.FetchConfig, cache *Cache, log *logger.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		cache:     cache,
		userAgent: cfg.UserAgent,
		timeout:   timeout,
		log:       log.WithComponent("fetch"),
	}
}

// Fetch performs a conditional GET against url.
//
// On 304 it returns FromCache=true with an empty body; the caller must
// supply the previously retained content. On 2xx the cache entry's
// validators are refreshed and persisted. Non-2xx statuses and network
// errors come back as a failed Result carrying the status (if any) and
// a bounded error string.
func (c *Client) Fetch(ctx context.Context, url string, opts Options) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{Err: clipErr(err)}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	entry := c.cache.Entry(url)
	if !opts.Force {
		if entry.ETag != "" {
			req.Header.Set("If-None-Match", entry.ETag)
		}
		if entry.LastModified != "" {
			req.Header.Set("If-Modified-Since", entry.LastModified)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Str("url", url).Err(err).Msg("Fetch failed")
		return Result{Err: clipErr(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		c.log.Debug().Str("url", url).Msg("Not modified")
		return Result{OK: true, Status: resp.StatusCode, FromCache: true}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{
			Status: resp.StatusCode,
			Err:    clip("unexpected status "+resp.Status, maxErrorLen),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Status: resp.StatusCode, Err: clipErr(err)}
	}

	entry.ETag = resp.Header.Get("ETag")
	entry.LastModified = resp.Header.Get("Last-Modified")
	entry.LastOkAt = time.Now().UTC()

	if opts.Persist {
		if err := c.cache.Persist(); err != nil {
			c.log.Warn().Err(err).Msg("Failed to persist HTTP cache")
		}
	}

	return Result{OK: true, Status: resp.StatusCode, Body: string(body)}
}

func clipErr(err error) string {
	return clip(err.Error(), maxErrorLen)
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
