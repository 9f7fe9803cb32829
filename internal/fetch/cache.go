package fetch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/newswire-agent/internal/models"
)

// Cache is the on-disk HTTP cache, a plain JSON map keyed by request
// URL. It is passed explicitly to every component that reads or writes
// conditional-request metadata or enrichment timestamps; mutations are
// made visible on disk through Persist. Deleting the file is safe and
// only causes a full refetch on the next run.
type Cache struct {
	path    string
	entries map[string]*models.CacheEntry
	mu      sync.Mutex
}

// LoadCache reads the cache file at path, starting empty when the file
// is absent or unreadable.
func LoadCache(path string) *Cache {
	c := &Cache{
		path:    path,
		entries: make(map[string]*models.CacheEntry),
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		c.entries = make(map[string]*models.CacheEntry)
	}
	return c
}

// Entry returns the cache entry for url, creating it if needed. The
// returned pointer is shared; callers mutate it in place and persist
// via Persist.
func (c *Cache) Entry(url string) *models.CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[url]
	if !ok {
		e = &models.CacheEntry{}
		c.entries[url] = e
	}
	return e
}

// Peek returns the entry for url without creating one.
func (c *Cache) Peek(url string) (*models.CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[url]
	return e, ok
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Persist writes the cache map back to disk.
func (c *Cache) Persist() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dir := filepath.Dir(c.path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}
