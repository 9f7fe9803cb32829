package models

import "time"

// CacheEntry is the on-disk HTTP cache record for one request URL.
// Entries are never deleted; they only accumulate fresher timestamps.
// The enrichment miss/ok timestamps are tracked independently for cover
// and preview since the two can succeed or fail on different runs.
type CacheEntry struct {
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"lastModified,omitempty"`
	LastOkAt     time.Time `json:"lastOkAt,omitzero"`

	CoverMissAt   time.Time `json:"coverMissAt,omitzero"`
	CoverOkAt     time.Time `json:"coverOkAt,omitzero"`
	PreviewMissAt time.Time `json:"previewMissAt,omitzero"`
	PreviewOkAt   time.Time `json:"previewOkAt,omitzero"`
}
