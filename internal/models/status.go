package models

// Code paths a source run can take. Fallback means the previous run's
// posts were republished because the current run could not be trusted.
const (
	UsedFetched  = "fetched"
	UsedCached   = "cached"
	UsedFallback = "fallback"
)

// SourceStatus is the per-run outcome for one source. It is created
// fresh each run and never mutated after being appended to the run's
// status list.
type SourceStatus struct {
	SourceID   string `json:"sourceId"`
	Name       string `json:"name"`
	OK         bool   `json:"ok"`
	HTTPStatus int    `json:"httpStatus,omitempty"`
	DurationMs int64  `json:"durationMs"`
	Raw        int    `json:"raw"`
	Filtered   int    `json:"filtered"`
	Published  int    `json:"published"`
	New        int    `json:"new"`
	Used       string `json:"used"`
	Error      string `json:"error,omitempty"`
}

// SyncStatus is the run-level rollup written to status.json.
type SyncStatus struct {
	GeneratedAt string         `json:"generatedAt"`
	DurationMs  int64          `json:"durationMs"`
	Sources     []SourceStatus `json:"sources"`
}

// StatusHistoryEntry is one row of the bounded status-history file,
// used for trend display only.
type StatusHistoryEntry struct {
	GeneratedAt string `json:"generatedAt"`
	DurationMs  int64  `json:"durationMs"`
	Posts       int    `json:"posts"`
	NewPosts    int    `json:"newPosts"`
	SourcesOK   int    `json:"sourcesOk"`
	SourcesFail int    `json:"sourcesFail"`
}
