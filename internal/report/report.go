package report

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/newswire-agent/internal/models"
	"github.com/newswire-agent/pkg/logger"
)

// Artifact file names under the output directory. Each JSON file is
// published alongside a byte-identical gzip sibling so static hosts can
// serve precompressed content.
const (
	PostsFile         = "posts.json"
	StatusFile        = "status.json"
	StatusHistoryFile = "status-history.v1.json"
)

// Writer publishes run artifacts. Persistence failures here are the one
// error class a sync run treats as fatal: losing the snapshot means the
// next run has no history to merge against.
type Writer struct {
	dir          string
	historyLimit int
	log          *logger.Logger
}

// New creates an artifact writer rooted at dir.
func New(dir string, historyLimit int, log *logger.Logger) *Writer {
	if historyLimit <= 0 {
		historyLimit = 60
	}
	return &Writer{
		dir:          dir,
		historyLimit: historyLimit,
		log:          log.WithComponent("report"),
	}
}

// WritePosts publishes the merged snapshot.
func (w *Writer) WritePosts(posts []models.Post) error {
	if posts == nil {
		posts = []models.Post{}
	}
	return w.writeJSON(PostsFile, posts)
}

// WriteStatus publishes the run-level status rollup.
func (w *Writer) WriteStatus(status models.SyncStatus) error {
	return w.writeJSON(StatusFile, status)
}

// AppendHistory loads the history file, appends one entry and rewrites
// the file keeping only the newest historyLimit entries. A corrupt or
// missing history file starts over empty rather than failing the run.
func (w *Writer) AppendHistory(entry models.StatusHistoryEntry) error {
	var history []models.StatusHistoryEntry
	data, err := os.ReadFile(filepath.Join(w.dir, StatusHistoryFile))
	if err == nil {
		if err := json.Unmarshal(data, &history); err != nil {
			w.log.Warn().Err(err).Msg("Corrupt status history, starting over")
			history = nil
		}
	}

	history = append(history, entry)
	if len(history) > w.historyLimit {
		history = history[len(history)-w.historyLimit:]
	}
	return w.writeJSON(StatusHistoryFile, history)
}

// writeJSON writes one artifact plus its gzip sibling. The gzip file is
// compressed from the exact bytes written to the plain file.
func (w *Writer) writeJSON(name string, v any) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	data = append(data, '\n')

	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}

	gzPath := path + ".gz"
	f, err := os.Create(gzPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", gzPath, err)
	}
	gz := gzip.NewWriter(f)
	if _, err := gz.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("compressing %s: %w", name, err)
	}
	if err := gz.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finishing %s: %w", gzPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", gzPath, err)
	}

	w.log.Debug().Str("file", name).Int("bytes", len(data)).Msg("Artifact written")
	return nil
}
