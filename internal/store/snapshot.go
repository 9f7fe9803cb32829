package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/newswire-agent/internal/models"
	"github.com/newswire-agent/internal/report"
	"github.com/newswire-agent/pkg/logger"
)

// maxSnapshotBytes bounds the remote read-repair download.
const maxSnapshotBytes = 32 << 20

// LoadPrevious returns the posts from the last published snapshot. It
// reads the local artifact first; when that is missing or corrupt and a
// remote URL is configured, it read-repairs from the deployed copy. A
// run with no recoverable history starts from an empty snapshot, it
// never fails.
func LoadPrevious(ctx context.Context, dir, remoteURL string, log *logger.Logger) []models.Post {
	log = log.WithComponent("store")

	path := filepath.Join(dir, report.PostsFile)
	if posts, err := readLocal(path); err == nil {
		log.Debug().Int("posts", len(posts)).Msg("Loaded previous snapshot")
		return posts
	} else if !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", path).Msg("Unreadable local snapshot")
	}

	if remoteURL == "" {
		log.Info().Msg("No previous snapshot, starting empty")
		return nil
	}

	posts, err := fetchRemote(ctx, remoteURL)
	if err != nil {
		log.Warn().Err(err).Str("url", remoteURL).Msg("Remote snapshot read-repair failed, starting empty")
		return nil
	}
	log.Info().Int("posts", len(posts)).Str("url", remoteURL).Msg("Recovered snapshot from remote copy")
	return posts
}

func readLocal(path string) ([]models.Post, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var posts []models.Post
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return posts, nil
}

func fetchRemote(ctx context.Context, remoteURL string) ([]models.Post, error) {
	client := &http.Client{Timeout: 25 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote snapshot returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes))
	if err != nil {
		return nil, err
	}
	var posts []models.Post
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil, fmt.Errorf("decoding remote snapshot: %w", err)
	}
	return posts, nil
}
