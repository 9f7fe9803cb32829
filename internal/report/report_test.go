package report

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/newswire-agent/internal/models"
	"github.com/newswire-agent/pkg/logger"
)

func gunzipFile(t *testing.T, path string) []byte {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	defer gz.Close()
	data, err := io.ReadAll(gz)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestWritePostsAndGzipSibling(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, 60, logger.Default())

	posts := []models.Post{
		{ID: "a", Title: "Story", URL: "https://x.test/a", PublishedAt: "2026-08-31T10:00:00Z"},
	}
	if err := w.WritePosts(posts); err != nil {
		t.Fatal(err)
	}

	plain, err := os.ReadFile(filepath.Join(dir, PostsFile))
	if err != nil {
		t.Fatal(err)
	}
	var decoded []models.Post
	if err := json.Unmarshal(plain, &decoded); err != nil {
		t.Fatalf("posts.json is not valid JSON: %v", err)
	}
	if len(decoded) != 1 || decoded[0].ID != "a" {
		t.Fatalf("decoded = %+v", decoded)
	}

	unzipped := gunzipFile(t, filepath.Join(dir, PostsFile+".gz"))
	if !bytes.Equal(plain, unzipped) {
		t.Error("gzip sibling must decompress to the exact plain bytes")
	}
}

func TestWritePostsNilBecomesEmptyArray(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, 60, logger.Default())

	if err := w.WritePosts(nil); err != nil {
		t.Fatal(err)
	}
	plain, err := os.ReadFile(filepath.Join(dir, PostsFile))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(bytes.TrimSpace(plain), []byte("[")) {
		t.Errorf("nil posts must serialize as an array, got %s", plain)
	}
}

func TestAppendHistoryBounded(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, 3, logger.Default())

	for i := 0; i < 5; i++ {
		entry := models.StatusHistoryEntry{
			GeneratedAt: fmt.Sprintf("2026-08-3%dT00:00:00Z", i),
			Posts:       i,
		}
		if err := w.AppendHistory(entry); err != nil {
			t.Fatal(err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, StatusHistoryFile))
	if err != nil {
		t.Fatal(err)
	}
	var history []models.StatusHistoryEntry
	if err := json.Unmarshal(data, &history); err != nil {
		t.Fatal(err)
	}
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	if history[0].Posts != 2 || history[2].Posts != 4 {
		t.Errorf("oldest entries should be evicted first: %+v", history)
	}
}

func TestAppendHistorySurvivesCorruptFile(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, 3, logger.Default())

	if err := os.WriteFile(filepath.Join(dir, StatusHistoryFile), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := w.AppendHistory(models.StatusHistoryEntry{GeneratedAt: "2026-09-01T00:00:00Z"}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, StatusHistoryFile))
	if err != nil {
		t.Fatal(err)
	}
	var history []models.StatusHistoryEntry
	if err := json.Unmarshal(data, &history); err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1", len(history))
	}
}
