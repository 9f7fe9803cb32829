package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/newswire-agent/internal/models"
)

// ArchivedPost is the long-term row for one story. The published
// snapshot is windowed by retention; the archive keeps everything ever
// seen, keyed by the content-address id.
type ArchivedPost struct {
	ID          string    `gorm:"primaryKey;size:32"`
	Title       string    `gorm:"not null"`
	Summary     string
	URL         string    `gorm:"not null;index"`
	PublishedAt string    `gorm:"index"`
	Cover       string
	Category    string    `gorm:"index"`
	Tags        string
	SourceID    string    `gorm:"index"`
	SourceName  string
	FirstSeenAt time.Time `gorm:"autoCreateTime"`
}

// Archive is the optional SQLite post archive.
type Archive struct {
	db *gorm.DB
}

// OpenArchive opens (creating if needed) the archive database and runs
// migrations.
func OpenArchive(dsn string) (*Archive, error) {
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open archive database: %w", err)
	}
	if err := db.AutoMigrate(&ArchivedPost{}); err != nil {
		return nil, fmt.Errorf("failed to migrate archive schema: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close closes the underlying database connection.
func (a *Archive) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Record upserts the given posts, ignoring ids already archived. Returns
// the number of newly archived rows.
func (a *Archive) Record(ctx context.Context, posts []models.Post) (int, error) {
	if len(posts) == 0 {
		return 0, nil
	}

	rows := make([]ArchivedPost, 0, len(posts))
	for _, p := range posts {
		cover := p.CoverOriginal
		if cover == "" {
			cover = p.Cover
		}
		rows = append(rows, ArchivedPost{
			ID:          p.ID,
			Title:       p.Title,
			Summary:     p.Summary,
			URL:         p.URL,
			PublishedAt: p.PublishedAt,
			Cover:       cover,
			Category:    p.Category,
			Tags:        strings.Join(p.Tags, ","),
			SourceID:    p.SourceID,
			SourceName:  p.SourceName,
		})
	}

	result := a.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows)
	if result.Error != nil {
		return 0, fmt.Errorf("archiving posts: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}

// Count returns the total number of archived posts.
func (a *Archive) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := a.db.WithContext(ctx).Model(&ArchivedPost{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
