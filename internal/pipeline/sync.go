package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/newswire-agent/internal/config"
	"github.com/newswire-agent/internal/enrich"
	"github.com/newswire-agent/internal/fetch"
	"github.com/newswire-agent/internal/merge"
	"github.com/newswire-agent/internal/models"
	"github.com/newswire-agent/internal/report"
	"github.com/newswire-agent/internal/runner"
	"github.com/newswire-agent/internal/source"
	"github.com/newswire-agent/internal/store"
	"github.com/newswire-agent/internal/translate"
	"github.com/newswire-agent/pkg/logger"
)

// Options are the per-invocation knobs layered over the configuration.
type Options struct {
	// DryRun computes the full result but persists nothing: no cache
	// writes, no artifacts, no enrichment side effects.
	DryRun bool
	// Days and Limit override the retention window when positive.
	Days  int
	Limit int
	// SourceID restricts the run to a single source.
	SourceID string
}

// Result is the outcome of one sync run.
type Result struct {
	Posts  []models.Post
	Status models.SyncStatus
}

// Sync is the end-to-end pipeline: previous snapshot → per-source runs →
// merge → window → enrichment → translation → artifacts. Sources are
// isolated from each other; the only fatal error class is failing to
// persist the output artifacts.
type Sync struct {
	cfg      *config.Config
	registry *source.Registry
	log      *logger.Logger
}

// New creates a sync pipeline over the given source registry.
func New(cfg *config.Config, registry *source.Registry, log *logger.Logger) *Sync {
	return &Sync{
		cfg:      cfg,
		registry: registry,
		log:      log.WithComponent("pipeline"),
	}
}

// Run executes one sync.
func (s *Sync) Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()

	sources := s.registry.All()
	if opts.SourceID != "" {
		src, ok := s.registry.ByID(opts.SourceID)
		if !ok {
			return nil, fmt.Errorf("unknown source %q", opts.SourceID)
		}
		sources = []models.SourceConfig{src}
	}

	cache := fetch.LoadCache(s.cfg.Fetch.CacheFile)
	s.log.Debug().Int("entries", cache.Len()).Msg("HTTP cache loaded")
	client := fetch.NewClient(s.cfg.Fetch, cache, s.log)
	run := runner.New(client, s.cfg.ParseDrop, !opts.DryRun, s.log)

	previous := store.LoadPrevious(ctx, s.cfg.Output.Dir, s.cfg.Output.RemoteSnapshotURL, s.log)
	bySource := groupBySource(previous)

	var incoming []models.Post
	statuses := make([]models.SourceStatus, 0, len(sources))
	for _, src := range sources {
		if ctx.Err() != nil {
			break
		}
		parser, err := source.ParserFor(src, s.log)
		if err != nil {
			s.log.Error().Err(err).Str("source", src.ID).Msg("No parser for source, skipping")
			statuses = append(statuses, models.SourceStatus{
				SourceID: src.ID,
				Name:     src.Name,
				Used:     models.UsedFallback,
				Error:    err.Error(),
			})
			incoming = append(incoming, bySource[src.ID]...)
			continue
		}

		out := run.Run(ctx, src, parser, bySource[src.ID])
		incoming = append(incoming, out.Posts...)
		statuses = append(statuses, out.Status)
	}

	merged := merge.Posts(previous, incoming)

	days := s.cfg.Retention.Days
	if opts.Days > 0 {
		days = opts.Days
	}
	limit := s.cfg.Retention.Limit
	if opts.Limit > 0 {
		limit = opts.Limit
	}
	posts := merge.Window(merged, days, limit, time.Now())

	if !opts.DryRun {
		enrich.RepairLocalCovers(posts, s.cfg.Cover.Dir, s.log)

		enricher := enrich.New(s.cfg.Enrich, cache, s.log)
		enricher.Run(ctx, posts)

		thumbs := enrich.NewThumbCacher(s.cfg.Cover, s.log)
		thumbs.Run(ctx, posts)

		if err := s.translatePosts(ctx, posts); err != nil {
			s.log.Warn().Err(err).Msg("Translation pass skipped")
		}

		if err := cache.Persist(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to persist HTTP cache")
		}
	}

	status := models.SyncStatus{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		DurationMs:  time.Since(start).Milliseconds(),
		Sources:     statuses,
	}

	if !opts.DryRun {
		if err := s.publish(posts, status); err != nil {
			return nil, err
		}
		s.archive(ctx, posts)
	}

	s.log.Info().
		Int("posts", len(posts)).
		Int("sources", len(statuses)).
		Bool("dry_run", opts.DryRun).
		Dur("duration", time.Since(start)).
		Msg("Sync completed")

	return &Result{Posts: posts, Status: status}, nil
}

// publish writes the output artifacts. Failures here are fatal: a lost
// snapshot leaves the next run without history.
func (s *Sync) publish(posts []models.Post, status models.SyncStatus) error {
	w := report.New(s.cfg.Output.Dir, s.cfg.Output.HistoryLimit, s.log)

	if err := w.WritePosts(posts); err != nil {
		return fmt.Errorf("publishing posts: %w", err)
	}
	if err := w.WriteStatus(status); err != nil {
		return fmt.Errorf("publishing status: %w", err)
	}

	entry := models.StatusHistoryEntry{
		GeneratedAt: status.GeneratedAt,
		DurationMs:  status.DurationMs,
		Posts:       len(posts),
	}
	for _, src := range status.Sources {
		entry.NewPosts += src.New
		if src.OK {
			entry.SourcesOK++
		} else {
			entry.SourcesFail++
		}
	}
	if err := w.AppendHistory(entry); err != nil {
		return fmt.Errorf("publishing status history: %w", err)
	}
	return nil
}

func (s *Sync) translatePosts(ctx context.Context, posts []models.Post) error {
	provider, err := translate.NewProvider(s.cfg.Translate, s.log)
	if err != nil {
		return err
	}
	if provider == nil {
		return nil
	}
	translator := translate.New(s.cfg.Translate, provider, s.log)
	translator.Run(ctx, posts)
	return nil
}

// archive records the published posts in the optional long-term store.
// Archive failures never fail the run.
func (s *Sync) archive(ctx context.Context, posts []models.Post) {
	if !s.cfg.Archive.Enabled {
		return
	}
	archive, err := store.OpenArchive(s.cfg.Archive.DSN)
	if err != nil {
		s.log.Warn().Err(err).Msg("Cannot open archive, skipping")
		return
	}
	defer archive.Close()

	n, err := archive.Record(ctx, posts)
	if err != nil {
		s.log.Warn().Err(err).Msg("Archive write failed")
		return
	}
	if n > 0 {
		s.log.Info().Int("archived", n).Msg("New posts archived")
	}
}

func groupBySource(posts []models.Post) map[string][]models.Post {
	grouped := make(map[string][]models.Post)
	for _, p := range posts {
		grouped[p.SourceID] = append(grouped[p.SourceID], p)
	}
	return grouped
}
