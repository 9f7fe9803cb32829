package runner

import (
	"context"
	"regexp"
	"time"

	"github.com/newswire-agent/internal/config"
	"github.com/newswire-agent/internal/fetch"
	"github.com/newswire-agent/internal/models"
	"github.com/newswire-agent/internal/normalize"
	"github.com/newswire-agent/internal/source"
	"github.com/newswire-agent/pkg/logger"
)

const maxErrorLen = 300

// Runner drives one source through fetch → parse → filter → normalize →
// anomaly-check. Every failure mode degrades to republishing the
// previous run's posts: a transient outage becomes "stale", never
// "empty".
type Runner struct {
	client  *fetch.Client
	drop    config.ParseDropConfig
	persist bool
	log     *logger.Logger
}

// Outcome is the result of one source run.
type Outcome struct {
	Posts  []models.Post
	Status models.SourceStatus
}

// New creates a source runner. persist controls whether cache updates
// hit disk after every fetch (disabled for dry runs).
func New(client *fetch.Client, drop config.ParseDropConfig, persist bool, log *logger.Logger) *Runner {
	return &Runner{
		client:  client,
		drop:    drop,
		persist: persist,
		log:     log.WithComponent("runner"),
	}
}

// Run executes the per-source state machine:
// fetching → (cached | fetched | failed); on fetched, parsing →
// (parsed | parse_empty | parse_drop) → included.
func (r *Runner) Run(ctx context.Context, src models.SourceConfig, parser source.Parser, previous []models.Post) Outcome {
	start := time.Now()
	log := r.log.WithSource(string(src.Kind), src.ID)

	res := r.client.Fetch(ctx, src.URL, fetch.Options{Persist: r.persist})

	// Empty-repo escape: a 304 with no historical data would leave the
	// source permanently empty, so force one unconditional refetch.
	if res.FromCache && len(previous) == 0 {
		log.Info().Msg("304 with empty history, forcing refetch")
		res = r.client.Fetch(ctx, src.URL, fetch.Options{Force: true, Persist: r.persist})
	}

	if res.FromCache {
		log.Debug().Int("posts", len(previous)).Msg("Source unchanged, republishing previous")
		return r.finish(src, start, Outcome{
			Posts: previous,
			Status: models.SourceStatus{
				OK:         true,
				HTTPStatus: res.Status,
				Published:  len(previous),
				Used:       models.UsedCached,
			},
		})
	}

	if !res.OK {
		log.Warn().Str("error", res.Err).Int("status", res.Status).Msg("Fetch failed, falling back to previous")
		return r.fallback(src, start, res.Status, res.Err, previous)
	}

	items, err := parser.Parse(res.Body)
	if err != nil {
		log.Warn().Err(err).Msg("Parse failed, falling back to previous")
		return r.fallback(src, start, res.Status, clip(err.Error()), previous)
	}

	// Zero items out of a successful fetch is indistinguishable from
	// structural drift; publishing an empty source is worse than stale.
	if len(items) == 0 {
		log.Warn().Msg("Parse returned no items, falling back to previous")
		return r.fallback(src, start, res.Status, "parse_empty: no items extracted", previous)
	}

	if reject, errStr := r.checkDrop(len(previous), len(items)); reject {
		log.Warn().
			Int("raw", len(items)).
			Int("previous", len(previous)).
			Msg("Anomalous item-count drop, falling back to previous")
		out := r.fallback(src, start, res.Status, errStr, previous)
		out.Status.Raw = len(items)
		return out
	}

	filtered := r.applyInclude(src, items, log)

	posts := make([]models.Post, 0, len(filtered))
	for _, item := range filtered {
		posts = append(posts, normalize.Post(item, src))
	}

	prevIDs := make(map[string]bool, len(previous))
	for _, p := range previous {
		prevIDs[p.ID] = true
	}
	newCount := 0
	for _, p := range posts {
		if !prevIDs[p.ID] {
			newCount++
		}
	}

	log.Info().
		Int("raw", len(items)).
		Int("filtered", len(filtered)).
		Int("new", newCount).
		Msg("Source synced")

	return r.finish(src, start, Outcome{
		Posts: posts,
		Status: models.SourceStatus{
			OK:         true,
			HTTPStatus: res.Status,
			Raw:        len(items),
			Filtered:   len(filtered),
			Published:  len(posts),
			New:        newCount,
			Used:       models.UsedFetched,
		},
	})
}

// checkDrop applies the anomaly guard: a source that previously carried
// at least MinPrev posts must not collapse below floor(prev*Ratio) raw
// items in a single run. The ratio test only engages once its threshold
// reaches MinKeep; below that the history is too thin for a percentage
// drop to be distinguishable from normal volume swings. Catches a
// scraper silently reading the wrong DOM subtree without erroring.
func (r *Runner) checkDrop(prev, raw int) (bool, string) {
	if prev < r.drop.MinPrev {
		return false, ""
	}
	threshold := int(float64(prev) * r.drop.Ratio)
	if threshold < r.drop.MinKeep {
		return false, ""
	}
	if raw >= threshold {
		return false, ""
	}
	return true, "parse_drop: raw item count collapsed below threshold"
}

func (r *Runner) applyInclude(src models.SourceConfig, items []models.RawItem, log *logger.Logger) []models.RawItem {
	if src.Include == "" {
		return items
	}
	re, err := regexp.Compile(src.Include)
	if err != nil {
		log.Warn().Err(err).Str("include", src.Include).Msg("Invalid include filter, keeping all items")
		return items
	}
	kept := make([]models.RawItem, 0, len(items))
	for _, item := range items {
		if re.MatchString(item.Title + " " + item.Summary) {
			kept = append(kept, item)
		}
	}
	return kept
}

func (r *Runner) fallback(src models.SourceConfig, start time.Time, status int, errStr string, previous []models.Post) Outcome {
	return r.finish(src, start, Outcome{
		Posts: previous,
		Status: models.SourceStatus{
			OK:         false,
			HTTPStatus: status,
			Published:  len(previous),
			Used:       models.UsedFallback,
			Error:      errStr,
		},
	})
}

func (r *Runner) finish(src models.SourceConfig, start time.Time, out Outcome) Outcome {
	out.Status.SourceID = src.ID
	out.Status.Name = src.Name
	out.Status.DurationMs = time.Since(start).Milliseconds()
	return out
}

func clip(s string) string {
	if len(s) <= maxErrorLen {
		return s
	}
	return s[:maxErrorLen]
}
