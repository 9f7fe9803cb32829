package merge

import (
	"sort"
	"strings"
	"time"

	"github.com/newswire-agent/internal/models"
)

// coverBonus is the score weight of carrying any cover reference.
const coverBonus = 20

// score ranks collision candidates: a longer summary wins, a cover is
// worth a fixed bonus.
func score(p models.Post) int {
	s := len(p.Summary)
	if p.HasCover() {
		s += coverBonus
	}
	return s
}

// Posts folds incoming posts into the previous snapshot. The merge key
// is the lower-cased URL; on collision the higher-scoring candidate is
// kept and ties favor the incoming record. Output is sorted by
// publishedAt descending (timestamps are normalized RFC 3339, so
// lexicographic order is chronological order). Idempotent: merging the
// result with nothing yields the same set in the same order.
func Posts(previous, incoming []models.Post) []models.Post {
	byURL := make(map[string]models.Post, len(previous)+len(incoming))
	order := make([]string, 0, len(previous)+len(incoming))

	add := func(p models.Post, isIncoming bool) {
		key := strings.ToLower(p.URL)
		existing, ok := byURL[key]
		if !ok {
			byURL[key] = p
			order = append(order, key)
			return
		}
		ns, es := score(p), score(existing)
		if ns > es || (ns == es && isIncoming) {
			byURL[key] = p
		}
	}

	for _, p := range previous {
		add(p, false)
	}
	for _, p := range incoming {
		add(p, true)
	}

	merged := make([]models.Post, 0, len(order))
	for _, key := range order {
		merged = append(merged, byURL[key])
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].PublishedAt > merged[j].PublishedAt
	})
	return merged
}

// Window filters out posts older than maxAgeDays relative to now, then
// caps the result to limit items. Both run after merge so the cap
// reflects the freshest content across all sources.
func Window(posts []models.Post, maxAgeDays, limit int, now time.Time) []models.Post {
	cutoff := now.AddDate(0, 0, -maxAgeDays).UTC().Format(time.RFC3339)

	kept := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if p.PublishedAt >= cutoff {
			kept = append(kept, p)
		}
	}
	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}
