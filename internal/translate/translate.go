package translate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"unicode"

	"github.com/newswire-agent/internal/config"
	"github.com/newswire-agent/internal/models"
	"github.com/newswire-agent/pkg/logger"
)

// Stats summarizes one translation pass.
type Stats struct {
	Posts      int
	Translated int
	CacheHits  int
	Skipped    int
	Failed     int
}

// Translator fills Post.Translations for the configured target language.
// Every provider call is memoized in a JSON file keyed by a hash of
// (language, text), so unchanged posts never hit the provider twice
// across runs.
type Translator struct {
	cfg      config.TranslateConfig
	provider Provider
	log      *logger.Logger

	mu    sync.Mutex
	cache map[string]string
	dirty bool
}

// New creates a translator. Provider may be nil, in which case only the
// cache is consulted.
func New(cfg config.TranslateConfig, provider Provider, log *logger.Logger) *Translator {
	t := &Translator{
		cfg:      cfg,
		provider: provider,
		log:      log.WithComponent("translate"),
		cache:    map[string]string{},
	}
	t.loadCache()
	return t
}

// cacheKey addresses one (language, text) pair. The separator keeps
// "ja"+"panese text" from colliding with "jap"+"anese text".
func cacheKey(lang, text string) string {
	sum := sha256.Sum256([]byte(lang + "::" + text))
	return hex.EncodeToString(sum[:])
}

// isMostlyJapanese reports whether the text already contains kana, in
// which case translating into Japanese is a wasted call. Han runes alone
// are not enough: a Chinese headline has those too.
func isMostlyJapanese(text string) bool {
	for _, r := range text {
		if unicode.In(r, unicode.Hiragana, unicode.Katakana) {
			return true
		}
	}
	return false
}

// skip reports whether a text fragment needs no translation into lang.
// A post from a source declared in the target language is skipped
// outright; the kana check catches Japanese text from sources without a
// declared language.
func skip(lang, sourceLang, text string) bool {
	if text == "" {
		return true
	}
	if sourceLang != "" && sourceLang == lang {
		return true
	}
	if lang == "ja" && isMostlyJapanese(text) {
		return true
	}
	return false
}

// Run translates title and summary for up to MaxPosts posts that lack a
// translation for the target language, mutating posts in place.
func (t *Translator) Run(ctx context.Context, posts []models.Post) Stats {
	var stats Stats
	lang := t.cfg.TargetLang
	if lang == "" || t.provider == nil {
		return stats
	}

	budget := t.cfg.MaxPosts
	if budget <= 0 {
		budget = 30
	}

	for i := range posts {
		if stats.Posts >= budget || ctx.Err() != nil {
			break
		}
		p := &posts[i]
		if _, done := p.Translations[lang]; done {
			continue
		}

		title, titleOK := t.text(ctx, lang, p.Lang, p.Title, &stats)
		summary, summaryOK := t.text(ctx, lang, p.Lang, p.Summary, &stats)
		if !titleOK && !summaryOK {
			continue
		}

		if p.Translations == nil {
			p.Translations = map[string]models.Translated{}
		}
		p.Translations[lang] = models.Translated{Title: title, Summary: summary}
		stats.Posts++
	}

	t.persistCache()
	t.log.Info().
		Str("lang", lang).
		Int("posts", stats.Posts).
		Int("translated", stats.Translated).
		Int("cache_hits", stats.CacheHits).
		Int("failed", stats.Failed).
		Msg("Translation pass completed")
	return stats
}

// text resolves one fragment through the skip heuristic, the cache and
// finally the provider. The boolean is false when nothing usable came
// back.
func (t *Translator) text(ctx context.Context, lang, sourceLang, text string, stats *Stats) (string, bool) {
	if skip(lang, sourceLang, text) {
		stats.Skipped++
		return "", false
	}

	key := cacheKey(lang, text)
	t.mu.Lock()
	cached, hit := t.cache[key]
	t.mu.Unlock()
	if hit {
		stats.CacheHits++
		return cached, true
	}

	translated, err := t.provider.Translate(ctx, lang, text)
	if err != nil {
		stats.Failed++
		t.log.Warn().Err(err).Str("lang", lang).Msg("Translation failed, leaving post untranslated")
		return "", false
	}

	t.mu.Lock()
	t.cache[key] = translated
	t.dirty = true
	t.mu.Unlock()
	stats.Translated++
	return translated, true
}

func (t *Translator) loadCache() {
	if t.cfg.CacheFile == "" {
		return
	}
	data, err := os.ReadFile(t.cfg.CacheFile)
	if err != nil {
		return
	}
	if err := json.Unmarshal(data, &t.cache); err != nil {
		t.log.Warn().Err(err).Str("path", t.cfg.CacheFile).Msg("Corrupt translation cache, starting empty")
		t.cache = map[string]string{}
	}
}

func (t *Translator) persistCache() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.dirty || t.cfg.CacheFile == "" {
		return
	}
	data, err := json.MarshalIndent(t.cache, "", "  ")
	if err != nil {
		t.log.Warn().Err(err).Msg("Failed to encode translation cache")
		return
	}
	if err := os.MkdirAll(filepath.Dir(t.cfg.CacheFile), 0755); err != nil {
		t.log.Warn().Err(err).Msg("Failed to create translation cache directory")
		return
	}
	if err := os.WriteFile(t.cfg.CacheFile, data, 0644); err != nil {
		t.log.Warn().Err(err).Str("path", t.cfg.CacheFile).Msg("Failed to persist translation cache")
		return
	}
	t.dirty = false
}
