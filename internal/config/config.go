package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Output    OutputConfig    `mapstructure:"output"`
	Retention RetentionConfig `mapstructure:"retention"`
	ParseDrop ParseDropConfig `mapstructure:"parse_drop"`
	Enrich    EnrichConfig    `mapstructure:"enrich"`
	Cover     CoverConfig     `mapstructure:"cover"`
	Translate TranslateConfig `mapstructure:"translate"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// FetchConfig holds source fetching and HTTP cache settings
type FetchConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	CacheFile      string `mapstructure:"cache_file"`
}

// OutputConfig holds output artifact locations
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
	// RemoteSnapshotURL is the deployed copy of posts.json, fetched as
	// a read-repair fallback when local history is absent.
	RemoteSnapshotURL string `mapstructure:"remote_snapshot_url"`
	HistoryLimit      int    `mapstructure:"history_limit"`
}

// RetentionConfig windows the merged snapshot
type RetentionConfig struct {
	Days  int `mapstructure:"days"`
	Limit int `mapstructure:"limit"`
}

// ParseDropConfig holds the anomaly-guard thresholds. A run is rejected
// when the source previously had at least MinPrev posts and the raw item
// count falls below max(MinKeep, floor(prev*Ratio)).
type ParseDropConfig struct {
	MinPrev int     `mapstructure:"min_prev"`
	MinKeep int     `mapstructure:"min_keep"`
	Ratio   float64 `mapstructure:"ratio"`
}

// EnrichConfig holds cover/preview enrichment budgets
type EnrichConfig struct {
	MaxTotal            int     `mapstructure:"max_total"`
	MaxPerSource        int     `mapstructure:"max_per_source"`
	DelayMs             int     `mapstructure:"delay_ms"`
	CoverMissTTLHours   int     `mapstructure:"cover_miss_ttl_hours"`
	PreviewMissTTLHours int     `mapstructure:"preview_miss_ttl_hours"`
	MinPreviewLen       int     `mapstructure:"min_preview_len"`
	HostRPS             float64 `mapstructure:"host_rps"`
}

// CoverConfig holds thumbnail caching settings
type CoverConfig struct {
	Dir         string   `mapstructure:"dir"`
	Proxies     []string `mapstructure:"proxies"` // resize proxy URL templates, %s = escaped source URL
	MaxBytes    int64    `mapstructure:"max_bytes"`
	Concurrency int      `mapstructure:"concurrency"`
}

// TranslateConfig holds translation provider settings
type TranslateConfig struct {
	Provider       string `mapstructure:"provider"` // off, http or anthropic
	TargetLang     string `mapstructure:"target_lang"`
	Endpoint       string `mapstructure:"endpoint"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxPosts       int    `mapstructure:"max_posts"`
	CacheFile      string `mapstructure:"cache_file"`
}

// ArchiveConfig holds the optional sqlite post archive settings
type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// SchedulerConfig holds scheduler settings
type SchedulerConfig struct {
	SyncCron string `mapstructure:"sync_cron"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout or file path
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Load .env file if present (ignore errors if not found)
	_ = godotenv.Load()
	_ = godotenv.Load(".env.local")

	v := viper.New()

	setDefaults(v)

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".newswire-agent"))
		}
	}

	// Environment variables
	v.SetEnvPrefix("NEWSWIRE")
	v.AutomaticEnv()

	// Explicit bindings for nested keys (Viper doesn't auto-bind underscored nested keys)
	v.BindEnv("fetch.timeout_seconds", "NEWSWIRE_FETCH_TIMEOUT_SECONDS")
	v.BindEnv("output.remote_snapshot_url", "NEWSWIRE_OUTPUT_REMOTE_SNAPSHOT_URL")
	v.BindEnv("retention.days", "NEWSWIRE_RETENTION_DAYS")
	v.BindEnv("retention.limit", "NEWSWIRE_RETENTION_LIMIT")
	v.BindEnv("parse_drop.min_prev", "NEWSWIRE_PARSE_DROP_MIN_PREV")
	v.BindEnv("parse_drop.min_keep", "NEWSWIRE_PARSE_DROP_MIN_KEEP")
	v.BindEnv("parse_drop.ratio", "NEWSWIRE_PARSE_DROP_RATIO")
	v.BindEnv("enrich.max_total", "NEWSWIRE_ENRICH_MAX_TOTAL")
	v.BindEnv("enrich.max_per_source", "NEWSWIRE_ENRICH_MAX_PER_SOURCE")
	v.BindEnv("enrich.delay_ms", "NEWSWIRE_ENRICH_DELAY_MS")
	v.BindEnv("enrich.cover_miss_ttl_hours", "NEWSWIRE_ENRICH_COVER_MISS_TTL_HOURS")
	v.BindEnv("enrich.preview_miss_ttl_hours", "NEWSWIRE_ENRICH_PREVIEW_MISS_TTL_HOURS")
	v.BindEnv("cover.max_bytes", "NEWSWIRE_COVER_MAX_BYTES")
	v.BindEnv("cover.concurrency", "NEWSWIRE_COVER_CONCURRENCY")
	v.BindEnv("translate.provider", "NEWSWIRE_TRANSLATE_PROVIDER")
	v.BindEnv("translate.api_key", "NEWSWIRE_TRANSLATE_API_KEY")
	v.BindEnv("translate.endpoint", "NEWSWIRE_TRANSLATE_ENDPOINT")
	v.BindEnv("translate.max_posts", "NEWSWIRE_TRANSLATE_MAX_POSTS")
	v.BindEnv("archive.enabled", "NEWSWIRE_ARCHIVE_ENABLED")
	v.BindEnv("archive.dsn", "NEWSWIRE_ARCHIVE_DSN")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Fetch defaults
	v.SetDefault("fetch.timeout_seconds", 25)
	v.SetDefault("fetch.user_agent", "newswire-agent/1.0 (+https://github.com/newswire-agent)")
	v.SetDefault("fetch.cache_file", "./data/http-cache.json")

	// Output defaults
	v.SetDefault("output.dir", "./public/data")
	v.SetDefault("output.history_limit", 60)

	// Retention defaults
	v.SetDefault("retention.days", 30)
	v.SetDefault("retention.limit", 400)

	// Anomaly guard defaults; tuned empirically, keep in sync with runner tests
	v.SetDefault("parse_drop.min_prev", 12)
	v.SetDefault("parse_drop.min_keep", 3)
	v.SetDefault("parse_drop.ratio", 0.15)

	// Enrichment defaults
	v.SetDefault("enrich.max_total", 40)
	v.SetDefault("enrich.max_per_source", 8)
	v.SetDefault("enrich.delay_ms", 700)
	v.SetDefault("enrich.cover_miss_ttl_hours", 72)
	v.SetDefault("enrich.preview_miss_ttl_hours", 24)
	v.SetDefault("enrich.min_preview_len", 120)
	v.SetDefault("enrich.host_rps", 1)

	// Cover thumbnail defaults
	v.SetDefault("cover.dir", "./public/covers")
	v.SetDefault("cover.proxies", []string{
		"https://images.weserv.nl/?w=640&url=%s",
		"https://wsrv.nl/?w=640&url=%s",
	})
	v.SetDefault("cover.max_bytes", 1<<20)
	v.SetDefault("cover.concurrency", 6)

	// Translation defaults
	v.SetDefault("translate.provider", "off")
	v.SetDefault("translate.target_lang", "ja")
	v.SetDefault("translate.model", "claude-sonnet-4-20250514")
	v.SetDefault("translate.timeout_seconds", 20)
	v.SetDefault("translate.max_posts", 30)
	v.SetDefault("translate.cache_file", "./data/translate-cache.json")

	// Archive defaults
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.dsn", "./data/archive.db")

	// Scheduler defaults
	v.SetDefault("scheduler.sync_cron", "0 */2 * * *") // Every 2 hours

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Retention.Days <= 0 {
		return fmt.Errorf("retention.days must be positive")
	}
	if c.Retention.Limit <= 0 {
		return fmt.Errorf("retention.limit must be positive")
	}
	if c.ParseDrop.Ratio < 0 || c.ParseDrop.Ratio > 1 {
		return fmt.Errorf("parse_drop.ratio must be within [0,1]")
	}
	switch c.Translate.Provider {
	case "off", "http", "anthropic":
	default:
		return fmt.Errorf("translate.provider must be off, http or anthropic")
	}
	if c.Translate.Provider == "anthropic" && c.Translate.APIKey == "" {
		return fmt.Errorf("translate.api_key is required for the anthropic provider")
	}
	if c.Translate.Provider == "http" && c.Translate.Endpoint == "" {
		return fmt.Errorf("translate.endpoint is required for the http provider")
	}
	return nil
}
