package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	BundlesPath string `envconfig:"BUNDLES_PATH" default:"config/bundles.md"`
	CatalogPath string `envconfig:"CATALOG_PATH" default:"docs/data.json"`

	RetentionDays    int `envconfig:"RETENTION_DAYS" default:"90"`
	MaxTotalItems    int `envconfig:"MAX_TOTAL_ITEMS" default:"6000"`
	MaxItemsPerQuery int `envconfig:"MAX_ITEMS_PER_QUERY" default:"30"`
	EnrichLimit      int `envconfig:"ENRICH_LIMIT" default:"120"`

	FeedBaseURL string `envconfig:"FEED_BASE_URL" default:"https://news.google.com/rss/search"`
	FeedHL      string `envconfig:"FEED_HL" default:"en-US"`
	FeedGL      string `envconfig:"FEED_GL" default:"US"`
	FeedCEID    string `envconfig:"FEED_CEID" default:"US:en"`

	FeedRatePerSec float64 `envconfig:"FEED_RATE_PER_SEC" default:"2"`
	FeedBurst      int     `envconfig:"FEED_BURST" default:"1"`

	UserAgent          string        `envconfig:"USER_AGENT" default:"Mozilla/5.0 (compatible; ProjectFeedsBot/1.0)"`
	HTTPTimeout        time.Duration `envconfig:"HTTP_TIMEOUT" default:"12s"`
	FetchConcurrency   int           `envconfig:"FETCH_CONCURRENCY" default:"4"`
	ResolveConcurrency int           `envconfig:"RESOLVE_CONCURRENCY" default:"8"`
	EnrichConcurrency  int           `envconfig:"ENRICH_CONCURRENCY" default:"8"`

	DetectLanguage bool   `envconfig:"DETECT_LANGUAGE" default:"true"`
	ClipCommand    string `envconfig:"CLIP_COMMAND" default:""`
	ClipDir        string `envconfig:"CLIP_DIR" default:"docs/clips"`
	ClipLimit      int    `envconfig:"CLIP_LIMIT" default:"20"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.BundlesPath) == "" {
		return fmt.Errorf("BUNDLES_PATH is required")
	}
	if strings.TrimSpace(c.CatalogPath) == "" {
		return fmt.Errorf("CATALOG_PATH is required")
	}
	if c.RetentionDays < 1 {
		return fmt.Errorf("RETENTION_DAYS must be >= 1")
	}
	if c.MaxTotalItems < 1 {
		return fmt.Errorf("MAX_TOTAL_ITEMS must be >= 1")
	}
	if c.MaxItemsPerQuery < 1 {
		return fmt.Errorf("MAX_ITEMS_PER_QUERY must be >= 1")
	}
	if c.EnrichLimit < 0 {
		return fmt.Errorf("ENRICH_LIMIT must be >= 0")
	}
	if strings.TrimSpace(c.FeedBaseURL) == "" {
		return fmt.Errorf("FEED_BASE_URL is required")
	}
	if c.FeedRatePerSec < 0 {
		return fmt.Errorf("FEED_RATE_PER_SEC must be >= 0")
	}
	if c.FeedBurst < 1 {
		return fmt.Errorf("FEED_BURST must be >= 1")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be > 0")
	}
	if c.FetchConcurrency < 1 {
		return fmt.Errorf("FETCH_CONCURRENCY must be >= 1")
	}
	if c.ResolveConcurrency < 1 {
		return fmt.Errorf("RESOLVE_CONCURRENCY must be >= 1")
	}
	if c.EnrichConcurrency < 1 {
		return fmt.Errorf("ENRICH_CONCURRENCY must be >= 1")
	}
	if c.ClipLimit < 0 {
		return fmt.Errorf("CLIP_LIMIT must be >= 0")
	}
	if strings.TrimSpace(c.ClipCommand) != "" && strings.TrimSpace(c.ClipDir) == "" {
		return fmt.Errorf("CLIP_DIR is required when CLIP_COMMAND is set")
	}
	return nil
}

// ClipArgs splits CLIP_COMMAND into the executable and its leading arguments.
func (c *Config) ClipArgs() []string {
	if c == nil {
		return nil
	}
	return strings.Fields(c.ClipCommand)
}
