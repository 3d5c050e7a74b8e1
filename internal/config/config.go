// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	Headless HeadlessConfig `mapstructure:"headless"`
	GitHub   GitHubConfig   `mapstructure:"github"`
	DB       DBConfig       `mapstructure:"db"`
	Storage  StorageConfig  `mapstructure:"storage"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// CrawlerConfig governs the crawl pipeline.
type CrawlerConfig struct {
	ListingURL       string `mapstructure:"listing_url"`
	Origin           string `mapstructure:"origin"`
	Concurrency      int    `mapstructure:"concurrency"`
	TooltipTimeoutMs int    `mapstructure:"tooltip_timeout_ms"`
}

// HeadlessConfig configures the browser rendering subsystem.
type HeadlessConfig struct {
	UserAgent     string `mapstructure:"user_agent"`
	NavTimeoutSec int    `mapstructure:"nav_timeout_seconds"`
	MaxSessions   int    `mapstructure:"max_sessions"`
}

// GitHubConfig controls the repository language enrichment.
type GitHubConfig struct {
	APIBase        string `mapstructure:"api_base"`
	Token          string `mapstructure:"token"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// DBConfig controls access to the contest catalog database. An empty DSN
// disables persistence.
type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	Table        string `mapstructure:"table"`
	MaxOpenConns int32  `mapstructure:"max_open_conns"`
}

// StorageConfig sets where failed-page snapshots are archived.
type StorageConfig struct {
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for crawl summary notifications. An empty
// project ID keeps the in-memory publisher.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk and environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CODEHAWKS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// The plain GITHUB_TOKEN variable is what CI and operators already
	// export; honor it alongside the prefixed form.
	if err := v.BindEnv("github.token", "CODEHAWKS_GITHUB_TOKEN", "GITHUB_TOKEN"); err != nil {
		return Config{}, fmt.Errorf("bind github token env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("crawler.listing_url", "https://codehawks.cyfrin.io/contests?contestType=al")
	v.SetDefault("crawler.origin", "https://codehawks.cyfrin.io")
	v.SetDefault("crawler.concurrency", 10)
	v.SetDefault("crawler.tooltip_timeout_ms", 3000)
	v.SetDefault("headless.user_agent", "codehawks-scrapper/0.1")
	v.SetDefault("headless.nav_timeout_seconds", 45)
	v.SetDefault("headless.max_sessions", 12)
	v.SetDefault("github.api_base", "https://api.github.com")
	v.SetDefault("github.timeout_seconds", 10)
	v.SetDefault("db.table", "contests")
	v.SetDefault("storage.prefix", "codehawks")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.ListingURL == "" {
		return fmt.Errorf("crawler.listing_url must be set")
	}
	if c.Crawler.TooltipTimeoutMs <= 0 {
		return fmt.Errorf("crawler.tooltip_timeout_ms must be > 0")
	}
	if c.Headless.NavTimeoutSec <= 0 {
		return fmt.Errorf("headless.nav_timeout_seconds must be > 0")
	}
	if c.Headless.MaxSessions > 0 && c.Headless.MaxSessions < c.Crawler.Concurrency {
		return fmt.Errorf("headless.max_sessions must cover crawler.concurrency (plus the listing page)")
	}
	if c.PubSub.ProjectID != "" && c.PubSub.TopicName == "" {
		return fmt.Errorf("pubsub.topic_name must be set when pubsub.project_id is set")
	}
	return nil
}

// TooltipTimeout converts the millisecond knob into a duration.
func (c Config) TooltipTimeout() time.Duration {
	return time.Duration(c.Crawler.TooltipTimeoutMs) * time.Millisecond
}

// NavTimeout converts the seconds knob into a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Headless.NavTimeoutSec) * time.Second
}

// GitHubTimeout converts the seconds knob into a duration.
func (c Config) GitHubTimeout() time.Duration {
	return time.Duration(c.GitHub.TimeoutSeconds) * time.Second
}
