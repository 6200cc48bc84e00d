// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Linker   LinkerConfig   `mapstructure:"linker"`
	Keywords KeywordsConfig `mapstructure:"keywords"`
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Storage  StorageConfig  `mapstructure:"storage"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	License  LicenseConfig  `mapstructure:"license"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
	ShutdownSeconds       int `mapstructure:"shutdown_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// LinkerConfig tunes the injection engine.
type LinkerConfig struct {
	PerTargetCap int `mapstructure:"per_target_cap"`
}

// KeywordsConfig selects where the keyword table is loaded from.
type KeywordsConfig struct {
	Source   string         `mapstructure:"source"`
	CSVPath  string         `mapstructure:"csv_path"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	// ReloadSchedule is a cron expression for periodic reloads; empty disables them.
	ReloadSchedule string `mapstructure:"reload_schedule"`
}

// PostgresConfig controls access to the keyword table database.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int    `mapstructure:"max_conns"`
}

// CrawlerConfig governs link discovery for keyword generation.
type CrawlerConfig struct {
	UserAgent       string   `mapstructure:"user_agent"`
	TimeoutSeconds  int      `mapstructure:"timeout_seconds"`
	Parallelism     int      `mapstructure:"parallelism"`
	DelayMillis     int      `mapstructure:"delay_ms"`
	MaxURLs         int      `mapstructure:"max_urls"`
	MaxDepthDefault int      `mapstructure:"max_depth_default"`
	RespectRobots   bool     `mapstructure:"respect_robots"`
	ExcludePaths    []string `mapstructure:"exclude_paths"`
	// SkipExtensions overrides the crawler's built-in file extension list.
	SkipExtensions []string `mapstructure:"skip_extensions"`
}

// LLMConfig configures the completion provider and the generation prompts.
type LLMConfig struct {
	Provider       string  `mapstructure:"provider"`
	APIURL         string  `mapstructure:"api_url"`
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	BatchSize      int     `mapstructure:"batch_size"`
	Concurrency    int     `mapstructure:"concurrency"`
	Language       string  `mapstructure:"language"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	Temperature    float64 `mapstructure:"temperature"`
	// RequestsPerSecond throttles provider calls; zero disables throttling.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// StorageConfig sets the export backend for generated keyword tables.
type StorageConfig struct {
	Backend         string   `mapstructure:"backend"`
	GCSBucket       string   `mapstructure:"gcs_bucket"`
	GCSCacheControl string   `mapstructure:"gcs_cache_control"`
	LocalDir        string   `mapstructure:"local_dir"`
	Prefix          string   `mapstructure:"prefix"`
	S3              S3Config `mapstructure:"s3"`
}

// S3Config points the s3 backend at AWS or an S3-compatible endpoint.
type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// LicenseConfig enables product-key redemption for plugin clients.
type LicenseConfig struct {
	Enabled       bool               `mapstructure:"enabled"`
	Secret        string             `mapstructure:"secret"`
	TokenTTLHours int                `mapstructure:"token_ttl_hours"`
	Keys          []LicenseKeyConfig `mapstructure:"keys"`
}

// LicenseKeyConfig is one redeemable product key. Expires is a YYYY-MM-DD
// date; empty never expires.
type LicenseKeyConfig struct {
	Key     string `mapstructure:"key"`
	User    string `mapstructure:"user"`
	Expires string `mapstructure:"expires"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LINKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return Config{}, fmt.Errorf("parse PORT: %w", err)
		}
		cfg.Server.Port = p
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 120)
	v.SetDefault("server.shutdown_seconds", 10)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("logging.development", false)
	v.SetDefault("linker.per_target_cap", 2)
	v.SetDefault("keywords.source", "csv")
	v.SetDefault("keywords.csv_path", "keyword_url_list.csv")
	v.SetDefault("keywords.postgres.table", "keyword_urls")
	v.SetDefault("keywords.postgres.max_conns", 4)
	v.SetDefault("crawler.user_agent", "seo-linker-bot/0.1")
	v.SetDefault("crawler.timeout_seconds", 10)
	v.SetDefault("crawler.parallelism", 4)
	v.SetDefault("crawler.delay_ms", 0)
	v.SetDefault("crawler.max_urls", 500)
	v.SetDefault("crawler.max_depth_default", 2)
	v.SetDefault("crawler.respect_robots", true)
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.api_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-3.5-turbo")
	v.SetDefault("llm.timeout_seconds", 60)
	v.SetDefault("llm.batch_size", 10)
	v.SetDefault("llm.concurrency", 2)
	v.SetDefault("llm.language", "German")
	v.SetDefault("llm.max_tokens", 150)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.requests_per_second", 0)
	v.SetDefault("llm.burst", 1)
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.local_dir", "exports")
	v.SetDefault("storage.prefix", "keywords")
	v.SetDefault("storage.gcs_cache_control", "private, max-age=0")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("license.enabled", false)
	v.SetDefault("license.token_ttl_hours", 720)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Linker.PerTargetCap <= 0 {
		return fmt.Errorf("linker.per_target_cap must be > 0")
	}
	switch c.Keywords.Source {
	case "csv":
		if c.Keywords.CSVPath == "" {
			return fmt.Errorf("keywords.csv_path must be set for the csv source")
		}
	case "postgres":
		if c.Keywords.Postgres.DSN == "" {
			return fmt.Errorf("keywords.postgres.dsn must be set for the postgres source")
		}
	default:
		return fmt.Errorf("keywords.source must be csv or postgres, got %q", c.Keywords.Source)
	}
	if c.Crawler.TimeoutSeconds <= 0 {
		return fmt.Errorf("crawler.timeout_seconds must be > 0")
	}
	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("llm.provider must be openai or gemini, got %q", c.LLM.Provider)
	}
	if c.LLM.BatchSize <= 0 {
		return fmt.Errorf("llm.batch_size must be > 0")
	}
	if c.LLM.Concurrency <= 0 {
		return fmt.Errorf("llm.concurrency must be > 0")
	}
	switch c.Storage.Backend {
	case "memory":
	case "local":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.local_dir must be set for the local backend")
		}
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set for the gcs backend")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket must be set for the s3 backend")
		}
	default:
		return fmt.Errorf("storage.backend must be memory, local, gcs or s3, got %q", c.Storage.Backend)
	}
	if (c.PubSub.ProjectID == "") != (c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set together")
	}
	if c.License.Enabled {
		if c.License.Secret == "" {
			return fmt.Errorf("license.secret must be set when licensing is enabled")
		}
		if c.License.TokenTTLHours <= 0 {
			return fmt.Errorf("license.token_ttl_hours must be > 0")
		}
		for i, k := range c.License.Keys {
			if strings.TrimSpace(k.Key) == "" || k.User == "" {
				return fmt.Errorf("license.keys[%d] needs key and user", i)
			}
			if k.Expires != "" {
				if _, err := time.Parse(time.DateOnly, k.Expires); err != nil {
					return fmt.Errorf("license.keys[%d].expires: %w", i, err)
				}
			}
		}
	}
	return nil
}

// CrawlTimeout converts the crawler timeout into a duration.
func (c Config) CrawlTimeout() time.Duration {
	return time.Duration(c.Crawler.TimeoutSeconds) * time.Second
}

// LLMTimeout converts the LLM timeout into a duration.
func (c Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// LicenseTTL converts the token lifetime into a duration.
func (c Config) LicenseTTL() time.Duration {
	return time.Duration(c.License.TokenTTLHours) * time.Hour
}

// RequestTimeout converts the per-request handler timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}
