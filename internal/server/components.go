package server

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/seo-linker/internal/config"
	"github.com/JakeFAU/seo-linker/internal/crawler"
	"github.com/JakeFAU/seo-linker/internal/keygen"
	"github.com/JakeFAU/seo-linker/internal/keywords"
	"github.com/JakeFAU/seo-linker/internal/license"
	"github.com/JakeFAU/seo-linker/internal/llm"
)

// OpenKeywordSource returns the configured keyword source and a func that
// releases it.
func OpenKeywordSource(ctx context.Context, cfg *config.Config, logger *zap.Logger) (keywords.Source, func(), error) {
	if cfg.Keywords.Source == "postgres" {
		pg, err := keywords.NewPostgresSource(ctx, keywords.PostgresConfig{
			DSN:      cfg.Keywords.Postgres.DSN,
			Table:    cfg.Keywords.Postgres.Table,
			MaxConns: int32(cfg.Keywords.Postgres.MaxConns),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("keyword source init failed: %w", err)
		}
		return pg, pg.Close, nil
	}
	return keywords.NewCSVSource(cfg.Keywords.CSVPath, logger), func() {}, nil
}

// NewCrawler builds the link discoverer from the crawler section.
func NewCrawler(cfg *config.Config, logger *zap.Logger) *crawler.Crawler {
	return crawler.New(crawler.Config{
		UserAgent:      cfg.Crawler.UserAgent,
		Timeout:        cfg.CrawlTimeout(),
		Parallelism:    cfg.Crawler.Parallelism,
		Delay:          time.Duration(cfg.Crawler.DelayMillis) * time.Millisecond,
		MaxURLs:        cfg.Crawler.MaxURLs,
		ExcludePaths:   cfg.Crawler.ExcludePaths,
		SkipExtensions: cfg.Crawler.SkipExtensions,
		RespectRobots:  cfg.Crawler.RespectRobots,
	}, logger)
}

// NewGenerator builds the keyword generator from the llm section.
func NewGenerator(completer llm.Completer, cfg *config.Config, logger *zap.Logger) *keygen.Generator {
	return keygen.New(completer, keygen.Config{
		BatchSize:   cfg.LLM.BatchSize,
		Concurrency: cfg.LLM.Concurrency,
		Language:    cfg.LLM.Language,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	}, logger)
}

// NewCompleter connects to the configured LLM provider, rate limited when
// llm.requests_per_second is set.
func NewCompleter(ctx context.Context, cfg *config.Config) (llm.Completer, error) {
	var (
		provider llm.Provider
		err      error
	)
	switch cfg.LLM.Provider {
	case "gemini":
		provider, err = llm.NewGeminiClient(ctx, llm.GeminiConfig{
			APIKey: cfg.LLM.APIKey,
			Model:  cfg.LLM.Model,
		})
	default:
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("llm.api_key is required for openai")
		}
		provider, err = llm.NewOpenAIClient(llm.OpenAIConfig{
			BaseURL: cfg.LLM.APIURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLMTimeout(),
		})
	}
	if err != nil {
		return nil, err
	}
	return llm.WithRateLimit(provider, cfg.LLM.RequestsPerSecond, cfg.LLM.Burst), nil
}

// NewLicenseService builds the product key service from the license section.
// It returns nil when licensing is disabled.
func NewLicenseService(cfg *config.Config) (*license.Service, error) {
	if !cfg.License.Enabled {
		return nil, nil
	}
	keys := make(map[string]license.Key, len(cfg.License.Keys))
	for _, k := range cfg.License.Keys {
		entry := license.Key{User: k.User}
		if k.Expires != "" {
			day, err := time.Parse(time.DateOnly, k.Expires)
			if err != nil {
				return nil, fmt.Errorf("license key %q expiry: %w", k.Key, err)
			}
			entry.Expires = day
		}
		keys[k.Key] = entry
	}
	svc, err := license.New(license.Config{
		Secret: []byte(cfg.License.Secret),
		TTL:    cfg.LicenseTTL(),
		Keys:   keys,
	})
	if err != nil {
		return nil, fmt.Errorf("license service init failed: %w", err)
	}
	return svc, nil
}
