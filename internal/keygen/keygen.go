// Package keygen turns crawled URLs into keyword/URL associations by asking a
// language model for a handful of keywords per page.
package keygen

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/seo-linker/internal/linker"
	"github.com/JakeFAU/seo-linker/internal/llm"
	"github.com/JakeFAU/seo-linker/internal/metrics"
)

const systemPrompt = "You are a helpful SEO Expert assistant that generates concise and relevant keywords based on URLs provided."

// Config tunes batching and the prompt.
type Config struct {
	BatchSize   int
	Concurrency int
	Language    string
	MaxTokens   int
	Temperature float64
}

// DefaultConfig mirrors the generator's historical behavior.
func DefaultConfig() Config {
	return Config{
		BatchSize:   10,
		Concurrency: 2,
		Language:    "German",
		MaxTokens:   150,
		Temperature: 0.7,
	}
}

// Generator produces associations for a list of URLs.
type Generator struct {
	cfg       Config
	completer llm.Completer
	logger    *zap.Logger
}

// New builds a Generator. Zero fields in cfg take DefaultConfig values.
func New(completer llm.Completer, cfg Config, logger *zap.Logger) *Generator {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.Language == "" {
		cfg.Language = def.Language
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{cfg: cfg, completer: completer, logger: logger}
}

// Generate prompts the model once per batch of URLs and returns the parsed
// pairs in batch order. A batch whose completion fails is logged and
// contributes nothing; only context cancellation aborts the whole run.
func (g *Generator) Generate(ctx context.Context, urls []string) ([]linker.Association, error) {
	if g.completer == nil {
		return nil, fmt.Errorf("no llm provider configured")
	}
	batches := Batches(urls, g.cfg.BatchSize)
	results := make([][]linker.Association, len(batches))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.Concurrency)
	for i, batch := range batches {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			reply, err := g.completer.Complete(egCtx, llm.Prompt{
				System:      systemPrompt,
				User:        BuildPrompt(batch, g.cfg.Language),
				MaxTokens:   g.cfg.MaxTokens,
				Temperature: g.cfg.Temperature,
			})
			if err != nil {
				if ctxErr := egCtx.Err(); ctxErr != nil {
					return ctxErr
				}
				g.logger.Warn("keyword batch failed",
					zap.Int("batch", i),
					zap.Int("urls", len(batch)),
					zap.Error(err),
				)
				return nil
			}
			results[i] = ParseReply(reply)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("generate keywords: %w", err)
	}

	var out []linker.Association
	for _, r := range results {
		out = append(out, r...)
	}
	metrics.ObserveKeywordsGenerated(len(out))
	g.logger.Info("keywords generated",
		zap.Int("urls", len(urls)),
		zap.Int("batches", len(batches)),
		zap.Int("pairs", len(out)),
	)
	return out, nil
}

// Batches splits urls into consecutive groups of at most size.
func Batches(urls []string, size int) [][]string {
	if size <= 0 {
		size = 1
	}
	var out [][]string
	for start := 0; start < len(urls); start += size {
		end := min(start+size, len(urls))
		out = append(out, urls[start:end])
	}
	return out
}

// BuildPrompt renders the user prompt for one batch.
func BuildPrompt(urls []string, language string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "For each URL below given, generate exactly 2 double-word keywords and 2 single-word keywords in %s.\n\n", language)
	b.WriteString("Provide the keywords in the following format:\n\n")
	b.WriteString("keyword, url\n\n")
	b.WriteString("for these urls:\n")
	for _, u := range urls {
		b.WriteString(u)
		b.WriteByte('\n')
	}
	return b.String()
}
