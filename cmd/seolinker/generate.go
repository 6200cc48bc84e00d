package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/seo-linker/internal/keywords"
	"github.com/JakeFAU/seo-linker/internal/server"
)

func newGenerateCmd(c *cli) *cobra.Command {
	var (
		depth   int
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "generate <domain>",
		Short: "Crawl a domain and write a Keyword,URL table as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if depth <= 0 {
				depth = c.cfg.Crawler.MaxDepthDefault
			}
			completer, err := server.NewCompleter(cmd.Context(), &c.cfg)
			if err != nil {
				return fmt.Errorf("llm provider: %w", err)
			}

			urls, err := server.NewCrawler(&c.cfg, c.logger.Named("crawler")).Discover(cmd.Context(), args[0], depth)
			if err != nil {
				return fmt.Errorf("crawl %s: %w", args[0], err)
			}
			pairs, err := server.NewGenerator(completer, &c.cfg, c.logger.Named("keygen")).Generate(cmd.Context(), urls)
			if err != nil {
				return fmt.Errorf("generate keywords: %w", err)
			}

			var out io.Writer = cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create %s: %w", outPath, err)
				}
				defer func() {
					if cerr := f.Close(); cerr != nil {
						c.logger.Warn("close output failed", zap.Error(cerr))
					}
				}()
				out = f
			}
			if err := keywords.Encode(out, pairs); err != nil {
				return err
			}
			c.logger.Info("keyword table written",
				zap.String("domain", args[0]),
				zap.Int("urls", len(urls)),
				zap.Int("keywords", len(pairs)),
			)
			return nil
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 0, "crawl depth (defaults to crawler.max_depth_default)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the CSV here instead of stdout")
	return cmd
}
