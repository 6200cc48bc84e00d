package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/seo-linker/internal/config"
	"github.com/JakeFAU/seo-linker/internal/logging"
)

// cli carries what PersistentPreRunE loads for the subcommands.
type cli struct {
	cfgFile string
	envFile string
	cfg     config.Config
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	cmd := &cobra.Command{
		Use:   "seolinker",
		Short: "Keyword hyperlink injection for SEO copy.",
		Long: `seolinker wraps keyword occurrences in submitted text with links to their
target URLs. It serves the linker over HTTP, runs it once on a file, or
builds a fresh keyword table for a domain by crawling it and asking an LLM.`,
		SilenceUsage: true,

		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if c.envFile != "" {
				if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("load %s: %w", c.envFile, err)
				}
			}
			cfg, err := config.Load(c.cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(logging.Options{
				Development: cfg.Logging.Development,
				Level:       cfg.Logging.Level,
			})
			if err != nil {
				return fmt.Errorf("logger init failed: %w", err)
			}
			c.cfg = cfg
			c.logger = logger
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (env LINKER_* overrides apply either way)")
	cmd.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded into the environment when present; existing variables win")

	cmd.AddCommand(newServeCmd(c))
	cmd.AddCommand(newLinkCmd(c))
	cmd.AddCommand(newGenerateCmd(c))
	return cmd
}
