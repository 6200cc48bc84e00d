package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/seo-linker/internal/keywords"
	"github.com/JakeFAU/seo-linker/internal/linker"
	"github.com/JakeFAU/seo-linker/internal/server"
)

func newLinkCmd(c *cli) *cobra.Command {
	var (
		excludeURL string
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "link [file]",
		Short: "Inject keyword links into a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			source, closeFn, err := server.OpenKeywordSource(cmd.Context(), &c.cfg, c.logger.Named("keywords"))
			if err != nil {
				return err
			}
			defer closeFn()
			table := keywords.NewTable(source, c.logger.Named("keywords"))
			if _, err := table.Reload(cmd.Context()); err != nil {
				return fmt.Errorf("load keywords: %w", err)
			}

			engine := linker.New(linker.WithPerTargetCap(c.cfg.Linker.PerTargetCap))
			res := engine.Inject(input, table.Snapshot(), excludeURL)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			_, err = io.WriteString(out, res.Text)
			return err
		},
	}
	cmd.Flags().StringVar(&excludeURL, "exclude-url", "", "never link to this URL (usually the page being edited)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the text and the links made as JSON")
	return cmd
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read %s: %w", args[0], err)
	}
	return string(data), nil
}
