package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/seo-linker/internal/server"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := server.Build(cmd.Context(), &c.cfg)
			if err != nil {
				return fmt.Errorf("build failed: %w", err)
			}
			if err := app.Run(cmd.Context()); err != nil {
				return fmt.Errorf("server exited: %w", err)
			}
			return nil
		},
	}
}
