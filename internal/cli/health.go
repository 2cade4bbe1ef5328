package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/config"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/render"
)

var errUnhealthy = errors.New("render server unhealthy")

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the page render server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			c := render.NewClient(cfg.RenderURL)
			defer c.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			out := cmd.OutOrStdout()
			if !c.Health(ctx) {
				fmt.Fprintf(out, "render server %s: %s\n", cfg.RenderURL, color.RedString("unavailable"))
				return errUnhealthy
			}
			fmt.Fprintf(out, "render server %s: %s\n", cfg.RenderURL, color.GreenString("healthy"))
			return nil
		},
	}
}
