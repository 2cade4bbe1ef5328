// Package cli implements the crh command line.
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the crh command tree.
func NewRootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "crh",
		Short:         "crh finds and locates compliance issues in credit reports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress at info level")

	logger := func(w io.Writer) *slog.Logger {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelInfo
		}
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	}

	root.AddCommand(newAnalyzeCmd(logger), newHealthCmd())
	return root
}
