package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/analyzer"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/app"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/config"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/parser"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/pipeline"
)

func newAnalyzeCmd(logger func(io.Writer) *slog.Logger) *cobra.Command {
	var (
		mode    string
		strict  bool
		asJSON  bool
		noColor bool
	)
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze a credit report and print located findings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if !cmd.Flags().Changed("mode") {
				mode = cfg.AnalyzerMode
			}
			m, err := analyzer.ParseMode(mode)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("strict") {
				strict = cfg.StrictParse
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log := logger(cmd.ErrOrStderr())
			a, err := app.Build(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			doc, err := parser.Parse(f, args[0], a.ParserOptions())
			f.Close()
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			events := make(chan analyzer.Event, 64)
			done := make(chan struct{})
			go func() {
				defer close(done)
				for ev := range events {
					if !asJSON {
						printProgress(cmd.ErrOrStderr(), ev)
					}
				}
			}()
			res, err := pipeline.NewWorker(a.Deps, log).Analyze(ctx, doc, pipeline.Request{Mode: m, Strict: strict, Progress: events})
			close(events)
			<-done

			cancelled := errors.Is(err, context.Canceled)
			if err != nil && !cancelled {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(res); encErr != nil {
					return encErr
				}
			} else {
				printReport(out, res, !noColor)
			}
			if cancelled {
				return fmt.Errorf("analysis interrupted, partial result shown: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", "auto", "analyzer: auto, plain, late, vision or hybrid")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on unparseable model output")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	return cmd
}
