package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/api"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/app"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/config"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/pipeline"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if _, err := (&app.App{Config: cfg}).DefaultMode(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Error("initialize backends", "error", err)
		os.Exit(1)
	}
	if a.Renderer != nil && !a.Renderer.Health(ctx) {
		log.Warn("render server not healthy, vision analysis unavailable until it recovers", "render_url", cfg.RenderURL)
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(a.Deps, pipeline.Options{
		Workers:   cfg.WorkerCount,
		QueueSize: cfg.MaxQueueSize,
		JobTTL:    cfg.JobTTL,
	}, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, a.Deps, a.Stats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		a.Close()
	}()

	log.Info("starting credit report highlighter", "port", cfg.Port, "mode", cfg.AnalyzerMode)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
