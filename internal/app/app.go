// Package app wires configuration into the collaborators shared by the
// server and the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/analyzer"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/cache"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/chunker"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/config"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/llm"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/mapper"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/parser"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/render"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/report"
)

// App holds the wired collaborators.
type App struct {
	Config   config.Config
	Deps     *analyzer.Deps
	Stats    *llm.LLMStats
	Renderer *render.Client

	closers []func()
}

// Build creates the model backend for cfg.Provider, the optional embedder
// and render client, and the shared caches.
func Build(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Stats: llm.NewLLMStats(cfg.StatsWindow)}

	backend, err := a.backend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var embedder llm.Embedder
	if cfg.OpenAIAPIKey != "" {
		ec, err := llm.NewEmbeddingClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.EmbeddingModel, cfg.EmbedMaxChars, log)
		if err != nil {
			return nil, err
		}
		embedder = ec
	} else {
		log.Info("no embedding credential, late chunking disabled")
	}

	a.Deps = &analyzer.Deps{
		Backend:    llm.WithStats(backend, a.Stats),
		Embedder:   embedder,
		Mapper:     mapper.New(mapper.DefaultConfig()),
		Embeddings: cache.New[[]float64](),
		Results:    cache.New[report.AnalysisResult](),
		Chunking: chunker.Config{
			TargetTokens:  cfg.ChunkTargetTokens,
			MaxTokens:     cfg.ChunkMaxTokens,
			OverlapTokens: cfg.ChunkOverlapTokens,
			ImageTokens:   cfg.ImageTokens,
		},
		Call: analyzer.CallOptions{
			MaxCompletionTokens: cfg.MaxCompletionTokens,
			ReasoningEffort:     cfg.ReasoningEffort,
			Temperature:         analyzer.DefaultCallOptions().Temperature,
			Retries:             cfg.CompletionRetries,
		},
		DPI:           cfg.RenderDPI,
		MaxConcurrent: cfg.MaxConcurrentChunks,
		Log:           log,
	}
	if cfg.RenderURL != "" {
		a.Renderer = render.NewClient(cfg.RenderURL)
		a.Deps.Renderer = a.Renderer
		a.closers = append(a.closers, a.Renderer.Close)
	}

	log.Info("backend ready", "provider", backend.Name(), "model", backend.Model(), "render_url", cfg.RenderURL)
	return a, nil
}

func (a *App) backend(ctx context.Context, cfg config.Config) (llm.Backend, error) {
	switch cfg.Provider {
	case "openai":
		c, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, c.Close)
		return c, nil
	case "anthropic":
		c, err := llm.NewClaudeClient(cfg.AnthropicAPIKey, "", cfg.AnthropicModel)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, c.Close)
		return c, nil
	case "vertex":
		c, err := llm.NewVertexClient(ctx, cfg.VertexProject, cfg.VertexRegion, cfg.VertexModel)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, c.Close)
		return c, nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.Provider)
	}
}

// ParserOptions returns the parser settings from the configuration.
func (a *App) ParserOptions() parser.Options {
	return parser.Options{PdftotextFallback: a.Config.PDFFallbackPdftotext}
}

// DefaultMode parses the configured analyzer mode.
func (a *App) DefaultMode() (analyzer.Mode, error) {
	return analyzer.ParseMode(a.Config.AnalyzerMode)
}

// Close releases idle connections held by the clients.
func (a *App) Close() {
	for _, c := range a.closers {
		c()
	}
}
