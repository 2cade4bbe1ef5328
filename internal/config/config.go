package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/llm"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Model backend
	Provider            string // openai | anthropic | vertex
	OpenAIAPIKey        string
	OpenAIBaseURL       string
	OpenAIModel         string
	EmbeddingModel      string
	ReasoningEffort     string
	MaxCompletionTokens int
	AnthropicAPIKey     string
	AnthropicModel      string
	VertexProject       string
	VertexRegion        string
	VertexModel         string

	// Page rendering server
	RenderURL string
	RenderDPI int

	// Analysis
	AnalyzerMode        string
	StrictParse         bool
	ChunkTargetTokens   int
	ChunkMaxTokens      int
	ChunkOverlapTokens  int
	ImageTokens         int
	EmbedMaxChars       int
	MaxConcurrentChunks int
	CompletionRetries   int // extra attempts on 429/5xx/transport errors, 0 fails fast

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// Latency stats window
	StatsWindow time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

var defaults = map[string]any{
	"PORT":                   "8090",
	"LLM_PROVIDER":           "openai",
	"OPENAI_BASE_URL":        "https://api.openai.com/v1",
	"OPENAI_MODEL":           "gpt-5",
	"OPENAI_EMBEDDING_MODEL": "text-embedding-3-large",
	"REASONING_EFFORT":       "low",
	"MAX_COMPLETION_TOKENS":  4000,
	"ANTHROPIC_MODEL":        "claude-sonnet-4-5-20250929",
	"VERTEX_REGION":          "us-central1",
	"VERTEX_MODEL":           "gemini-2.5-pro",
	"RENDER_URL":             "http://localhost:5001",
	"RENDER_DPI":             300,
	"ANALYZER_MODE":          "auto",
	"STRICT_PARSE":           false,
	"CHUNK_TARGET_TOKENS":    8000,
	"CHUNK_MAX_TOKENS":       12000,
	"CHUNK_OVERLAP_TOKENS":   200,
	"IMAGE_TOKENS":           1200,
	"EMBED_MAX_CHARS":        32000,
	"MAX_CONCURRENT_CHUNKS":  4,
	"COMPLETION_RETRIES":     0,
	"WORKER_COUNT":           4,
	"MAX_QUEUE_SIZE":         100,
	"MAX_UPLOAD_BYTES":       52428800, // 50MB
	"JOB_TTL":                time.Hour,
	"STATS_WINDOW":           time.Hour,
	"PDF_FALLBACK_PDFTOTEXT": true,
}

// Load reads configuration from the environment, layered over the optional
// file named by CRH_CONFIG (YAML, JSON or TOML). Environment values win.
func Load() (Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()

	if path := os.Getenv("CRH_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := Config{
		Port: v.GetString("PORT"),

		APIKey: v.GetString("CRH_API_KEY"),

		Provider:            strings.ToLower(v.GetString("LLM_PROVIDER")),
		OpenAIAPIKey:        v.GetString("OPENAI_API_KEY"),
		OpenAIBaseURL:       v.GetString("OPENAI_BASE_URL"),
		OpenAIModel:         v.GetString("OPENAI_MODEL"),
		EmbeddingModel:      v.GetString("OPENAI_EMBEDDING_MODEL"),
		ReasoningEffort:     v.GetString("REASONING_EFFORT"),
		MaxCompletionTokens: v.GetInt("MAX_COMPLETION_TOKENS"),
		AnthropicAPIKey:     v.GetString("ANTHROPIC_API_KEY"),
		AnthropicModel:      v.GetString("ANTHROPIC_MODEL"),
		VertexProject:       v.GetString("VERTEX_PROJECT"),
		VertexRegion:        v.GetString("VERTEX_REGION"),
		VertexModel:         v.GetString("VERTEX_MODEL"),

		RenderURL: v.GetString("RENDER_URL"),
		RenderDPI: v.GetInt("RENDER_DPI"),

		AnalyzerMode:        strings.ToLower(v.GetString("ANALYZER_MODE")),
		StrictParse:         v.GetBool("STRICT_PARSE"),
		ChunkTargetTokens:   v.GetInt("CHUNK_TARGET_TOKENS"),
		ChunkMaxTokens:      v.GetInt("CHUNK_MAX_TOKENS"),
		ChunkOverlapTokens:  v.GetInt("CHUNK_OVERLAP_TOKENS"),
		ImageTokens:         v.GetInt("IMAGE_TOKENS"),
		EmbedMaxChars:       v.GetInt("EMBED_MAX_CHARS"),
		MaxConcurrentChunks: v.GetInt("MAX_CONCURRENT_CHUNKS"),
		CompletionRetries:   v.GetInt("COMPLETION_RETRIES"),

		WorkerCount:  v.GetInt("WORKER_COUNT"),
		MaxQueueSize: v.GetInt("MAX_QUEUE_SIZE"),

		MaxUploadBytes: v.GetInt64("MAX_UPLOAD_BYTES"),

		JobTTL:      v.GetDuration("JOB_TTL"),
		StatsWindow: v.GetDuration("STATS_WINDOW"),

		PDFFallbackPdftotext: v.GetBool("PDF_FALLBACK_PDFTOTEXT"),
	}
	cfg.clamp()
	return cfg, nil
}

// clamp replaces non-positive numeric settings with their defaults.
const maxCompletionRetries = 5

func (c *Config) clamp() {
	ints := []struct {
		v   *int
		key string
	}{
		{&c.MaxCompletionTokens, "MAX_COMPLETION_TOKENS"},
		{&c.RenderDPI, "RENDER_DPI"},
		{&c.ChunkTargetTokens, "CHUNK_TARGET_TOKENS"},
		{&c.ChunkMaxTokens, "CHUNK_MAX_TOKENS"},
		{&c.ImageTokens, "IMAGE_TOKENS"},
		{&c.EmbedMaxChars, "EMBED_MAX_CHARS"},
		{&c.MaxConcurrentChunks, "MAX_CONCURRENT_CHUNKS"},
		{&c.WorkerCount, "WORKER_COUNT"},
		{&c.MaxQueueSize, "MAX_QUEUE_SIZE"},
	}
	for _, f := range ints {
		if *f.v <= 0 {
			*f.v = defaults[f.key].(int)
		}
	}
	c.CompletionRetries = min(max(c.CompletionRetries, 0), maxCompletionRetries)
	if c.ChunkOverlapTokens < 0 {
		c.ChunkOverlapTokens = defaults["CHUNK_OVERLAP_TOKENS"].(int)
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = int64(defaults["MAX_UPLOAD_BYTES"].(int))
	}
	if c.JobTTL <= 0 {
		c.JobTTL = time.Hour
	}
	if c.StatsWindow <= 0 {
		c.StatsWindow = time.Hour
	}
}

// Validate reports a missing credential for the selected provider.
func (c Config) Validate() error {
	switch c.Provider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required: %w", llm.ErrMissingCredential)
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required: %w", llm.ErrMissingCredential)
		}
	case "vertex":
		if c.VertexProject == "" {
			return fmt.Errorf("VERTEX_PROJECT is required: %w", llm.ErrMissingCredential)
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.Provider)
	}
	return nil
}

// ValidateServer additionally requires the API bearer key.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("CRH_API_KEY is required")
	}
	return nil
}
