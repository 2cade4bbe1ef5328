package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Embedder turns text into a single vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// EmbeddingClient calls an OpenAI-compatible /embeddings endpoint. Requests
// are idempotent, so transient failures are retried with backoff.
type EmbeddingClient struct {
	apiKey     string
	baseURL    string
	model      string
	maxChars   int
	httpClient *http.Client
	log        *slog.Logger
	backoff    func(attempt int) time.Duration
}

func NewEmbeddingClient(apiKey, baseURL, model string, maxChars int, log *slog.Logger) (*EmbeddingClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("embeddings: %w", ErrMissingCredential)
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if maxChars <= 0 {
		maxChars = 32000
	}
	return &EmbeddingClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		maxChars:   maxChars,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        log,
		backoff:    Backoff,
	}, nil
}

type embeddingRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	EncodingFormat string `json:"encoding_format"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding of text truncated to the model's input limit.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float64, error) {
	text = truncateRunes(text, c.maxChars)

	var lastErr error
	for attempt := range MaxRetries {
		vec, err := c.embedOnce(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !IsRetryable(err) || attempt == MaxRetries-1 {
			break
		}
		c.log.Warn("retryable embedding error", "attempt", attempt, "error", err)
		select {
		case <-time.After(c.backoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (c *EmbeddingClient) embedOnce(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(embeddingRequest{Model: c.model, Input: text, EncodingFormat: "float"})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Backend: "embeddings", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var out embeddingResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("embedding response was empty")
	}
	return out.Data[0].Embedding, nil
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
