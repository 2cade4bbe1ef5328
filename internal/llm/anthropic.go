package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultAnthropicBaseURL = "https://api.anthropic.com/v1"

// ClaudeClient calls the Anthropic Messages API.
type ClaudeClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewClaudeClient(apiKey, baseURL, model string) (*ClaudeClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: %w", ErrMissingCredential)
	}
	if baseURL == "" {
		baseURL = DefaultAnthropicBaseURL
	}
	return &ClaudeClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: 180 * time.Second,
		},
	}, nil
}

func (c *ClaudeClient) Name() string  { return "anthropic" }
func (c *ClaudeClient) Model() string { return c.model }

type anthropicBlock struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
}

type anthropicSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content []anthropicBlock `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Temperature *float64           `json:"temperature,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func buildAnthropicRequest(model string, req Request) anthropicRequest {
	maxTokens := req.MaxCompletionTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	blocks := make([]anthropicBlock, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.Image != nil {
			mime := p.Image.MimeType
			if mime == "" {
				mime = "image/png"
			}
			blocks = append(blocks, anthropicBlock{
				Type:   "image",
				Source: &anthropicSource{Type: "base64", MediaType: mime, Data: p.Image.Data},
			})
			continue
		}
		blocks = append(blocks, anthropicBlock{Type: "text", Text: p.Text})
	}
	return anthropicRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		System:      req.System,
		Temperature: req.Temperature,
		Messages:    []anthropicMessage{{Role: "user", Content: blocks}},
	}
}

// Complete sends one Messages call and returns the first text block.
func (c *ClaudeClient) Complete(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(buildAnthropicRequest(c.model, req))
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("claude api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &HTTPError{Backend: "claude", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("claude error: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("empty response from claude")
}

// Close releases resources.
func (c *ClaudeClient) Close() {
	c.httpClient.CloseIdleConnections()
}
