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

const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient calls an OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewOpenAIClient(apiKey, baseURL, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrMissingCredential)
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	return &OpenAIClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: 180 * time.Second,
		},
	}, nil
}

func (c *OpenAIClient) Name() string  { return "openai" }
func (c *OpenAIClient) Model() string { return c.model }

type openaiMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []openaiContent
}

type openaiContent struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openaiImageURL `json:"image_url,omitempty"`
}

type openaiImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type openaiRequest struct {
	Model               string          `json:"model"`
	Messages            []openaiMessage `json:"messages"`
	MaxCompletionTokens int             `json:"max_completion_tokens,omitempty"`
	ReasoningEffort     string          `json:"reasoning_effort,omitempty"`
	Temperature         *float64        `json:"temperature,omitempty"`
	ResponseFormat      *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func buildOpenAIRequest(model string, req Request) openaiRequest {
	out := openaiRequest{
		Model:               model,
		MaxCompletionTokens: req.MaxCompletionTokens,
		ReasoningEffort:     req.ReasoningEffort,
	}
	// Reasoning models only accept the default temperature.
	if req.ReasoningEffort == "" {
		out.Temperature = req.Temperature
	}
	if req.JSON {
		out.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	if req.System != "" {
		out.Messages = append(out.Messages, openaiMessage{Role: "system", Content: req.System})
	}

	if !req.HasImages() {
		out.Messages = append(out.Messages, openaiMessage{Role: "user", Content: req.text()})
		return out
	}
	content := make([]openaiContent, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.Image != nil {
			content = append(content, openaiContent{
				Type:     "image_url",
				ImageURL: &openaiImageURL{URL: dataURL(p.Image), Detail: "high"},
			})
			continue
		}
		content = append(content, openaiContent{Type: "text", Text: p.Text})
	}
	out.Messages = append(out.Messages, openaiMessage{Role: "user", Content: content})
	return out
}

// Complete sends one chat completion and returns the first choice's content.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(buildOpenAIRequest(c.model, req))
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &HTTPError{Backend: "openai", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var apiResp openaiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("openai error: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("empty response from openai")
	}
	return apiResp.Choices[0].Message.Content, nil
}

// Close releases resources.
func (c *OpenAIClient) Close() {
	c.httpClient.CloseIdleConnections()
}
