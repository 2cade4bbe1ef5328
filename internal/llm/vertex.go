package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// VertexClient calls Gemini through Vertex AI.
type VertexClient struct {
	client *genai.Client
	model  string
}

func NewVertexClient(ctx context.Context, projectID, region, model string) (*VertexClient, error) {
	if projectID == "" {
		return nil, fmt.Errorf("vertex: %w", ErrMissingCredential)
	}
	client, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	return &VertexClient{client: client, model: model}, nil
}

func (c *VertexClient) Name() string  { return "vertex" }
func (c *VertexClient) Model() string { return c.model }

// Complete runs one GenerateContent call and concatenates the text parts of
// the first candidate.
func (c *VertexClient) Complete(ctx context.Context, req Request) (string, error) {
	model := c.client.GenerativeModel(c.model)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}
	model.GenerationConfig = vertexConfig(req)

	parts, err := vertexParts(req.Parts)
	if err != nil {
		return "", err
	}
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String(), nil
}

func vertexConfig(req Request) genai.GenerationConfig {
	cfg := genai.GenerationConfig{}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	if req.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.MaxCompletionTokens > 0 {
		cfg.MaxOutputTokens = genai.Ptr(int32(req.MaxCompletionTokens))
	}
	return cfg
}

func vertexParts(in []Part) ([]genai.Part, error) {
	out := make([]genai.Part, 0, len(in))
	for _, p := range in {
		if p.Image == nil {
			out = append(out, genai.Text(p.Text))
			continue
		}
		data, err := base64.StdEncoding.DecodeString(p.Image.Data)
		if err != nil {
			return nil, fmt.Errorf("decode page %d image: %w", p.Image.PageNumber, err)
		}
		format := strings.TrimPrefix(p.Image.MimeType, "image/")
		if format == "" {
			format = "png"
		}
		out = append(out, genai.ImageData(format, data))
	}
	return out, nil
}

// Close releases resources.
func (c *VertexClient) Close() {
	c.client.Close()
}
