package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/document"
)

const (
	DefaultDPI    = 300
	DefaultFormat = "PNG"

	healthTimeout = 3 * time.Second
)

// Client talks to the page rendering server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Health reports whether the server answers /health with status "healthy".
// It never waits longer than three seconds.
func (c *Client) Health(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err != nil {
		return false
	}
	return body.Status == "healthy"
}

// Convert rasterizes every page of pdf at dpi. Images come back in page
// order with their pixel size.
func (c *Client) Convert(ctx context.Context, pdf []byte, dpi int, format string) ([]document.PageImage, error) {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	if format == "" {
		format = DefaultFormat
	}
	fields := map[string]string{"dpi": strconv.Itoa(dpi), "format": format}

	var result struct {
		Images []document.PageImage `json:"images"`
		Error  string               `json:"error"`
	}
	if err := c.postPDF(ctx, "/convert-to-images", pdf, fields, &result); err != nil {
		return nil, fmt.Errorf("convert to images: %w", err)
	}
	if len(result.Images) == 0 {
		return nil, fmt.Errorf("convert to images: no pages returned")
	}
	for i := range result.Images {
		if result.Images[i].DPI == 0 {
			result.Images[i].DPI = dpi
		}
		if result.Images[i].PageNumber == 0 {
			result.Images[i].PageNumber = i + 1
		}
	}
	return result.Images, nil
}

type coordToken struct {
	Text   string  `json:"text"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Page   int     `json:"page"`
}

// Tokens asks the server for positioned text spans, grouped by page number.
// Spans are line fragments; each is split into word tokens.
func (c *Client) Tokens(ctx context.Context, pdf []byte) (map[int][]document.Token, error) {
	var result struct {
		TextTokens []coordToken `json:"textTokens"`
	}
	if err := c.postPDF(ctx, "/extract-text-coordinates", pdf, nil, &result); err != nil {
		return nil, fmt.Errorf("extract coordinates: %w", err)
	}
	out := make(map[int][]document.Token)
	for _, t := range result.TextTokens {
		if strings.TrimSpace(t.Text) == "" || t.Page < 1 {
			continue
		}
		span := document.Token{Text: t.Text, Box: document.BBox{X: t.X, Y: t.Y, Width: t.Width, Height: t.Height}}
		for _, w := range document.SplitWords(span) {
			if w.Box.Valid() {
				out[t.Page] = append(out[t.Page], w)
			}
		}
	}
	return out, nil
}

func (c *Client) postPDF(ctx context.Context, path string, pdf []byte, fields map[string]string, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("pdf", "document.pdf")
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(pdf); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
