package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client talks to an OpenAI-compatible API for the two external capabilities
// the pipeline may use: chat completion and text embedding. Both callers
// carry deterministic fallbacks, so every failure here is safe to surface as
// a plain error.
type Client struct {
	baseURL         string
	apiKey          string
	completionModel string
	embeddingModel  string
	httpClient      *http.Client
}

// NewClient constructs a Client. An empty API key produces a disabled client:
// Enabled() reports false and calls fail fast without network I/O.
func NewClient(baseURL, apiKey, completionModel, embeddingModel string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if completionModel == "" {
		completionModel = "gpt-4o-mini"
	}
	if embeddingModel == "" {
		embeddingModel = "text-embedding-3-small"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		apiKey:          apiKey,
		completionModel: completionModel,
		embeddingModel:  embeddingModel,
		httpClient:      &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether credentials are configured.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// Complete sends a system+user prompt pair and returns the raw completion
// text.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("llm client not configured")
	}

	payload := map[string]any{
		"model": c.completionModel,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"temperature": 0.3,
		"max_tokens":  300,
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := c.postJSON(ctx, c.baseURL+"/chat/completions", payload, &response); err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return response.Choices[0].Message.Content, nil
}

// Embed returns one dense vector per input text, in input order. The whole
// batch goes out in a single request.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("llm client not configured")
	}
	if len(texts) == 0 {
		return nil, nil
	}

	payload := map[string]any{
		"model": c.embeddingModel,
		"input": texts,
	}

	var response struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}

	if err := c.postJSON(ctx, c.baseURL+"/embeddings", payload, &response); err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(response.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", len(response.Data), len(texts))
	}

	vectors := make([][]float64, 0, len(response.Data))
	for _, item := range response.Data {
		vectors = append(vectors, item.Embedding)
	}
	return vectors, nil
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("llm api returned %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
