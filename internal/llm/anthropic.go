package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	anthropicMessagesURL = "https://api.anthropic.com/v1/messages"
	anthropicVersion     = "2023-06-01"
)

// AnthropicClient calls the Anthropic messages API.
type AnthropicClient struct {
	http      *http.Client
	apiKey    string
	model     string
	baseURL   string
	maxTokens int
	rl        *rpsLimiter
}

// NewAnthropicClient creates a client. Falls back to the
// ANTHROPIC_API_KEY env var when apiKey is empty.
func NewAnthropicClient(apiKey, model string, rps float64, burst int) (*AnthropicClient, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	return &AnthropicClient{
		http:      &http.Client{Timeout: 120 * time.Second},
		apiKey:    apiKey,
		model:     model,
		baseURL:   anthropicMessagesURL,
		maxTokens: 4096,
		rl:        newRPSLimiter(rps, burst),
	}, nil
}

func (c *AnthropicClient) Name() string { return "Anthropic:" + c.model }
func (c *AnthropicClient) Close() error {
	c.rl.Stop()
	return nil
}

type anthropicReq struct {
	Model     string      `json:"model"`
	MaxTokens int         `json:"max_tokens"`
	System    string      `json:"system,omitempty"`
	Messages  []oaMessage `json:"messages"`
}
type anthropicResp struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *AnthropicClient) Generate(ctx context.Context, system string, msgs []Message) (string, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return "", err
	}
	body := anthropicReq{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    system,
		Messages:  make([]oaMessage, 0, len(msgs)),
	}
	for _, m := range msgs {
		body.Messages = append(body.Messages, oaMessage{Role: m.Role, Content: m.Content})
	}
	b, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		const max = 2048
		if len(raw) > max {
			raw = raw[:max]
		}
		return "", fmt.Errorf("anthropic: unexpected status %s: %s", resp.Status, string(raw))
	}
	var out anthropicResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	for _, part := range out.Content {
		if part.Type == "text" && part.Text != "" {
			return part.Text, nil
		}
	}
	return "", ErrEmptyCompletion
}
