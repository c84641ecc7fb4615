package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaClient calls a local ollama daemon. No API key involved.
type OllamaClient struct {
	http    *http.Client
	model   string
	baseURL string
}

func NewOllamaClient(baseURL, model string) *OllamaClient {
	if baseURL == "" {
		baseURL = os.Getenv("OLLAMA_HOST")
	}
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	return &OllamaClient{
		// Local models can be slow to load on first call.
		http:    &http.Client{Timeout: 300 * time.Second},
		model:   model,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (c *OllamaClient) Name() string { return "Ollama:" + c.model }
func (c *OllamaClient) Close() error { return nil }

type ollamaReq struct {
	Model    string      `json:"model"`
	Messages []oaMessage `json:"messages"`
	Stream   bool        `json:"stream"`
}
type ollamaResp struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

func (c *OllamaClient) Generate(ctx context.Context, system string, msgs []Message) (string, error) {
	body := ollamaReq{Model: c.model, Stream: false}
	if system != "" {
		body.Messages = append(body.Messages, oaMessage{Role: "system", Content: system})
	}
	for _, m := range msgs {
		body.Messages = append(body.Messages, oaMessage{Role: m.Role, Content: m.Content})
	}
	b, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

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
		return "", fmt.Errorf("ollama: unexpected status %s: %s", resp.Status, string(raw))
	}
	var out ollamaResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Message.Content == "" {
		return "", ErrEmptyCompletion
	}
	return out.Message.Content, nil
}
