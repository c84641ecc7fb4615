package llm

import (
	"bufio"
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

const (
	openAIChatURL = "https://api.openai.com/v1/chat/completions"
	groqChatURL   = "https://api.groq.com/openai/v1/chat/completions"
)

// OpenAIClient calls an OpenAI-compatible chat completions endpoint.
// Groq exposes the same wire shape, so both providers share this adapter.
type OpenAIClient struct {
	http    *http.Client
	label   string
	apiKey  string
	model   string
	baseURL string
	rl      *rpsLimiter
}

// NewOpenAIClient creates a client against the OpenAI API. If apiKey is
// empty it falls back to the OPENAI_API_KEY env var.
func NewOpenAIClient(apiKey, model string, rps float64, burst int) (*OpenAIClient, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	return newOpenAICompatible("OpenAI", openAIChatURL, apiKey, model, rps, burst), nil
}

// NewGroqClient creates a client against the Groq chat completions API
// (OpenAI-compatible). Falls back to the GROQ_API_KEY env var.
func NewGroqClient(apiKey, model string, rps float64, burst int) (*OpenAIClient, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GROQ_API_KEY")
	}
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	return newOpenAICompatible("Groq", groqChatURL, apiKey, model, rps, burst), nil
}

func newOpenAICompatible(label, baseURL, apiKey, model string, rps float64, burst int) *OpenAIClient {
	return &OpenAIClient{
		http:    &http.Client{Timeout: 120 * time.Second},
		label:   label,
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		rl:      newRPSLimiter(rps, burst),
	}
}

// WithBaseURL overrides the endpoint, used by tests and self-hosted
// gateways.
func (c *OpenAIClient) WithBaseURL(u string) *OpenAIClient {
	c.baseURL = strings.TrimSpace(u)
	return c
}

func (c *OpenAIClient) Name() string { return c.label + ":" + c.model }
func (c *OpenAIClient) Close() error {
	c.rl.Stop()
	return nil
}

type oaChatReq struct {
	Model    string      `json:"model"`
	Messages []oaMessage `json:"messages"`
	Stream   bool        `json:"stream,omitempty"`
}
type oaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
type oaChatResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
type oaStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (c *OpenAIClient) messages(system string, msgs []Message) []oaMessage {
	out := make([]oaMessage, 0, len(msgs)+1)
	if system != "" {
		out = append(out, oaMessage{Role: "system", Content: system})
	}
	for _, m := range msgs {
		out = append(out, oaMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

func (c *OpenAIClient) post(ctx context.Context, body oaChatReq) (*http.Response, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return nil, err
	}
	b, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		const max = 2048
		if len(raw) > max {
			raw = raw[:max]
		}
		return nil, fmt.Errorf("%s: unexpected status %s: %s", strings.ToLower(c.label), resp.Status, string(raw))
	}
	return resp, nil
}

func (c *OpenAIClient) Generate(ctx context.Context, system string, msgs []Message) (string, error) {
	resp, err := c.post(ctx, oaChatReq{Model: c.model, Messages: c.messages(system, msgs)})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out oaChatResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", ErrEmptyCompletion
	}
	return out.Choices[0].Message.Content, nil
}

// GenerateStream requests server-sent events and forwards content deltas
// to onChunk as they arrive.
func (c *OpenAIClient) GenerateStream(ctx context.Context, system string, msgs []Message, onChunk func(string)) (string, error) {
	resp, err := c.post(ctx, oaChatReq{Model: c.model, Messages: c.messages(system, msgs), Stream: true})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}
		var chunk oaStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if onChunk != nil {
			onChunk(delta)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	if full.Len() == 0 {
		return "", ErrEmptyCompletion
	}
	return full.String(), nil
}
