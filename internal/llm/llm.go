// Package llm provides the provider adapters behind one normalized
// chat-completion interface. Each vendor's request/response shape stays
// inside its adapter; callers see plain text in and plain text out.
package llm

import (
	"context"
	"errors"
)

var (
	ErrEmptyCompletion = errors.New("llm: empty completion from model")
	ErrMissingAPIKey   = errors.New("llm: missing API key")
)

// Message is one turn of a conversation in normalized form.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Client is the normalized completion interface all providers implement.
type Client interface {
	Name() string
	Generate(ctx context.Context, system string, messages []Message) (string, error)
	Close() error
}

// Streamer is implemented by clients that can deliver the completion
// incrementally. Chunks are raw text fragments; the concatenation of all
// chunks equals the returned string.
type Streamer interface {
	GenerateStream(ctx context.Context, system string, messages []Message, onChunk func(string)) (string, error)
}

// GenerateStreamed uses streaming when the client supports it and falls
// back to a single chunk otherwise.
func GenerateStreamed(ctx context.Context, c Client, system string, messages []Message, onChunk func(string)) (string, error) {
	if s, ok := c.(Streamer); ok {
		return s.GenerateStream(ctx, system, messages, onChunk)
	}
	out, err := c.Generate(ctx, system, messages)
	if err != nil {
		return "", err
	}
	if onChunk != nil {
		onChunk(out)
	}
	return out, nil
}

// UserMessage wraps a single prompt as a one-turn conversation.
func UserMessage(content string) []Message {
	return []Message{{Role: "user", Content: content}}
}
