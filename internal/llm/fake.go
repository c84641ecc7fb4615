package llm

import (
	"context"
	"strings"
	"sync"
)

// FakeClient returns deterministic replies for offline use and tests.
type FakeClient struct {
	mu sync.Mutex

	// Reply is returned verbatim when set; otherwise a canned line
	// derived from the last user message.
	Reply string
	// Err, when set, is returned from every call.
	Err error

	Calls   int
	Systems []string
	Inputs  [][]Message
}

func NewFakeClient(reply string) *FakeClient {
	return &FakeClient{Reply: reply}
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) Generate(_ context.Context, system string, msgs []Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	f.Systems = append(f.Systems, system)
	f.Inputs = append(f.Inputs, msgs)
	if f.Err != nil {
		return "", f.Err
	}
	if f.Reply != "" {
		return f.Reply, nil
	}
	last := ""
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			last = msgs[i].Content
			break
		}
	}
	return "fake reply to: " + firstLine(last), nil
}

func (f *FakeClient) GenerateStream(ctx context.Context, system string, msgs []Message, onChunk func(string)) (string, error) {
	out, err := f.Generate(ctx, system, msgs)
	if err != nil {
		return "", err
	}
	if onChunk != nil {
		// Two chunks so stream consumers exercise reassembly.
		mid := len(out) / 2
		onChunk(out[:mid])
		onChunk(out[mid:])
	}
	return out, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
