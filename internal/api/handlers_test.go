package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"threadlens/internal/chat"
	"threadlens/internal/summarize"
)

type fakeSummarizer struct {
	res *summarize.Result
	err error

	lastReq summarize.Request
}

func (f *fakeSummarizer) Summarize(_ context.Context, req summarize.Request) (*summarize.Result, error) {
	f.lastReq = req
	return f.res, f.err
}

type fakeChatter struct {
	res    *chat.Result
	err    error
	chunks []string

	lastReq chat.Request
}

func (f *fakeChatter) SendMessage(_ context.Context, req chat.Request) (*chat.Result, error) {
	f.lastReq = req
	return f.res, f.err
}

func (f *fakeChatter) SendMessageStream(_ context.Context, req chat.Request, onChunk func(string)) (*chat.Result, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	for _, c := range f.chunks {
		onChunk(c)
	}
	return f.res, nil
}

func newTestServer(t *testing.T, s Summarizer, c Chatter) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewMux(NewHandler(s, c, zerolog.Nop())))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestSummarizeEndpoint(t *testing.T) {
	fake := &fakeSummarizer{res: &summarize.Result{
		Summary:   "key points",
		NodeCount: 4,
		PathIndex: map[string]string{"1": "101"},
	}}
	srv := newTestServer(t, fake, &fakeChatter{})

	resp := postJSON(t, srv.URL+summarizeProcedure, summarize.Request{
		PostID: "100", Mode: "subtree",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got summarize.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Equal(t, "key points", got.Summary)
	require.Equal(t, 4, got.NodeCount)
	require.Equal(t, "100", fake.lastReq.PostID)
	require.Equal(t, "subtree", fake.lastReq.Mode)
}

func TestSummarizeEndpointNoContext(t *testing.T) {
	fake := &fakeSummarizer{err: summarize.ErrNoContext}
	srv := newTestServer(t, fake, &fakeChatter{})

	resp := postJSON(t, srv.URL+summarizeProcedure, summarize.Request{PostID: "100"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	require.Contains(t, string(raw), "not_found")
}

func TestSummarizeEndpointInsufficient(t *testing.T) {
	fake := &fakeSummarizer{err: summarize.ErrInsufficientContext}
	srv := newTestServer(t, fake, &fakeChatter{})

	resp := postJSON(t, srv.URL+summarizeProcedure, summarize.Request{PostID: "100"})
	require.NotEqual(t, http.StatusOK, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	require.Contains(t, string(raw), "failed_precondition")
}

func TestChatEndpoint(t *testing.T) {
	fake := &fakeChatter{res: &chat.Result{
		ConversationID: "conv-1", Reply: "hello back", Turns: 2,
	}}
	srv := newTestServer(t, &fakeSummarizer{}, fake)

	resp := postJSON(t, srv.URL+chatProcedure, chat.Request{
		PostID: "100", Message: "hello",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got chat.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Equal(t, "conv-1", got.ConversationID)
	require.Equal(t, "hello", fake.lastReq.Message)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &fakeSummarizer{}, &fakeChatter{})
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, &fakeSummarizer{}, &fakeChatter{})

	req, err := http.NewRequest(http.MethodOptions, srv.URL+summarizeProcedure, nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://news.ycombinator.com")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "https://news.ycombinator.com", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestChatWebsocket(t *testing.T) {
	fake := &fakeChatter{
		res:    &chat.Result{ConversationID: "conv-1", Reply: "full reply", Turns: 2},
		chunks: []string{"full ", "reply"},
	}
	srv := newTestServer(t, &fakeSummarizer{}, fake)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat?post_id=100"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(chatWSInbound{Type: "send", Message: "hi"}))

	var frames []chatWSOutbound
	for len(frames) < 3 {
		var out chatWSOutbound
		require.NoError(t, conn.ReadJSON(&out))
		frames = append(frames, out)
	}

	require.Equal(t, "chunk", frames[0].Type)
	require.Equal(t, "full ", frames[0].Content)
	require.Equal(t, "chunk", frames[1].Type)
	require.Equal(t, "message", frames[2].Type)
	require.Equal(t, "full reply", frames[2].Reply)
	require.Equal(t, "conv-1", frames[2].ConversationID)
}

func TestChatWebsocketDeliversAllFramesUnderBackpressure(t *testing.T) {
	// Far more chunks than the write channel buffers: every chunk and
	// the terminal message frame must still arrive, in order.
	const chunkCount = 100
	chunks := make([]string, chunkCount)
	for i := range chunks {
		chunks[i] = "c"
	}
	fake := &fakeChatter{
		res:    &chat.Result{ConversationID: "conv-1", Reply: "done", Turns: 2},
		chunks: chunks,
	}
	srv := newTestServer(t, &fakeSummarizer{}, fake)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(chatWSInbound{Type: "send", PostID: "100", Message: "hi"}))

	received := 0
	for {
		var out chatWSOutbound
		require.NoError(t, conn.ReadJSON(&out))
		if out.Type == "chunk" {
			received++
			continue
		}
		require.Equal(t, "message", out.Type)
		require.Equal(t, "done", out.Reply)
		break
	}
	require.Equal(t, chunkCount, received)
}

func TestChatWebsocketError(t *testing.T) {
	fake := &fakeChatter{err: chat.ErrNoContext}
	srv := newTestServer(t, &fakeSummarizer{}, fake)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(chatWSInbound{Type: "send", PostID: "100", Message: "hi"}))

	var out chatWSOutbound
	require.NoError(t, conn.ReadJSON(&out))
	require.Equal(t, "error", out.Type)
	require.Equal(t, "not_found", out.Code)
}
