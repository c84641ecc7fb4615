// Package api exposes the summarize and chat services over connect RPC
// plus a websocket endpoint for streamed chat.
package api

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"

	"threadlens/internal/chat"
	"threadlens/internal/hn"
	"threadlens/internal/llm"
	"threadlens/internal/metrics"
	"threadlens/internal/summarize"
)

const (
	summarizeProcedure = "/threadlens.v1.SummaryService/Summarize"
	chatProcedure      = "/threadlens.v1.ChatService/SendMessage"
)

// Summarizer is the summarize surface the API depends on.
type Summarizer interface {
	Summarize(ctx context.Context, req summarize.Request) (*summarize.Result, error)
}

// Chatter is the chat surface the API depends on.
type Chatter interface {
	SendMessage(ctx context.Context, req chat.Request) (*chat.Result, error)
	SendMessageStream(ctx context.Context, req chat.Request, onChunk func(string)) (*chat.Result, error)
}

type Handler struct {
	summaries Summarizer
	chats     Chatter
	log       zerolog.Logger
}

func NewHandler(summaries Summarizer, chats Chatter, log zerolog.Logger) *Handler {
	return &Handler{summaries: summaries, chats: chats, log: log}
}

// NewMux builds the service routing table.
func NewMux(h *Handler) http.Handler {
	mux := http.NewServeMux()

	opts := connect.WithCodec(jsonCodec{})
	mux.Handle(summarizeProcedure, connect.NewUnaryHandler(
		summarizeProcedure, h.handleSummarize, opts))
	mux.Handle(chatProcedure, connect.NewUnaryHandler(
		chatProcedure, h.handleChat, opts))

	mux.HandleFunc("/ws/chat", h.handleChatWS)
	mux.HandleFunc("/healthz", handleHealth)
	mux.Handle("/metrics", metrics.Handler())

	return cors(mux)
}

func (h *Handler) handleSummarize(ctx context.Context, req *connect.Request[summarize.Request]) (*connect.Response[summarize.Result], error) {
	res, err := h.summaries.Summarize(ctx, *req.Msg)
	if err != nil {
		h.log.Warn().Err(err).Str("post", req.Msg.PostID).Msg("summarize failed")
		return nil, rpcError(err)
	}
	return connect.NewResponse(res), nil
}

func (h *Handler) handleChat(ctx context.Context, req *connect.Request[chat.Request]) (*connect.Response[chat.Result], error) {
	res, err := h.chats.SendMessage(ctx, *req.Msg)
	if err != nil {
		h.log.Warn().Err(err).Str("post", req.Msg.PostID).Msg("chat turn failed")
		return nil, rpcError(err)
	}
	return connect.NewResponse(res), nil
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func rpcError(err error) *connect.Error {
	switch {
	case errors.Is(err, summarize.ErrNoContext), errors.Is(err, chat.ErrNoContext),
		errors.Is(err, hn.ErrThreadNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, summarize.ErrInsufficientContext):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, llm.ErrMissingAPIKey):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
