package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"threadlens/internal/chat"
	"threadlens/internal/thread"
)

const (
	chatWSWriteWait = 10 * time.Second
	chatWSPongWait  = 60 * time.Second
	chatWSPingEvery = (chatWSPongWait * 9) / 10
)

var chatWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type chatWSInbound struct {
	Type      string             `json:"type"`
	PostID    string             `json:"postId,omitempty"`
	CommentID string             `json:"commentId,omitempty"`
	Mode      string             `json:"mode,omitempty"`
	Provider  string             `json:"provider,omitempty"`
	Model     string             `json:"model,omitempty"`
	Message   string             `json:"message,omitempty"`
	Ranks     []thread.RankEntry `json:"ranks,omitempty"`
}

type chatWSOutbound struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversationId,omitempty"`
	Content        string `json:"content,omitempty"`
	Reply          string `json:"reply,omitempty"`
	Turns          int    `json:"turns,omitempty"`
	Code           string `json:"code,omitempty"`
	Message        string `json:"message,omitempty"`
}

// handleChatWS runs a chat conversation over one socket. Each "send"
// produces a stream of "chunk" frames followed by one "message" frame
// carrying the final linkified reply.
func (h *Handler) handleChatWS(w http.ResponseWriter, r *http.Request) {
	postID := strings.TrimSpace(r.URL.Query().Get("post_id"))

	conn, err := chatWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(chatWSPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(chatWSPongWait))
	})

	writeCh := make(chan chatWSOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		// Unblocks any pending push once this writer stops draining.
		defer cancel()
		ticker := time.NewTicker(chatWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(chatWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(chatWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		var in chatWSInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		msgType := strings.ToLower(strings.TrimSpace(in.Type))

		switch msgType {
		case "ping":
			pushChatWS(ctx, writeCh, chatWSOutbound{Type: "pong"})
		case "send":
			msgPostID := postID
			if v := strings.TrimSpace(in.PostID); v != "" {
				msgPostID = v
			}
			res, sendErr := h.chats.SendMessageStream(ctx, chat.Request{
				PostID:    msgPostID,
				CommentID: strings.TrimSpace(in.CommentID),
				Mode:      in.Mode,
				Provider:  in.Provider,
				Model:     in.Model,
				Message:   in.Message,
				Ranks:     in.Ranks,
			}, func(chunk string) {
				pushChatWS(ctx, writeCh, chatWSOutbound{Type: "chunk", Content: chunk})
			})
			if sendErr != nil {
				pushChatWS(ctx, writeCh, chatWSOutbound{
					Type:    "error",
					Code:    connectCode(sendErr),
					Message: sendErr.Error(),
				})
				continue
			}
			pushChatWS(ctx, writeCh, chatWSOutbound{
				Type:           "message",
				ConversationID: res.ConversationID,
				Reply:          res.Reply,
				Turns:          res.Turns,
			})
		default:
			pushChatWS(ctx, writeCh, chatWSOutbound{
				Type:    "error",
				Code:    "invalid_argument",
				Message: "unsupported type: " + msgType,
			})
		}
	}
}

func connectCode(err error) string {
	return rpcError(err).Code().String()
}

// pushChatWS blocks until the writer accepts the frame. Backpressure
// slows the producer down instead of discarding frames; a terminal
// "message" or "error" frame is never lost. The writer cancels ctx when
// it stops draining, which unblocks any pending push.
func pushChatWS(ctx context.Context, writeCh chan<- chatWSOutbound, out chatWSOutbound) {
	select {
	case writeCh <- out:
	case <-ctx.Done():
	}
}
