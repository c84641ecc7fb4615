package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"threadlens/internal/llm"
	"threadlens/internal/metrics"
	"threadlens/internal/payload"
	"threadlens/internal/thread"
)

// ErrNoContext means the anchor comment is unknown or the thread
// enriched to nothing, so there is no discussion to talk about.
var ErrNoContext = errors.New("chat: could not gather context for this comment")

const systemPrompt = `You are a discussion assistant for a threaded comment forum.
The conversation is anchored to the comment context below. Each comment line reads:

[<path>] (score: <score>) <replies: <count>> {downvotes: <count>} <author>: <text>

Paths encode position ("1.2" is the second reply to the first branch) and
scores encode community standing. Answer the user's questions about this
discussion. When you refer to a specific comment, cite it by its bracketed
path, for example [1.2]. Do not invent comments that are not in the context.`

// TreeSource fetches the hierarchical comment tree for a post.
type TreeSource interface {
	Thread(ctx context.Context, postID string) (*thread.RawNode, error)
}

type Service struct {
	trees   TreeSource
	clients llm.Factory
	store   *Store
	log     zerolog.Logger

	mu      sync.Mutex
	anchors map[string]*sync.Mutex
}

type ServiceConfig struct {
	Trees   TreeSource
	Clients llm.Factory
	Store   *Store
	Log     zerolog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	return &Service{
		trees:   cfg.Trees,
		clients: cfg.Clients,
		store:   cfg.Store,
		log:     cfg.Log,
		anchors: make(map[string]*sync.Mutex),
	}
}

// lockAnchor returns the mutex serializing turns on one anchor. Turns on
// the same (post, comment, mode) run one at a time so every turn sees
// the previous turn's messages; different anchors proceed in parallel.
func (s *Service) lockAnchor(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.anchors[key]
	if !ok {
		m = &sync.Mutex{}
		s.anchors[key] = m
	}
	return m
}

// Request carries one chat turn. The first turn for a given
// (post, comment, mode) anchor builds the context payload and starts the
// transcript; later turns reuse it. Tree, when set, skips the tree
// source fetch.
type Request struct {
	PostID    string             `json:"postId"`
	CommentID string             `json:"commentId,omitempty"` // empty anchors to the whole thread
	Mode      string             `json:"mode,omitempty"`
	Provider  string             `json:"provider,omitempty"`
	Model     string             `json:"model,omitempty"`
	Message   string             `json:"message"`
	Ranks     []thread.RankEntry `json:"ranks,omitempty"`
	Tree      *thread.RawNode    `json:"-"`
}

type Result struct {
	ConversationID string `json:"conversationId"`
	Reply          string `json:"reply"`
	Turns          int    `json:"turns"`
}

// SendMessage runs one request/response turn and persists the updated
// transcript.
func (s *Service) SendMessage(ctx context.Context, req Request) (*Result, error) {
	return s.turn(ctx, req, nil)
}

// SendMessageStream is SendMessage with incremental delivery. Chunks are
// raw model output; the final reply in the result has path references
// rewritten to anchors.
func (s *Service) SendMessageStream(ctx context.Context, req Request, onChunk func(string)) (*Result, error) {
	return s.turn(ctx, req, onChunk)
}

func (s *Service) turn(ctx context.Context, req Request, onChunk func(string)) (*Result, error) {
	if req.PostID == "" {
		return nil, fmt.Errorf("chat: post id is required")
	}
	if req.Message == "" {
		return nil, fmt.Errorf("chat: message is required")
	}
	mode := thread.ParseMode(req.Mode)

	lock := s.lockAnchor(TranscriptKey(req.PostID, req.CommentID, mode))
	lock.Lock()
	defer lock.Unlock()

	tr, err := s.transcript(ctx, req, mode)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	tr.Messages = append(tr.Messages, Message{Role: "user", Content: req.Message, At: now})

	client, err := s.clients(ctx, req.Provider, req.Model)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	history := make([]llm.Message, 0, len(tr.Messages))
	for _, m := range tr.Messages {
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}

	system := systemPrompt + "\n\nComment context:\n\n" + tr.ContextText
	start := time.Now()
	raw, err := llm.GenerateStreamed(ctx, client, system, history, onChunk)
	metrics.LLMRequestDuration.WithLabelValues(client.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(client.Name(), "error").Inc()
		return nil, fmt.Errorf("chat: provider call failed: %w", err)
	}
	metrics.LLMRequestsTotal.WithLabelValues(client.Name(), "ok").Inc()

	reply := payload.Linkify(raw, tr.PathIndex)
	tr.Messages = append(tr.Messages, Message{Role: "assistant", Content: reply, At: time.Now().UTC()})
	if err := s.store.Put(ctx, tr); err != nil {
		s.log.Warn().Err(err).Str("conversation", tr.ConversationID).Msg("transcript write failed")
	}

	metrics.ChatTurnsTotal.Inc()
	s.log.Info().
		Str("post", req.PostID).
		Str("comment", req.CommentID).
		Str("conversation", tr.ConversationID).
		Int("turns", len(tr.Messages)).
		Msg("chat turn")

	return &Result{
		ConversationID: tr.ConversationID,
		Reply:          reply,
		Turns:          len(tr.Messages),
	}, nil
}

// transcript loads the conversation for the anchor or starts a new one,
// building the context payload exactly once per conversation.
func (s *Service) transcript(ctx context.Context, req Request, mode thread.Mode) (*Transcript, error) {
	key := TranscriptKey(req.PostID, req.CommentID, mode)
	if tr, ok, err := s.store.Get(ctx, key); err != nil {
		return nil, fmt.Errorf("chat: load transcript: %w", err)
	} else if ok {
		return tr, nil
	}

	root := req.Tree
	if root == nil {
		var err error
		root, err = s.trees.Thread(ctx, req.PostID)
		if err != nil {
			return nil, fmt.Errorf("chat: fetch thread: %w", err)
		}
	}
	col := thread.Enrich(root, thread.RankIndex(req.Ranks))

	var selection []*thread.EnrichedNode
	if req.CommentID == "" {
		selection = col.Nodes
	} else {
		selection = thread.SelectContext(col, req.CommentID, mode)
	}
	selection = stripped(selection)
	if len(selection) == 0 {
		return nil, ErrNoContext
	}

	now := time.Now().UTC()
	return &Transcript{
		ConversationID: uuid.NewString(),
		PostID:         req.PostID,
		CommentID:      req.CommentID,
		Mode:           mode,
		ContextText:    payload.Format(selection),
		PathIndex:      thread.PathIndex(selection),
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func stripped(nodes []*thread.EnrichedNode) []*thread.EnrichedNode {
	out := make([]*thread.EnrichedNode, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		cp := *n
		cp.Text = payload.StripLinks(cp.Text)
		out = append(out, &cp)
	}
	return out
}
