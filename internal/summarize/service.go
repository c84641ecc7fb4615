// Package summarize orchestrates one summarization pass: enrich the
// thread, select and format the context, call the provider, rewrite
// path references, and cache the result for the validity window.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"threadlens/internal/llm"
	"threadlens/internal/metrics"
	"threadlens/internal/payload"
	"threadlens/internal/thread"
)

var (
	// ErrNoContext means the focal comment is unknown or the thread
	// enriched to nothing; surfaced to the user as "could not gather
	// context".
	ErrNoContext = errors.New("summarize: could not gather context for this comment")
	// ErrInsufficientContext means the selection is too small or too
	// shallow to justify a provider call.
	ErrInsufficientContext = errors.New("summarize: not enough discussion to summarize")
)

// TreeSource fetches the hierarchical comment tree for a post.
type TreeSource interface {
	Thread(ctx context.Context, postID string) (*thread.RawNode, error)
}

// Archiver persists payload/summary pairs for debugging and replay.
type Archiver interface {
	Put(ctx context.Context, postID, name string, content []byte) error
}

type Service struct {
	trees    TreeSource
	clients  llm.Factory
	cache    CacheStore
	archive  Archiver // nil when archiving is disabled
	log      zerolog.Logger
	minNodes int
	minDepth int
}

type ServiceConfig struct {
	Trees    TreeSource
	Clients  llm.Factory
	Cache    CacheStore
	Archive  Archiver
	Log      zerolog.Logger
	MinNodes int
	MinDepth int
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.MinNodes <= 0 {
		cfg.MinNodes = 3
	}
	if cfg.MinDepth <= 0 {
		cfg.MinDepth = 1
	}
	return &Service{
		trees:    cfg.Trees,
		clients:  cfg.Clients,
		cache:    cfg.Cache,
		archive:  cfg.Archive,
		log:      cfg.Log,
		minNodes: cfg.MinNodes,
		minDepth: cfg.MinDepth,
	}
}

// Request carries one summarization order. Ranks is the vote-ordered
// listing snapshot taken by the extension; Tree, when set, skips the
// tree source fetch (used by tests and offline replays).
type Request struct {
	PostID    string            `json:"postId"`
	CommentID string            `json:"commentId,omitempty"` // empty summarizes the whole thread
	Mode      string            `json:"mode,omitempty"`
	Provider  string            `json:"provider,omitempty"`
	Model     string            `json:"model,omitempty"`
	Language  string            `json:"language,omitempty"`
	Ranks     []thread.RankEntry `json:"ranks"`
	Tree      *thread.RawNode   `json:"-"`
}

type Result struct {
	Summary   string            `json:"summary"`
	FromCache bool              `json:"fromCache"`
	NodeCount int               `json:"nodeCount"`
	PathIndex map[string]string `json:"pathIndex"`
}

func (s *Service) Summarize(ctx context.Context, req Request) (*Result, error) {
	if req.PostID == "" {
		return nil, fmt.Errorf("summarize: post id is required")
	}
	mode := thread.ParseMode(req.Mode)
	key := CacheKey{
		PostID:    req.PostID,
		CommentID: req.CommentID,
		Mode:      mode,
		Provider:  req.Provider,
		Model:     req.Model,
		Language:  req.Language,
	}
	if s.cache != nil {
		if rec, ok, _ := s.cache.Get(ctx, key); ok {
			metrics.SummariesTotal.WithLabelValues("cache").Inc()
			s.log.Debug().Str("post", req.PostID).Str("comment", req.CommentID).Msg("summary cache hit")
			return &Result{
				Summary:   rec.Summary,
				FromCache: true,
				NodeCount: rec.NodeCount,
				PathIndex: rec.PathIndex,
			}, nil
		}
	}

	selection, err := s.gather(ctx, req, mode)
	if err != nil {
		return nil, err
	}

	text := payload.Format(selection)
	idx := thread.PathIndex(selection)

	client, err := s.clients(ctx, req.Provider, req.Model)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	start := time.Now()
	raw, err := client.Generate(ctx, BuildPrompt(req.Language), llm.UserMessage(text))
	metrics.LLMRequestDuration.WithLabelValues(client.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(client.Name(), "error").Inc()
		return nil, fmt.Errorf("summarize: provider call failed: %w", err)
	}
	metrics.LLMRequestsTotal.WithLabelValues(client.Name(), "ok").Inc()

	summary := payload.Linkify(raw, idx)
	rec := &Record{
		Summary:   summary,
		NodeCount: len(selection),
		PathIndex: idx,
		CreatedAt: time.Now().UTC(),
	}
	if s.cache != nil {
		if err := s.cache.Put(ctx, key, rec); err != nil {
			s.log.Warn().Err(err).Msg("summary cache write failed")
		}
	}
	s.archiveResult(ctx, req, text, summary)

	metrics.SummariesTotal.WithLabelValues("llm").Inc()
	s.log.Info().
		Str("post", req.PostID).
		Str("comment", req.CommentID).
		Str("provider", client.Name()).
		Int("nodes", len(selection)).
		Msg("summary produced")

	return &Result{Summary: summary, NodeCount: len(selection), PathIndex: idx}, nil
}

// gather builds the enriched selection for the request and applies the
// under-resourced-input policy.
func (s *Service) gather(ctx context.Context, req Request, mode thread.Mode) ([]*thread.EnrichedNode, error) {
	root := req.Tree
	if root == nil {
		var err error
		root, err = s.trees.Thread(ctx, req.PostID)
		if err != nil {
			return nil, fmt.Errorf("summarize: fetch thread: %w", err)
		}
	}
	col := thread.Enrich(root, thread.RankIndex(req.Ranks))

	var selection []*thread.EnrichedNode
	if req.CommentID == "" {
		selection = sanitized(col.Nodes)
	} else {
		selection = sanitized(thread.SelectContext(col, req.CommentID, mode))
	}
	if len(selection) == 0 {
		return nil, ErrNoContext
	}
	if len(selection) < s.minNodes || thread.MaxDepth(selection) < s.minDepth {
		return nil, ErrInsufficientContext
	}
	return selection, nil
}

// sanitized strips hyperlink markup from node text ahead of formatting,
// copying nodes so the collection stays untouched.
func sanitized(nodes []*thread.EnrichedNode) []*thread.EnrichedNode {
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

func (s *Service) archiveResult(ctx context.Context, req Request, text, summary string) {
	if s.archive == nil {
		return
	}
	prefix := req.PostID
	if req.CommentID != "" {
		prefix += "/" + req.CommentID
	}
	if err := s.archive.Put(ctx, prefix, "payload.txt", []byte(text)); err != nil {
		s.log.Warn().Err(err).Msg("archive payload failed")
		return
	}
	if err := s.archive.Put(ctx, prefix, "summary.txt", []byte(summary)); err != nil {
		s.log.Warn().Err(err).Msg("archive summary failed")
	}
}
