// Package chat runs comment-anchored conversations and persists their
// transcripts keyed by (post, comment, context mode).
package chat

import (
	"context"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"threadlens/internal/thread"
)

// Message is one persisted turn.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Transcript is one conversation anchored to a comment. PathIndex is the
// backreference map captured when the context payload was first built;
// every later turn's reply is linkified through it.
type Transcript struct {
	ConversationID string            `json:"conversation_id"`
	PostID         string            `json:"post_id"`
	CommentID      string            `json:"comment_id"`
	Mode           thread.Mode       `json:"mode"`
	ContextText    string            `json:"context_text"`
	PathIndex      map[string]string `json:"path_index"`
	Messages       []Message         `json:"messages"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// clone deep-copies the transcript. The store hands out and retains
// only clones, so no two callers ever share a Messages slice or
// PathIndex map.
func (t *Transcript) clone() *Transcript {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Messages = append([]Message(nil), t.Messages...)
	if t.PathIndex != nil {
		cp.PathIndex = make(map[string]string, len(t.PathIndex))
		for k, v := range t.PathIndex {
			cp.PathIndex[k] = v
		}
	}
	return &cp
}

// TranscriptKey is the storage key for one conversation.
func TranscriptKey(postID, commentID string, mode thread.Mode) string {
	return strings.Join([]string{postID, commentID, string(mode)}, "|")
}

// Store persists transcripts in Postgres when a DSN is configured and in
// a local JSON file otherwise, with an LRU front in both cases.
type Store struct {
	backend backend
	cache   *lru.Cache[string, *Transcript]
}

type backend interface {
	get(ctx context.Context, key string) (*Transcript, bool, error)
	put(ctx context.Context, key string, tr *Transcript) error
	close() error
}

// New creates a file-backed store.
func New(path string) (*Store, error) {
	return newStore(newFileBackend(path))
}

// NewPostgres creates a Postgres-backed store and verifies the
// connection.
func NewPostgres(dsn string) (*Store, error) {
	be, err := newPGBackend(dsn)
	if err != nil {
		return nil, err
	}
	return newStore(be)
}

func newStore(be backend) (*Store, error) {
	cache, err := lru.New[string, *Transcript](256)
	if err != nil {
		return nil, err
	}
	return &Store{backend: be, cache: cache}, nil
}

func (s *Store) Get(ctx context.Context, key string) (*Transcript, bool, error) {
	if tr, ok := s.cache.Get(key); ok {
		return tr.clone(), true, nil
	}
	tr, ok, err := s.backend.get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	s.cache.Add(key, tr)
	return tr.clone(), true, nil
}

// Put persists a snapshot of tr. The cache is only refreshed after the
// backend write succeeds, so a failed write never leaves a newer
// transcript in the cache than on disk.
func (s *Store) Put(ctx context.Context, tr *Transcript) error {
	key := TranscriptKey(tr.PostID, tr.CommentID, tr.Mode)
	cp := tr.clone()
	cp.UpdatedAt = time.Now().UTC()
	if err := s.backend.put(ctx, key, cp); err != nil {
		return err
	}
	s.cache.Add(key, cp)
	return nil
}

func (s *Store) Close() error {
	return s.backend.close()
}
