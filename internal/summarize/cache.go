package summarize

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"threadlens/internal/metrics"
	"threadlens/internal/thread"
)

// CacheKey identifies one cached summary. Every field participates: a
// different provider, model or language is a different summary.
type CacheKey struct {
	PostID    string
	CommentID string
	Mode      thread.Mode
	Provider  string
	Model     string
	Language  string
}

func (k CacheKey) String() string {
	return strings.Join([]string{
		k.PostID, k.CommentID, string(k.Mode), k.Provider, k.Model, k.Language,
	}, "|")
}

// Record is a cached summary with enough metadata to reuse its
// backreference map without re-enriching the thread.
type Record struct {
	Summary   string            `json:"summary"`
	NodeCount int               `json:"node_count"`
	PathIndex map[string]string `json:"path_index,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// CacheStore is a summary cache backend. Get returns ok=false on miss;
// expiry is the backend's concern.
type CacheStore interface {
	Get(ctx context.Context, key CacheKey) (*Record, bool, error)
	Put(ctx context.Context, key CacheKey, rec *Record) error
}

// memoryCache bounds entries and expires them after the validity window.
type memoryCache struct {
	lru *expirable.LRU[string, *Record]
}

// NewMemoryCache creates the in-process cache layer.
func NewMemoryCache(size int, ttl time.Duration) CacheStore {
	if size <= 0 {
		size = 128
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &memoryCache{lru: expirable.NewLRU[string, *Record](size, nil, ttl)}
}

func (m *memoryCache) Get(_ context.Context, key CacheKey) (*Record, bool, error) {
	rec, ok := m.lru.Get(key.String())
	return rec, ok, nil
}

func (m *memoryCache) Put(_ context.Context, key CacheKey, rec *Record) error {
	m.lru.Add(key.String(), rec)
	return nil
}

// layeredCache reads through the front into the origin, refilling the
// front on origin hits. Origin errors degrade to a miss: the cache is an
// optimization, never a failure source.
type layeredCache struct {
	front  CacheStore
	origin CacheStore
}

// NewLayeredCache stacks a front cache over an origin. A nil origin
// returns the front unchanged.
func NewLayeredCache(front, origin CacheStore) CacheStore {
	if origin == nil {
		return front
	}
	return &layeredCache{front: front, origin: origin}
}

func (l *layeredCache) Get(ctx context.Context, key CacheKey) (*Record, bool, error) {
	if rec, ok, _ := l.front.Get(ctx, key); ok {
		metrics.CacheOpsTotal.WithLabelValues("front", "hit").Inc()
		return rec, true, nil
	}
	metrics.CacheOpsTotal.WithLabelValues("front", "miss").Inc()

	rec, ok, err := l.origin.Get(ctx, key)
	if err != nil || !ok {
		metrics.CacheOpsTotal.WithLabelValues("origin", "miss").Inc()
		return nil, false, nil
	}
	metrics.CacheOpsTotal.WithLabelValues("origin", "hit").Inc()
	_ = l.front.Put(ctx, key, rec)
	return rec, true, nil
}

func (l *layeredCache) Put(ctx context.Context, key CacheKey, rec *Record) error {
	_ = l.front.Put(ctx, key, rec)
	return l.origin.Put(ctx, key, rec)
}
