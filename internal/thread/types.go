// Package thread reconstructs and scores discussion comment forests.
//
// It merges two independently-ordered views of the same thread: the
// hierarchical tree returned by the item API and the vote-ordered flat
// listing the reader actually sees. The merged result carries a
// deterministic dot path and an importance score per comment, suitable
// for rendering into an LLM payload and for resolving path references
// in model output back to comment ids.
package thread

// RawNode is one node of the hierarchical tree as fetched from the item
// API. The root is a synthetic container (the story itself) and is never
// enriched.
type RawNode struct {
	ID       string
	Author   string
	Children []*RawNode
}

// RankEntry is one row of the vote-ordered listing. Rank is zero-based
// render order. A comment with no RankEntry is hidden or removed upstream
// and is excluded from enrichment.
type RankEntry struct {
	ID        string `json:"id"`
	Rank      int    `json:"rank"`
	Text      string `json:"text"`
	Downvotes int    `json:"downvotes"`
}

// EnrichedNode is a comment annotated with rank, lineage, path and score.
type EnrichedNode struct {
	ID         string
	Author     string
	Text       string
	Downvotes  int
	ReplyCount int
	Rank       int
	ParentID   string // empty for top-level comments
	Path       string
	Score      int
	IsTarget   bool
}

// Collection is the result of one enrichment pass: nodes in ascending
// rank order plus an id lookup. It is built once per operation and never
// mutated afterwards; selections copy nodes instead of relabeling in
// place.
type Collection struct {
	Nodes []*EnrichedNode
	byID  map[string]*EnrichedNode
}

func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Nodes)
}

func (c *Collection) Get(id string) (*EnrichedNode, bool) {
	if c == nil {
		return nil, false
	}
	n, ok := c.byID[id]
	return n, ok
}

// PathIndex builds the path-to-id map for a selection. Downstream
// backreference rewriting resolves through this map, so it must be built
// from the exact node sequence that was formatted.
func PathIndex(nodes []*EnrichedNode) map[string]string {
	idx := make(map[string]string, len(nodes))
	for _, n := range nodes {
		if n == nil || n.Path == "" {
			continue
		}
		idx[n.Path] = n.ID
	}
	return idx
}

// MaxDepth reports the deepest path in the selection, measured in path
// segments. Zero for an empty selection.
func MaxDepth(nodes []*EnrichedNode) int {
	max := 0
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if d := PathDepth(n.Path); d > max {
			max = d
		}
	}
	return max
}
