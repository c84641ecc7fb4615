package thread

import "sort"

// Enrich merges the flattened tree with the rank listing and annotates
// every retained node with path and score.
//
// Nodes without a RankEntry are dropped, as are nodes whose parent was
// dropped: the listing renders parents before their children, so a
// retained child of a hidden parent only occurs on malformed input and
// the whole branch is treated as hidden. Dropped branches do not count
// toward the scoring total. Sibling ordinals are assigned in ascending
// rank order and renumber contiguously past dropped siblings. Rank ties
// resolve by tree encounter order.
func Enrich(root *RawNode, ranks map[string]RankEntry) *Collection {
	flat := Flatten(root)

	// A node is retained only when its whole ancestor chain is ranked.
	// Deciding this up front keeps the scoring total equal to the size
	// of the final enriched set: a hidden parent must not let its
	// dropped descendants dilute everyone else's score.
	retained := make(map[string]bool, len(flat))
	var keep func(id string) bool
	keep = func(id string) bool {
		if v, ok := retained[id]; ok {
			return v
		}
		fn, inTree := flat[id]
		if !inTree {
			retained[id] = false
			return false
		}
		if _, ranked := ranks[id]; !ranked {
			retained[id] = false
			return false
		}
		v := fn.ParentID == "" || keep(fn.ParentID)
		retained[id] = v
		return v
	}

	type candidate struct {
		node FlatNode
		rank RankEntry
	}
	cands := make([]candidate, 0, len(flat))
	for id, fn := range flat {
		if !keep(id) {
			continue
		}
		cands = append(cands, candidate{node: fn, rank: ranks[id]})
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].rank.Rank != cands[j].rank.Rank {
			return cands[i].rank.Rank < cands[j].rank.Rank
		}
		return cands[i].node.Seq < cands[j].node.Seq
	})

	total := len(cands)
	col := &Collection{
		Nodes: make([]*EnrichedNode, 0, total),
		byID:  make(map[string]*EnrichedNode, total),
	}

	// Explicit accumulators for ordinal assignment: one counter for
	// top-level comments, one per parent for replies.
	topOrdinal := 0
	siblingOrdinal := make(map[string]int)

	for _, c := range cands {
		var path string
		if c.node.ParentID == "" {
			topOrdinal++
			path = TopLevelPath(topOrdinal)
		} else {
			parent, ok := col.byID[c.node.ParentID]
			if !ok {
				continue
			}
			siblingOrdinal[c.node.ParentID]++
			path = ChildPath(parent.Path, siblingOrdinal[c.node.ParentID])
		}
		n := &EnrichedNode{
			ID:         c.node.ID,
			Author:     c.node.Author,
			Text:       c.rank.Text,
			Downvotes:  c.rank.Downvotes,
			ReplyCount: c.node.ChildCount,
			Rank:       c.rank.Rank,
			ParentID:   c.node.ParentID,
			Path:       path,
			Score:      Score(c.rank.Rank, total, c.rank.Downvotes),
		}
		col.Nodes = append(col.Nodes, n)
		col.byID[n.ID] = n
	}
	return col
}

// RankIndex converts a rank listing slice into the map form Enrich
// consumes. Later duplicates of an id win, matching a re-scraped
// snapshot overwriting a stale one.
func RankIndex(entries []RankEntry) map[string]RankEntry {
	out := make(map[string]RankEntry, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		out[e.ID] = e
	}
	return out
}
