package thread

import "strings"

// Mode selects which part of the thread a context gathers.
type Mode string

const (
	// ModeAncestors walks the parent chain root-first down to the focal
	// comment.
	ModeAncestors Mode = "ancestors"
	// ModeSubtree takes the focal comment and every descendant.
	ModeSubtree Mode = "subtree"
	// ModeChildren takes the focal comment and its direct replies only.
	ModeChildren Mode = "children"
)

// ParseMode maps a wire string onto a Mode, defaulting to subtree.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeAncestors:
		return ModeAncestors
	case ModeChildren:
		return ModeChildren
	default:
		return ModeSubtree
	}
}

// SelectContext extracts the sub-collection for one focal comment.
//
// An unknown focal id yields an empty selection; the caller treats that
// as "cannot gather context". Ancestor walks that hit a missing parent
// return the partial chain accumulated so far. Subtree and children
// selections relabel the focal node with the sentinel path and score and
// prefix-rewrite descendant paths so the focal node reads as the root of
// its own payload; returned nodes are copies, the collection itself is
// never mutated.
func SelectContext(col *Collection, focalID string, mode Mode) []*EnrichedNode {
	if col == nil {
		return nil
	}
	focal, ok := col.Get(focalID)
	if !ok {
		return nil
	}
	switch mode {
	case ModeAncestors:
		return selectAncestors(col, focal)
	case ModeChildren:
		return selectChildren(col, focal)
	default:
		return selectSubtree(col, focal)
	}
}

func selectAncestors(col *Collection, focal *EnrichedNode) []*EnrichedNode {
	chain := make([]*EnrichedNode, 0, PathDepth(focal.Path))
	for n := focal; n != nil; {
		cp := *n
		chain = append(chain, &cp)
		if n.ParentID == "" {
			break
		}
		parent, ok := col.Get(n.ParentID)
		if !ok {
			// Broken chain: best-effort partial result.
			break
		}
		n = parent
	}
	// Walked focal-up; callers want root-first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

func selectSubtree(col *Collection, focal *EnrichedNode) []*EnrichedNode {
	out := []*EnrichedNode{relabelTarget(focal)}
	for _, n := range col.Nodes {
		if n.ID == focal.ID || !isDescendant(col, n, focal.ID) {
			continue
		}
		out = append(out, rewriteUnder(n, focal.Path))
	}
	return out
}

func selectChildren(col *Collection, focal *EnrichedNode) []*EnrichedNode {
	out := []*EnrichedNode{relabelTarget(focal)}
	for _, n := range col.Nodes {
		if n.ParentID != focal.ID {
			continue
		}
		out = append(out, rewriteUnder(n, focal.Path))
	}
	return out
}

// isDescendant reports whether n sits in the transitive parent closure
// of ancestorID.
func isDescendant(col *Collection, n *EnrichedNode, ancestorID string) bool {
	for cur := n; cur.ParentID != ""; {
		if cur.ParentID == ancestorID {
			return true
		}
		parent, ok := col.Get(cur.ParentID)
		if !ok {
			return false
		}
		cur = parent
	}
	return false
}

func relabelTarget(n *EnrichedNode) *EnrichedNode {
	cp := *n
	cp.Path = TargetPath
	cp.Score = TargetScore
	cp.IsTarget = true
	return &cp
}

// rewriteUnder replaces the focal prefix of a descendant's path with the
// sentinel path, preserving sibling ordinals: focal "2.3" with child
// "2.3.1" yields "1.1". The prefix is trimmed segment-wise so a sibling
// like "2.30" can never be mistaken for a descendant of "2.3".
func rewriteUnder(n *EnrichedNode, focalPath string) *EnrichedNode {
	cp := *n
	if rest, ok := strings.CutPrefix(n.Path, focalPath+"."); ok {
		cp.Path = TargetPath + "." + rest
	}
	return &cp
}
