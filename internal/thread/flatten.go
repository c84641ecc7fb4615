package thread

// FlatNode is one entry of the flattened tree: identity, lineage and the
// pre-filtering direct-child count that later becomes ReplyCount.
type FlatNode struct {
	ID         string
	Author     string
	ParentID   string // empty for direct children of the synthetic root
	ChildCount int
	// Seq is the depth-first encounter order. Enrichment uses it as the
	// tie-break when two entries share a rank, so the contract stays
	// deterministic even though the result is a map.
	Seq int
}

// Flatten walks the tree depth-first and returns a map keyed by node id.
// The synthetic root itself is not included; its direct children get an
// empty ParentID. An empty tree yields an empty map. The input is trusted
// to be a finite tree; cycles are not defended against.
func Flatten(root *RawNode) map[string]FlatNode {
	out := make(map[string]FlatNode)
	if root == nil {
		return out
	}
	seq := 0
	var walk func(n *RawNode, parentID string)
	walk = func(n *RawNode, parentID string) {
		for _, child := range n.Children {
			if child == nil {
				continue
			}
			out[child.ID] = FlatNode{
				ID:         child.ID,
				Author:     child.Author,
				ParentID:   parentID,
				ChildCount: len(child.Children),
				Seq:        seq,
			}
			seq++
			walk(child, child.ID)
		}
	}
	walk(root, "")
	return out
}
