package thread

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func chainTree() *RawNode {
	// story -> c1 -> c2 -> c3
	return &RawNode{ID: "story", Author: "op", Children: []*RawNode{
		{ID: "c1", Author: "alice", Children: []*RawNode{
			{ID: "c2", Author: "bob", Children: []*RawNode{
				{ID: "c3", Author: "carol"},
			}},
		}},
	}}
}

func TestFlattenEmptyTree(t *testing.T) {
	require.Empty(t, Flatten(nil))
	require.Empty(t, Flatten(&RawNode{ID: "story"}))
}

func TestFlattenParentage(t *testing.T) {
	flat := Flatten(chainTree())
	require.Len(t, flat, 3)

	c1 := flat["c1"]
	require.Equal(t, "", c1.ParentID)
	require.Equal(t, 1, c1.ChildCount)
	require.Equal(t, "alice", c1.Author)

	c2 := flat["c2"]
	require.Equal(t, "c1", c2.ParentID)
	require.Equal(t, 1, c2.ChildCount)

	c3 := flat["c3"]
	require.Equal(t, "c2", c3.ParentID)
	require.Equal(t, 0, c3.ChildCount)
}

func TestFlattenEncounterOrder(t *testing.T) {
	root := &RawNode{ID: "story", Children: []*RawNode{
		{ID: "a", Children: []*RawNode{{ID: "a1"}, {ID: "a2"}}},
		{ID: "b"},
	}}
	flat := Flatten(root)
	require.Less(t, flat["a"].Seq, flat["a1"].Seq)
	require.Less(t, flat["a1"].Seq, flat["a2"].Seq)
	require.Less(t, flat["a2"].Seq, flat["b"].Seq)
}

func TestFlattenKeepsAuthorlessNodes(t *testing.T) {
	root := &RawNode{ID: "story", Children: []*RawNode{{ID: "ghost"}}}
	flat := Flatten(root)
	require.Contains(t, flat, "ghost")
	require.Equal(t, "", flat["ghost"].Author)
}
