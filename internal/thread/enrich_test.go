package thread

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func ranksFor(pairs ...RankEntry) map[string]RankEntry {
	return RankIndex(pairs)
}

// wideTree builds:
//
//	story
//	├── a        (rank 0)
//	│   ├── b    (rank 1)
//	│   │   ├── d (rank 3)
//	│   │   └── e (rank 4)
//	│   └── c    (rank 2)
func wideTree() *RawNode {
	return &RawNode{ID: "story", Children: []*RawNode{
		{ID: "a", Author: "ann", Children: []*RawNode{
			{ID: "b", Author: "ben", Children: []*RawNode{
				{ID: "d", Author: "dan"},
				{ID: "e", Author: "eve"},
			}},
			{ID: "c", Author: "cam"},
		}},
	}}
}

func wideRanks() map[string]RankEntry {
	return ranksFor(
		RankEntry{ID: "a", Rank: 0, Text: "ta"},
		RankEntry{ID: "b", Rank: 1, Text: "tb"},
		RankEntry{ID: "c", Rank: 2, Text: "tc"},
		RankEntry{ID: "d", Rank: 3, Text: "td"},
		RankEntry{ID: "e", Rank: 4, Text: "te"},
	)
}

func TestEnrichPaths(t *testing.T) {
	col := Enrich(wideTree(), wideRanks())
	require.Equal(t, 5, col.Len())

	want := map[string]string{
		"a": "1", "b": "1.1", "c": "1.2", "d": "1.1.1", "e": "1.1.2",
	}
	for id, path := range want {
		n, ok := col.Get(id)
		require.True(t, ok, id)
		require.Equal(t, path, n.Path, id)
	}
}

func TestEnrichPathInvariants(t *testing.T) {
	col := Enrich(wideTree(), wideRanks())

	seen := map[string]bool{}
	for _, n := range col.Nodes {
		require.False(t, seen[n.Path], "duplicate path %s", n.Path)
		seen[n.Path] = true

		if n.ParentID == "" {
			require.Equal(t, 1, PathDepth(n.Path))
			continue
		}
		parent, ok := col.Get(n.ParentID)
		require.True(t, ok)
		require.Equal(t, PathDepth(parent.Path)+1, PathDepth(n.Path))
	}
}

func TestEnrichRankOrderAndMetadata(t *testing.T) {
	col := Enrich(wideTree(), wideRanks())
	for i := 1; i < len(col.Nodes); i++ {
		require.LessOrEqual(t, col.Nodes[i-1].Rank, col.Nodes[i].Rank)
	}
	b, _ := col.Get("b")
	require.Equal(t, 2, b.ReplyCount)
	require.Equal(t, "tb", b.Text)
	require.Equal(t, "ben", b.Author)
	require.Equal(t, Score(1, 5, 0), b.Score)
}

func TestEnrichMissingRankExclusion(t *testing.T) {
	root := &RawNode{ID: "story", Children: []*RawNode{
		{ID: "x"}, {ID: "y"}, {ID: "z"},
	}}
	// y has no rank entry: hidden upstream.
	col := Enrich(root, ranksFor(
		RankEntry{ID: "x", Rank: 0},
		RankEntry{ID: "z", Rank: 2},
	))
	require.Equal(t, 2, col.Len())
	_, ok := col.Get("y")
	require.False(t, ok)

	// Siblings renumber contiguously past the hidden node.
	x, _ := col.Get("x")
	z, _ := col.Get("z")
	require.Equal(t, "1", x.Path)
	require.Equal(t, "2", z.Path)
}

func TestEnrichDropsOrphanedBranch(t *testing.T) {
	// Parent b hidden: its child d is dropped with it even though d has
	// a rank entry.
	col := Enrich(wideTree(), ranksFor(
		RankEntry{ID: "a", Rank: 0},
		RankEntry{ID: "c", Rank: 1},
		RankEntry{ID: "d", Rank: 2},
	))
	require.Equal(t, 2, col.Len())
	_, ok := col.Get("d")
	require.False(t, ok)
	c, _ := col.Get("c")
	require.Equal(t, "1.1", c.Path)
}

func TestEnrichScoreTotalExcludesDroppedBranches(t *testing.T) {
	// Same hidden-parent setup: d is ranked but dropped with b, so the
	// scoring total is the 2 retained nodes, not the 3 ranked ones.
	col := Enrich(wideTree(), ranksFor(
		RankEntry{ID: "a", Rank: 0},
		RankEntry{ID: "c", Rank: 1},
		RankEntry{ID: "d", Rank: 2},
	))
	require.Equal(t, 2, col.Len())

	c, _ := col.Get("c")
	require.Equal(t, Score(1, 2, 0), c.Score)
	require.Equal(t, 500, c.Score)
}

func TestEnrichRankTieStability(t *testing.T) {
	root := &RawNode{ID: "story", Children: []*RawNode{
		{ID: "p"}, {ID: "q"}, {ID: "r"},
	}}
	// All tied: encounter order decides.
	col := Enrich(root, ranksFor(
		RankEntry{ID: "p", Rank: 0},
		RankEntry{ID: "q", Rank: 0},
		RankEntry{ID: "r", Rank: 0},
	))
	require.Equal(t, []string{"p", "q", "r"}, []string{
		col.Nodes[0].ID, col.Nodes[1].ID, col.Nodes[2].ID,
	})
}

func TestEnrichEmptyInputs(t *testing.T) {
	require.Equal(t, 0, Enrich(&RawNode{ID: "story"}, wideRanks()).Len())
	require.Equal(t, 0, Enrich(wideTree(), nil).Len())
	require.Equal(t, 0, Enrich(nil, nil).Len())
}

func TestEnrichSingleLevelTree(t *testing.T) {
	root := &RawNode{ID: "story", Children: []*RawNode{
		{ID: "m"}, {ID: "n"},
	}}
	col := Enrich(root, ranksFor(
		RankEntry{ID: "m", Rank: 0},
		RankEntry{ID: "n", Rank: 1},
	))
	for _, n := range col.Nodes {
		require.Equal(t, 1, PathDepth(n.Path))
	}
}
