package thread

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScoreExactValues(t *testing.T) {
	cases := []struct {
		rank, total, downvotes int
		want                   int
	}{
		{0, 3, 0, 1000},
		{1, 3, 0, 666},
		{2, 3, 0, 333},
		{0, 1, 0, 1000},
		{0, 10, 5, 500},  // base 1000, 100 per downvote
		{0, 10, 10, 0},   // fully penalized
		{0, 10, 20, 0},   // clamped, never negative
		{5, 10, 0, 500},
		{9, 10, 0, 100},
		{0, 0, 0, 0}, // degenerate total
	}
	for _, c := range cases {
		require.Equal(t, c.want, Score(c.rank, c.total, c.downvotes),
			"rank=%d total=%d downvotes=%d", c.rank, c.total, c.downvotes)
	}
}

func TestScoreBounds(t *testing.T) {
	for rank := 0; rank < 25; rank++ {
		for dv := 0; dv < 15; dv++ {
			s := Score(rank, 20, dv)
			require.GreaterOrEqual(t, s, 0)
			require.LessOrEqual(t, s, MaxScore)
		}
	}
}

func TestScoreRankMonotonicity(t *testing.T) {
	for dv := 0; dv < 5; dv++ {
		prev := MaxScore + 1
		for rank := 0; rank < 20; rank++ {
			s := Score(rank, 20, dv)
			require.LessOrEqual(t, s, prev, "score must not rise with rank (dv=%d)", dv)
			prev = s
		}
	}
}

func TestScoreDownvotePenaltyMonotonicity(t *testing.T) {
	for rank := 0; rank < 20; rank++ {
		prev := MaxScore + 1
		for dv := 0; dv < 12; dv++ {
			s := Score(rank, 20, dv)
			require.LessOrEqual(t, s, prev, "score must not rise with downvotes (rank=%d)", rank)
			prev = s
		}
	}
}

func TestPathHelpers(t *testing.T) {
	require.Equal(t, "3", TopLevelPath(3))
	require.Equal(t, "2.4.1", ChildPath("2.4", 1))
	require.Equal(t, 0, PathDepth(""))
	require.Equal(t, 1, PathDepth("7"))
	require.Equal(t, 3, PathDepth("1.2.3"))
}
