package thread

import (
	"math"
	"strconv"
	"strings"
)

const (
	// MaxScore is the score of the best-ranked, un-downvoted comment.
	MaxScore = 1000
	// MaxDownvotes is the downvote count at which a comment's score
	// reaches zero regardless of rank.
	MaxDownvotes = 10

	// TargetPath and TargetScore are the sentinel labels given to the
	// focal node of a subtree/children selection. The focal node is
	// always presented as the root of its own payload; this is a
	// presentation convention the backreference map depends on.
	TargetPath  = "1"
	TargetScore = MaxScore
)

// TopLevelPath returns the path of a top-level comment from its 1-based
// ordinal across all top-level comments in ascending rank order.
func TopLevelPath(ordinal int) string {
	return strconv.Itoa(ordinal)
}

// ChildPath appends a 1-based sibling ordinal to the parent's path.
func ChildPath(parentPath string, ordinal int) string {
	return parentPath + "." + strconv.Itoa(ordinal)
}

// PathDepth counts dot-separated segments. Zero for an empty path.
func PathDepth(path string) int {
	if path == "" {
		return 0
	}
	return strings.Count(path, ".") + 1
}

// Score computes the importance score for a comment. rank is the
// zero-based render position, total the size of the full enriched set at
// scoring time. The arithmetic is a fixed contract: the base score falls
// linearly with rank, each downvote costs a tenth of the base, and the
// result is floored and clamped to [0, MaxScore].
func Score(rank, total, downvotes int) int {
	if total <= 0 {
		return 0
	}
	base := math.Floor(MaxScore - float64(rank)*MaxScore/float64(total))
	penalty := base / MaxDownvotes * float64(downvotes)
	s := base - penalty
	if s < 0 {
		s = 0
	}
	return int(math.Floor(s))
}
