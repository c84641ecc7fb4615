// Package payload renders enriched comment selections into the
// line-oriented text an LLM consumes, and rewrites path references in
// model output back into clickable comment links.
package payload

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"threadlens/internal/thread"
)

// Format renders each node as exactly one line, blank-line separated:
//
//	[<path>] (score: <score>) <replies: <n>> {downvotes: <n>} <author>: <text>
//
// Node text is expected to have hyperlink markup already stripped (see
// StripLinks); Format collapses any remaining newlines so the one line
// per node contract holds.
func Format(nodes []*thread.EnrichedNode) string {
	lines := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		lines = append(lines, FormatLine(n))
	}
	return strings.Join(lines, "\n\n")
}

func FormatLine(n *thread.EnrichedNode) string {
	text := strings.Join(strings.Fields(n.Text), " ")
	return fmt.Sprintf("[%s] (score: %d) <replies: %d> {downvotes: %d} %s: %s",
		n.Path, n.Score, n.ReplyCount, n.Downvotes, n.Author, text)
}

// Line is the parsed form of one formatted line.
type Line struct {
	Path      string
	Score     int
	Replies   int
	Downvotes int
	Author    string
	Text      string
}

var linePattern = regexp.MustCompile(`^\[(\d+(?:\.\d+)*)\] \(score: (\d+)\) <replies: (\d+)> \{downvotes: (\d+)\} ([^:]*): (.*)$`)

// ParseLine is the inverse of FormatLine, used to audit format symmetry.
func ParseLine(s string) (Line, error) {
	m := linePattern.FindStringSubmatch(s)
	if m == nil {
		return Line{}, fmt.Errorf("payload: malformed line %q", s)
	}
	score, _ := strconv.Atoi(m[2])
	replies, _ := strconv.Atoi(m[3])
	downvotes, _ := strconv.Atoi(m[4])
	return Line{
		Path:      m[1],
		Score:     score,
		Replies:   replies,
		Downvotes: downvotes,
		Author:    m[5],
		Text:      m[6],
	}, nil
}
