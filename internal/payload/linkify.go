package payload

import (
	"regexp"
	"strings"
)

var (
	// Matches either an already-converted comment link or a bare
	// bracketed dotted-integer token. RE2 has no lookarounds, so
	// idempotence comes from matching converted anchors first and
	// passing them through untouched.
	refPattern = regexp.MustCompile(`<a href="[^"]*"[^>]*>\[\d+(?:\.\d+)*\]</a>|\[(\d+(?:\.\d+)*)\]`)

	anchorPattern = regexp.MustCompile(`(?is)<a\s[^>]*>(.*?)</a>`)
)

// Linkify rewrites bracketed path tokens in generated text into comment
// links resolved through pathToID. Tokens with no matching path pass
// through verbatim; running Linkify on its own output is a no-op.
func Linkify(text string, pathToID map[string]string) string {
	if text == "" || len(pathToID) == 0 {
		return text
	}
	return refPattern.ReplaceAllStringFunc(text, func(m string) string {
		if strings.HasPrefix(m, "<a ") {
			return m
		}
		path := strings.Trim(m, "[]")
		id, ok := pathToID[path]
		if !ok {
			return m
		}
		return `<a href="#` + id + `" data-comment-id="` + id + `">[` + path + `]</a>`
	})
}

// StripLinks removes hyperlink markup from comment text, keeping the
// anchor's inner text. Applied to every node before formatting so raw
// markup never reaches the model.
func StripLinks(s string) string {
	if s == "" {
		return s
	}
	return anchorPattern.ReplaceAllString(s, "$1")
}
