package summarize

import "strings"

// systemPrompt is the fixed instruction preamble sent with every
// summarization payload. The payload format it describes must match
// payload.Format exactly.
const systemPrompt = `You summarize discussion threads from a link-aggregator site.

Each comment arrives on its own line:
[path] (score: n) <replies: n> {downvotes: n} author: text

The path encodes the reply hierarchy: [1.2.1] is a reply to [1.2].
Score ranges 0-1000 and reflects community-assigned importance; weight
higher-scored comments more. Comments with many replies anchor active
subdiscussions.

Write a concise summary of the main points and notable disagreements.
When you reference a specific comment, cite its path in brackets, for
example [1.2], so the reference can be linked back to the comment.`

// BuildPrompt composes the system prompt with an optional output
// language directive.
func BuildPrompt(language string) string {
	language = strings.TrimSpace(language)
	if language == "" {
		return systemPrompt
	}
	return systemPrompt + "\n\nRespond in " + language + "."
}
