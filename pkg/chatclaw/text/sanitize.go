// Package text implements the pure text transforms of the reply
// pipeline: stripping model reasoning markup from generated output and
// splitting long replies into Discord-sized chunks.
package text

import (
	"regexp"
	"strings"
)

// Reasoning markup emitted by some providers inline in the content.
// Tags are matched case-insensitively; blocks are removed first, then
// any stray unpaired tags left behind by malformed output.
var (
	thinkBlock     = regexp.MustCompile(`(?is)<think>.*?</think>`)
	thinkStray     = regexp.MustCompile(`(?i)</?think>`)
	reasoningBlock = regexp.MustCompile(`(?is)<reasoning>.*?</reasoning>`)
	reasoningStray = regexp.MustCompile(`(?i)</?reasoning>`)
	newlineRuns    = regexp.MustCompile(`\n{3,}`)
)

// Sanitize removes <think> and <reasoning> blocks (tags included) from
// generated text, drops stray unpaired tags, collapses runs of three or
// more newlines to two, and trims surrounding whitespace.
//
// Sanitize is total over any input, including unbalanced or nested
// tags, and idempotent: Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	// Removing a stray tag can splice the surrounding fragments into a
	// brand-new tag ("<th</think>ink>" becomes "<think>"), so strip
	// blocks and strays until the string stops changing. Each pass
	// only shortens the string, so the loop terminates.
	for {
		next := thinkBlock.ReplaceAllString(s, "")
		next = thinkStray.ReplaceAllString(next, "")
		next = reasoningBlock.ReplaceAllString(next, "")
		next = reasoningStray.ReplaceAllString(next, "")
		if next == s {
			break
		}
		s = next
	}
	s = newlineRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
