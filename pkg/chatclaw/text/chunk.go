package text

import "strings"

const (
	// DefaultChunkSize stays under Discord's 2000 character message
	// cap with headroom for reply decoration.
	DefaultChunkSize = 1900

	// noContent is the single chunk produced for empty input, so the
	// bot always has something to send.
	noContent = "(no content)"
)

// Chunk splits text into pieces of at most maxLen characters, breaking
// on line boundaries where possible. Lines are accumulated into a
// buffer until adding the next one would overflow; the buffer is then
// flushed as a chunk (whitespace-only buffers are dropped) and the
// line starts a new buffer. A single line longer than maxLen is
// hard-split into maxLen-sized pieces with no regard for word
// boundaries.
//
// Empty or whitespace-only input yields one "(no content)" chunk; the
// result always contains at least one chunk.
func Chunk(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultChunkSize
	}
	if strings.TrimSpace(text) == "" {
		return []string{noContent}
	}

	var chunks []string
	var buf string

	flush := func() {
		if strings.TrimSpace(buf) != "" {
			chunks = append(chunks, buf)
		}
		buf = ""
	}

	for _, line := range strings.Split(text, "\n") {
		if len(line) > maxLen {
			flush()
			for len(line) > maxLen {
				chunks = append(chunks, line[:maxLen])
				line = line[maxLen:]
			}
			buf = line
			continue
		}
		switch {
		case buf == "":
			buf = line
		case len(buf)+1+len(line) <= maxLen:
			buf += "\n" + line
		default:
			flush()
			buf = line
		}
	}
	flush()

	if len(chunks) == 0 {
		chunks = []string{noContent}
	}
	return chunks
}
