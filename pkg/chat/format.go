package chat

import "strings"

// sentence terminators and the trailing characters allowed to ride along
// with a chunk (closing quotes and brackets).
const (
	terminators = ".!?…"
	trailers    = "\"'”’)]*"
)

// SplitChunks breaks narrative text into sentence-like chunks for one-at-a-
// time reveal. Chunks are split on sentence terminators and newlines;
// closing quotes stay attached to their sentence and runs of terminators
// ("...", "?!") are kept together. Empty chunks are dropped.
func SplitChunks(text string) []string {
	var chunks []string
	var sb strings.Builder

	flush := func() {
		if c := strings.TrimSpace(sb.String()); c != "" {
			chunks = append(chunks, c)
		}
		sb.Reset()
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' {
			flush()
			continue
		}
		sb.WriteRune(r)
		if !strings.ContainsRune(terminators, r) {
			continue
		}
		// Absorb the rest of a terminator run and any trailing quotes.
		for i+1 < len(runes) && strings.ContainsRune(terminators+trailers, runes[i+1]) {
			i++
			sb.WriteRune(runes[i])
		}
		// Only split at a real boundary: end of text or whitespace next.
		if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t' {
			flush()
		}
	}
	flush()
	return chunks
}
