package textdiff

import "strings"

// TruncationMarker separates the kept head and tail of a truncated snippet.
const TruncationMarker = "\n\n[... content truncated ...]\n\n"

const headShare = 0.6

// Snippet bounds text to limit runes, keeping roughly the first 60% and the
// last 40% of the budget around TruncationMarker. A truncated snippet is
// exactly limit runes long, so truncating it again returns it unchanged.
func Snippet(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	marker := []rune(TruncationMarker)
	keep := limit - len(marker)
	if keep <= 1 {
		return strings.TrimSpace(string(runes[:limit]))
	}
	head := int(float64(keep) * headShare)
	tail := keep - head

	var b strings.Builder
	b.Grow(limit * 4)
	b.WriteString(string(runes[:head]))
	b.WriteString(TruncationMarker)
	b.WriteString(string(runes[len(runes)-tail:]))
	return b.String()
}
