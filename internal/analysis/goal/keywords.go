// Package goal relates the monitoring goal to what changed on the page.
package goal

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// word matches Unicode words of three or more characters.
var word = regexp2.MustCompile(`\b\w{3,}\b`, regexp2.None)

// Keywords returns every word of at least three characters in the goal,
// lower-cased, in order, duplicates included.
func Keywords(goal string) []string {
	var out []string
	m, err := word.FindStringMatch(strings.ToLower(goal))
	for err == nil && m != nil {
		out = append(out, m.String())
		m, err = word.FindNextMatch(m)
	}
	return out
}

// CountHits counts the keywords that occur anywhere in text or the insight
// strings. Each listed keyword contributes at most one hit, so repetitions
// inside the text never push the count past len(keywords).
func CountHits(keywords []string, text string, insights []string) int {
	haystack := strings.ToLower(text + " " + strings.Join(insights, " "))
	hits := 0
	for _, kw := range keywords {
		if kw != "" && strings.Contains(haystack, strings.ToLower(kw)) {
			hits++
		}
	}
	return hits
}

// WatchHits counts caller-supplied watch keywords that appear in the goal.
func WatchHits(watch []string, goal string) int {
	lower := strings.ToLower(goal)
	hits := 0
	for _, kw := range watch {
		if kw = strings.ToLower(kw); kw != "" && strings.Contains(lower, kw) {
			hits++
		}
	}
	return hits
}

// Regulated reports whether the goal is about regulatory, trial, safety or
// clinical matters, which amplifies the importance score.
func Regulated(goal string) bool {
	lower := strings.ToLower(goal)
	for _, term := range []string{"regulatory", "trial", "safety", "clinical"} {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
