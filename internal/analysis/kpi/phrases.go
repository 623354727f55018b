package kpi

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CriticalPhrases applies the built-in vocabulary.
func CriticalPhrases(prev, cur string) []string {
	return DefaultRules().CriticalPhrases(prev, cur)
}

// CriticalPhrases returns the vocabulary phrases present in cur but absent
// from prev, in vocabulary order and title-cased for display. Matching is a
// case-insensitive substring test.
func (rs *RuleSet) CriticalPhrases(prev, cur string) []string {
	vocab := rs.CriticalPhraseVocabulary()
	if len(vocab) == 0 {
		return nil
	}

	// ahocorasick matchers keep per-match state; never share one across goroutines.
	m := ahocorasick.NewStringMatcher(vocab)
	inCur := hits(m, cur, len(vocab))
	inPrev := hits(m, prev, len(vocab))

	title := cases.Title(language.Und)
	var out []string
	for i, phrase := range vocab {
		if inCur[i] && !inPrev[i] {
			out = append(out, title.String(phrase))
		}
	}
	return out
}

// CriticalPhraseVocabulary returns the lower-cased vocabulary.
func (rs *RuleSet) CriticalPhraseVocabulary() []string {
	vocab := make([]string, 0, len(rs.Phrases))
	for _, p := range rs.Phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			vocab = append(vocab, p)
		}
	}
	return vocab
}

func hits(m *ahocorasick.Matcher, text string, n int) []bool {
	found := make([]bool, n)
	for _, i := range m.Match([]byte(strings.ToLower(text))) {
		found[i] = true
	}
	return found
}
