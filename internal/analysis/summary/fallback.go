package summary

import (
	"fmt"
	"strings"
)

const (
	// MaxSummaryRunes caps every summary.
	MaxSummaryRunes = 500
	// DefaultGoalAlignment is used when no external judgement is available.
	DefaultGoalAlignment = 0.5
	// NoChangeInsight stands in for an empty insight list.
	NoChangeInsight = "Minor or no changes detected"

	maxKeyInsights     = 8
	maxSummaryNumeric  = 4
	maxSummaryCritical = 3
)

// Summary sources reported in Outcome.Source.
const (
	SourceLocal    = "local"
	SourceExternal = "external"
)

// Local holds the deterministic signals a summary can always be built from.
type Local struct {
	Added           int
	Removed         int
	Similarity      float64
	NumericInsights []string
	CriticalPhrases []string
}

// Outcome is the merged summary.
type Outcome struct {
	Summary       string
	KeyInsights   []string
	GoalAlignment float64
	Reasoning     string
	UsedExternal  bool
	Source        string
	// FallbackReason is set when an external attempt was made and rejected.
	FallbackReason error
}

// Fallback builds the local summary, for example
// "Key changes: Phase 2 → 3. Critical updates: Fast Track. 12 tokens added, 3 removed; similarity=91.00%."
func Fallback(l Local) Outcome {
	var parts []string
	if len(l.NumericInsights) > 0 {
		parts = append(parts, "Key changes: "+strings.Join(head(l.NumericInsights, maxSummaryNumeric), ", "))
	}
	if len(l.CriticalPhrases) > 0 {
		parts = append(parts, "Critical updates: "+strings.Join(head(l.CriticalPhrases, maxSummaryCritical), ", "))
	}
	parts = append(parts, fmt.Sprintf("%d tokens added, %d removed; similarity=%.2f%%", l.Added, l.Removed, l.Similarity*100))

	return Outcome{
		Summary:       Truncate(strings.Join(parts, ". ")+".", MaxSummaryRunes),
		KeyInsights:   KeyInsights(l.NumericInsights, l.CriticalPhrases),
		GoalAlignment: DefaultGoalAlignment,
		Source:        SourceLocal,
	}
}

// KeyInsights concatenates numeric insights and critical phrases, removes
// duplicates and keeps at most eight.
func KeyInsights(numeric, critical []string) []string {
	seen := make(map[string]struct{}, len(numeric)+len(critical))
	var out []string
	for _, s := range append(append([]string(nil), numeric...), critical...) {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
		if len(out) == maxKeyInsights {
			break
		}
	}
	if len(out) == 0 {
		return []string{NoChangeInsight}
	}
	return out
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
