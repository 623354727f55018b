// Package textdiff measures edit volume and closeness between two texts.
package textdiff

import (
	"math"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// unifiedContext is the number of context lines per hunk of a unified diff.
const unifiedContext = 3

// Result is the outcome of comparing two texts.
type Result struct {
	Added      int     // words in insert spans
	Removed    int     // words in delete spans
	DiffLines  int     // lines a unified diff of the two texts would print
	Similarity float64 // sequence ratio over words, 4 decimals
}

// Stats compares prev and cur word by word. Replaced words count toward
// neither Added nor Removed; they lower Similarity instead.
func Stats(prev, cur string) Result {
	a, b := strings.Fields(prev), strings.Fields(cur)
	m := difflib.NewMatcher(a, b)

	var res Result
	for _, op := range m.GetOpCodes() {
		switch op.Tag {
		case 'i':
			res.Added += op.J2 - op.J1
		case 'd':
			res.Removed += op.I2 - op.I1
		}
	}
	res.Similarity = round4(m.Ratio())
	res.DiffLines = UnifiedLineCount(prev, cur)
	return res
}

// UnifiedLineCount counts the lines of a unified diff between the line-split
// texts: two file headers, one "@@" line per hunk and every context, removed
// and added line. Equal texts produce no diff and therefore zero lines.
func UnifiedLineCount(prev, cur string) int {
	groups := difflib.NewMatcher(splitLines(prev), splitLines(cur)).GetGroupedOpCodes(unifiedContext)
	if len(groups) == 0 {
		return 0
	}
	n := 2
	for _, g := range groups {
		n++
		for _, op := range g {
			switch op.Tag {
			case 'e', 'd':
				n += op.I2 - op.I1
			case 'i':
				n += op.J2 - op.J1
			case 'r':
				n += (op.I2 - op.I1) + (op.J2 - op.J1)
			}
		}
	}
	return n
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
