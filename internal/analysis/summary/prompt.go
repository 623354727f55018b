// Package summary produces the natural-language explanation of a change,
// preferring an external summarizer and falling back to a deterministic
// local summary.
package summary

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/user/change-analysis-service/internal/analysis/importance"
	"github.com/user/change-analysis-service/internal/analysis/textdiff"
)

const (
	// SnippetLimit is the per-document rune budget inside a prompt.
	SnippetLimit = 3500
	// PromptCeiling bounds the whole user prompt in runes.
	PromptCeiling = 8000

	minSnippet = 200
)

// SystemPrompt instructs the model to answer with bare JSON.
const SystemPrompt = "You compare two versions of a monitored web page and explain what changed " +
	"with respect to a stated monitoring goal. Look for semantic, numeric, terminology and structural changes.\n\n" +
	"Answer with one JSON object only. Do not use markdown or code fences and do not add commentary."

// PromptInput carries what the model is told about a change.
type PromptInput struct {
	Goal      string
	Domain    string
	URL       string
	PrevText  string
	CurText   string
	Added     int
	Removed   int
	DiffLines int
	// VisualSimilarity is nil when no screenshots were compared.
	VisualSimilarity *float64
}

// BuildPrompt renders the user prompt. Both snippets start at SnippetLimit
// runes and shrink together until the prompt fits PromptCeiling or the
// snippets reach their floor.
func BuildPrompt(in PromptInput) string {
	limit := SnippetLimit
	for {
		p := render(in, textdiff.Snippet(in.PrevText, limit), textdiff.Snippet(in.CurText, limit))
		n := utf8.RuneCountInString(p)
		if n <= PromptCeiling || limit <= minSnippet {
			return p
		}
		limit = max(minSnippet, limit-(n-PromptCeiling)/2-1)
	}
}

func render(in PromptInput, prev, cur string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "MONITORING GOAL:\n%s\n\n", in.Goal)
	fmt.Fprintf(&b, "PAGE: %s\nDOMAIN: %s\n\n", in.URL, in.Domain)
	fmt.Fprintf(&b, "DIFF STATS: %d words added, %d words removed, %d unified diff lines\n\n",
		in.Added, in.Removed, in.DiffLines)

	b.WriteString("PREVIOUS VERSION:\n<<<\n")
	b.WriteString(prev)
	b.WriteString("\n>>>\n\nCURRENT VERSION:\n<<<\n")
	b.WriteString(cur)
	b.WriteString("\n>>>\n")

	if in.VisualSimilarity != nil {
		v := *in.VisualSimilarity
		fmt.Fprintf(&b, "\nVISUAL CONTEXT:\nScreenshot similarity %.2f (%s visual change). "+
			"Treat it as a secondary signal: layout or presentation changes complement the text.\n",
			v, importance.VisualLevel(v))
	}

	b.WriteString(`
TASK:
List the changes that matter for the goal: additions, removals, replacements, numeric
movements (phase, enrollment, sites, SAE %, R&D spend, protocol version) and new
regulatory or safety phrases such as fast track, breakthrough, discontinued or terminated.

Respond with this JSON object:
{
  "summary_change": "before/after summary of the most significant changes, under 300 characters",
  "key_insights": ["3 to 8 concrete observations, each written as previous → current"],
  "goal_alignment": 0.0,
  "reasoning": "one or two sentences on why the change matters for the goal"
}
goal_alignment is a number from 0.0 (unrelated to the goal) to 1.0 (exactly what the goal asks about).
`)
	return b.String()
}
