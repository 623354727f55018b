package summary_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/change-analysis-service/internal/analysis/summary"
	"github.com/user/change-analysis-service/internal/analysis/textdiff"
	"github.com/user/change-analysis-service/internal/entity"
)

func TestCoerce(t *testing.T) {
	valid := `{"summary_change":"Phase 2 → 3","key_insights":["Phase 2 → 3"],"goal_alignment":0.9,"reasoning":"advance"}`

	tests := []struct {
		name string
		raw  string
	}{
		{name: "bare", raw: valid},
		{name: "code fence", raw: "```json\n" + valid + "\n```"},
		{name: "leading prose", raw: "Here is the analysis you asked for:\n" + valid + "\nThanks!"},
		{name: "extra fields", raw: `{"summary_change":"Phase 2 → 3","similarity":0.4,"key_insights":["Phase 2 → 3"],"goal_alignment":0.9,"reasoning":"advance","import_score":9}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := summary.Coerce(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, "Phase 2 → 3", p.SummaryChange)
			assert.Equal(t, []string{"Phase 2 → 3"}, p.KeyInsights)
			assert.Equal(t, 0.9, p.GoalAlignment)
		})
	}
}

func TestCoerce_BracesInsideStrings(t *testing.T) {
	raw := `noise {"summary_change":"literal } and { braces \" quoted","key_insights":[],"goal_alignment":0} trailing {"x":1}`
	p, err := summary.Coerce(raw)
	require.NoError(t, err)
	assert.Equal(t, `literal } and { braces " quoted`, p.SummaryChange)
	assert.Empty(t, p.KeyInsights)
}

func TestCoerce_Rejects(t *testing.T) {
	for name, raw := range map[string]string{
		"no object":           "I could not determine the change.",
		"unbalanced":          `{"summary_change":"x"`,
		"missing summary":     `{"key_insights":[],"goal_alignment":0.5}`,
		"blank summary":       `{"summary_change":"  ","key_insights":[],"goal_alignment":0.5}`,
		"missing alignment":   `{"summary_change":"x","key_insights":[]}`,
		"alignment too large": `{"summary_change":"x","key_insights":[],"goal_alignment":1.5}`,
		"alignment as string": `{"summary_change":"x","key_insights":[],"goal_alignment":"high"}`,
		"insights not a list": `{"summary_change":"x","key_insights":"Phase 3","goal_alignment":0.5}`,
		"null insights":       `{"summary_change":"x","key_insights":null,"goal_alignment":0.5}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := summary.Coerce(raw)
			assert.ErrorIs(t, err, summary.ErrMalformed)
		})
	}
}

func TestFallback(t *testing.T) {
	out := summary.Fallback(summary.Local{
		Added:           12,
		Removed:         3,
		Similarity:      0.91,
		NumericInsights: []string{"Phase 2 → 3", "Enrollment 450 → 800"},
		CriticalPhrases: []string{"Fast Track"},
	})
	assert.Equal(t, "Key changes: Phase 2 → 3, Enrollment 450 → 800. Critical updates: Fast Track. 12 tokens added, 3 removed; similarity=91.00%.", out.Summary)
	assert.Equal(t, []string{"Phase 2 → 3", "Enrollment 450 → 800", "Fast Track"}, out.KeyInsights)
	assert.Equal(t, summary.DefaultGoalAlignment, out.GoalAlignment)
	assert.False(t, out.UsedExternal)
	assert.Equal(t, summary.SourceLocal, out.Source)
}

func TestFallback_NoSignals(t *testing.T) {
	out := summary.Fallback(summary.Local{Similarity: 1})
	assert.Equal(t, "0 tokens added, 0 removed; similarity=100.00%.", out.Summary)
	assert.Equal(t, []string{summary.NoChangeInsight}, out.KeyInsights)
}

func TestKeyInsights_DedupAndCap(t *testing.T) {
	numeric := []string{"a", "b", "c", "d", "e", "f"}
	critical := []string{"b", "g", "h", "i", "j"}
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f", "g", "h"}, summary.KeyInsights(numeric, critical))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héllo", summary.Truncate("héllo wörld", 5))
	assert.Equal(t, "short", summary.Truncate("short", 500))
	assert.Equal(t, 500, utf8.RuneCountInString(summary.Truncate(strings.Repeat("ü", 900), 500)))
}

func TestBuildPrompt(t *testing.T) {
	vs := 0.72
	p := summary.BuildPrompt(summary.PromptInput{
		Goal:             "Monitor clinical trial status changes",
		Domain:           "regulatory",
		URL:              "https://example.com/trial",
		PrevText:         "Clinical trial: Phase 1.",
		CurText:          "Clinical trial: Phase 2.",
		Added:            1,
		Removed:          2,
		DiffLines:        5,
		VisualSimilarity: &vs,
	})
	assert.Contains(t, p, "Monitor clinical trial status changes")
	assert.Contains(t, p, "https://example.com/trial")
	assert.Contains(t, p, "1 words added, 2 words removed, 5 unified diff lines")
	assert.Contains(t, p, "Screenshot similarity 0.72 (moderate visual change)")
	assert.Contains(t, p, `"goal_alignment"`)

	noVisual := summary.BuildPrompt(summary.PromptInput{Goal: "g", PrevText: "a", CurText: "b"})
	assert.NotContains(t, noVisual, "VISUAL CONTEXT")
}

func TestBuildPrompt_StaysUnderCeiling(t *testing.T) {
	long := strings.Repeat("word ", 5000)
	p := summary.BuildPrompt(summary.PromptInput{Goal: "g", PrevText: long, CurText: long})
	assert.LessOrEqual(t, utf8.RuneCountInString(p), summary.PromptCeiling)
	assert.Contains(t, p, textdiff.TruncationMarker)
}

type stubSummarizer struct {
	payload *entity.SummaryPayload
	err     error
	delay   time.Duration
}

func (s *stubSummarizer) Summarize(_ context.Context, _ entity.SummaryInput) (*entity.SummaryPayload, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.payload, s.err
}

func TestMerge(t *testing.T) {
	local := summary.Local{Added: 1, Removed: 0, Similarity: 0.8, NumericInsights: []string{"Sites 10 → 12"}}

	t.Run("disabled", func(t *testing.T) {
		out := summary.Merge(context.Background(), nil, entity.SummaryInput{}, local, time.Second)
		assert.Equal(t, summary.Fallback(local), out)
	})

	t.Run("external accepted", func(t *testing.T) {
		s := &stubSummarizer{payload: &entity.SummaryPayload{
			SummaryChange: "Previous: 10 sites. Current: 12 sites.",
			KeyInsights:   []string{"Sites 10 → 12"},
			GoalAlignment: 0.8,
			Reasoning:     "site expansion",
		}}
		out := summary.Merge(context.Background(), s, entity.SummaryInput{Prompt: "p"}, local, time.Second)
		assert.True(t, out.UsedExternal)
		assert.Equal(t, summary.SourceExternal, out.Source)
		assert.Equal(t, "Previous: 10 sites. Current: 12 sites.", out.Summary)
		assert.Equal(t, 0.8, out.GoalAlignment)
		assert.Equal(t, "site expansion", out.Reasoning)
		assert.NoError(t, out.FallbackReason)
	})

	t.Run("empty external insights use local ones", func(t *testing.T) {
		s := &stubSummarizer{payload: &entity.SummaryPayload{SummaryChange: "x", GoalAlignment: 0.1}}
		out := summary.Merge(context.Background(), s, entity.SummaryInput{}, local, time.Second)
		assert.Equal(t, []string{"Sites 10 → 12"}, out.KeyInsights)
	})

	t.Run("transport error", func(t *testing.T) {
		boom := errors.New("throttled")
		out := summary.Merge(context.Background(), &stubSummarizer{err: boom}, entity.SummaryInput{}, local, time.Second)
		assert.False(t, out.UsedExternal)
		assert.Equal(t, summary.Fallback(local).Summary, out.Summary)
		assert.ErrorIs(t, out.FallbackReason, boom)
	})

	t.Run("invalid payload", func(t *testing.T) {
		s := &stubSummarizer{payload: &entity.SummaryPayload{SummaryChange: "x", GoalAlignment: 3}}
		out := summary.Merge(context.Background(), s, entity.SummaryInput{}, local, time.Second)
		assert.False(t, out.UsedExternal)
		assert.ErrorIs(t, out.FallbackReason, summary.ErrMalformed)
	})

	t.Run("nil payload", func(t *testing.T) {
		out := summary.Merge(context.Background(), &stubSummarizer{}, entity.SummaryInput{}, local, time.Second)
		assert.False(t, out.UsedExternal)
		assert.ErrorIs(t, out.FallbackReason, summary.ErrMalformed)
	})

	t.Run("timeout", func(t *testing.T) {
		s := &stubSummarizer{delay: 200 * time.Millisecond, payload: &entity.SummaryPayload{SummaryChange: "late", GoalAlignment: 1}}
		start := time.Now()
		out := summary.Merge(context.Background(), s, entity.SummaryInput{}, local, 20*time.Millisecond)
		assert.Less(t, time.Since(start), 150*time.Millisecond)
		assert.False(t, out.UsedExternal)
		assert.ErrorIs(t, out.FallbackReason, context.DeadlineExceeded)
	})
}
