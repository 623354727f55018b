package usecase_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/change-analysis-service/internal/adapter/goquery_extractor"
	"github.com/user/change-analysis-service/internal/adapter/image_decoder"
	"github.com/user/change-analysis-service/internal/analysis/importance"
	"github.com/user/change-analysis-service/internal/analysis/summary"
	"github.com/user/change-analysis-service/internal/analysis/visual"
	"github.com/user/change-analysis-service/internal/entity"
	"github.com/user/change-analysis-service/internal/usecase"
)

const (
	prevDOM = "<html><body><p>Clinical trial: Phase 1. Status: Pending Review</p></body></html>"
	curDOM  = "<html><body><p>Clinical trial: Phase 2. Status: APPROVED</p></body></html>"
)

// mapDecoder resolves ImageRef values to fixed images.
type mapDecoder map[string]image.Image

func (d mapDecoder) Decode(ref entity.ImageRef) (image.Image, bool) {
	if img, ok := d[ref.Value]; ok {
		return img, true
	}
	return visual.Placeholder(), false
}

type stubSummarizer struct {
	payload *entity.SummaryPayload
	err     error
	got     entity.SummaryInput
}

func (s *stubSummarizer) Summarize(_ context.Context, in entity.SummaryInput) (*entity.SummaryPayload, error) {
	s.got = in
	return s.payload, s.err
}

func solid(c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func statusChange() entity.ChangeInput {
	return entity.ChangeInput{
		PrevDOM:  prevDOM,
		CurDOM:   curDOM,
		Goal:     "Monitor clinical trial status changes",
		Domain:   "regulatory",
		URL:      "https://example.com/trial",
		Keywords: []string{"clinical"},
	}
}

func newAnalyzer(s *stubSummarizer, cfg usecase.EngineConfig) usecase.ChangeAnalyzer {
	decoder := mapDecoder{"same": solid(color.Gray{Y: 90}), "white": solid(color.White)}
	if s == nil {
		return usecase.NewChangeAnalyzer(goquery_extractor.NewGoqueryExtractor(), decoder, nil, cfg)
	}
	return usecase.NewChangeAnalyzer(goquery_extractor.NewGoqueryExtractor(), decoder, s, cfg)
}

func TestAnalyze_StatusChange(t *testing.T) {
	report, err := newAnalyzer(nil, usecase.DefaultEngineConfig()).Analyze(context.Background(), statusChange())
	require.NoError(t, err)

	res := report.Result
	assert.True(t, res.HasChange)
	assert.Equal(t, 0, res.TextAdded)
	assert.Equal(t, 0, res.TextRemoved)
	assert.Equal(t, 0.7692, res.Similarity)
	assert.Equal(t, 5, res.TotalDiffLines)
	assert.Equal(t, 5.48, res.ImportScore)
	assert.Equal(t, entity.ImportanceMedium, res.Importance)
	assert.Equal(t, entity.AlertMedium, res.AlertCriteria)
	assert.Equal(t, "Key changes: Phase 1 → 2. 0 tokens added, 0 removed; similarity=61.54%.", res.SummaryChange)

	assert.Equal(t, 0.6154, report.TextSimilarity)
	assert.Equal(t, 1.0, report.VisualSimilarity)
	assert.Equal(t, 0.5, report.NumericDelta)
	assert.Equal(t, 3, report.KeywordHits)
	assert.Empty(t, report.CriticalPhrases)
	assert.Equal(t, []string{"Phase 1 → 2"}, report.KeyInsights)
	assert.Equal(t, entity.KpiMap{"Phase": 1}, report.PrevKPIs)
	assert.Equal(t, entity.KpiMap{"Phase": 2}, report.CurKPIs)
	assert.Equal(t, summary.DefaultGoalAlignment, report.GoalAlignment)
	assert.Equal(t, summary.SourceLocal, report.SummarySource)
	assert.False(t, report.LLMUsed)
	assert.Equal(t, "goal", report.Strategy)
	assert.Contains(t, report.Reasoning, "keyword hits=3")
}

func TestAnalyze_IdenticalPages(t *testing.T) {
	in := statusChange()
	in.CurDOM = in.PrevDOM
	in.PrevImage = entity.ParseImageRef("same", false)
	in.CurImage = entity.ParseImageRef("same", false)

	report, err := newAnalyzer(nil, usecase.DefaultEngineConfig()).Analyze(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, report.Result.HasChange)
	assert.Equal(t, 1.0, report.Result.Similarity)
	assert.Equal(t, 0, report.Result.TotalDiffLines)
	assert.Equal(t, []string{summary.NoChangeInsight}, report.KeyInsights)
}

func TestAnalyze_VisualOnlyChangeIsDetected(t *testing.T) {
	in := statusChange()
	in.CurDOM = in.PrevDOM
	in.PrevImage = entity.ParseImageRef("same", false)
	in.CurImage = entity.ParseImageRef("white", false)

	report, err := newAnalyzer(nil, usecase.DefaultEngineConfig()).Analyze(context.Background(), in)
	require.NoError(t, err)
	assert.Less(t, report.VisualSimilarity, 0.98)
	assert.True(t, report.Result.HasChange)
}

func TestAnalyze_OneSidedScreenshotIsNotAChange(t *testing.T) {
	grad := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			grad.SetGray(x, y, color.Gray{Y: uint8(x * 4)})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, grad))

	in := statusChange()
	in.PrevDOM = "<p>same text</p>"
	in.CurDOM = "<p>same text</p>"
	in.PrevImage = entity.NoImage
	in.CurImage = entity.ImageFromBytes(buf.Bytes())

	analyzer := usecase.NewChangeAnalyzer(goquery_extractor.NewGoqueryExtractor(), image_decoder.NewStdDecoder(1<<20), nil, usecase.DefaultEngineConfig())
	report, err := analyzer.Analyze(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 1.0, report.VisualSimilarity)
	assert.False(t, report.Result.HasChange)
	assert.Equal(t, 1.0, report.Result.Similarity)
	assert.Contains(t, report.Result.SummaryChange, "similarity=100.00%")
}

func TestAnalyze_Deterministic(t *testing.T) {
	a := newAnalyzer(nil, usecase.DefaultEngineConfig())
	first, err := a.Analyze(context.Background(), statusChange())
	require.NoError(t, err)
	second, err := a.Analyze(context.Background(), statusChange())
	require.NoError(t, err)

	b1, err := json.Marshal(first.Result)
	require.NoError(t, err)
	b2, err := json.Marshal(second.Result)
	require.NoError(t, err)
	assert.Equal(t, string(b1), string(b2))
}

func TestAnalyze_InvalidInput(t *testing.T) {
	in := statusChange()
	in.Goal = "  "
	in.PrevDOM = ""

	_, err := newAnalyzer(nil, usecase.DefaultEngineConfig()).Analyze(context.Background(), in)
	require.ErrorIs(t, err, usecase.ErrInvalidInput)
	assert.Contains(t, err.Error(), "prev_dom, goal")
}

func TestAnalyze_VisualStrategy(t *testing.T) {
	cfg := usecase.DefaultEngineConfig()
	cfg.Strategy = importance.StrategyVisual

	report, err := newAnalyzer(nil, cfg).Analyze(context.Background(), statusChange())
	require.NoError(t, err)
	// (0.3846·0.6 + 0.05 watch hit) · 1.2 regulatory = 0.3369
	assert.Equal(t, 3.37, report.Result.ImportScore)
	assert.Equal(t, entity.ImportanceLow, report.Result.Importance)
	assert.Equal(t, "visual", report.Strategy)
}

func TestAnalyze_VisualBlend(t *testing.T) {
	cfg := usecase.DefaultEngineConfig()
	cfg.VisualBlend = true

	t.Run("needs both screenshots", func(t *testing.T) {
		report, err := newAnalyzer(nil, cfg).Analyze(context.Background(), statusChange())
		require.NoError(t, err)
		assert.False(t, report.VisualBlend)
		assert.Equal(t, 5.48, report.Result.ImportScore)
	})

	t.Run("recombines similarities", func(t *testing.T) {
		in := statusChange()
		in.PrevImage = entity.ParseImageRef("same", false)
		in.CurImage = entity.ParseImageRef("same", false)

		report, err := newAnalyzer(nil, cfg).Analyze(context.Background(), in)
		require.NoError(t, err)
		assert.True(t, report.VisualBlend)
		// 1 - (0.7·0.6154 + 0.3·1) = 0.26922
		assert.Equal(t, 2.69, report.Result.ImportScore)
		assert.Equal(t, entity.ImportanceLow, report.Result.Importance)
		assert.Equal(t, entity.AlertLow, report.Result.AlertCriteria)
		assert.Equal(t, "[visual] similarity=1.00 (minor) — Key changes: Phase 1 → 2. 0 tokens added, 0 removed; similarity=61.54%.", report.Result.SummaryChange)
	})
}

func TestAnalyze_ExternalSummary(t *testing.T) {
	s := &stubSummarizer{payload: &entity.SummaryPayload{
		SummaryChange: "Trial moved from Phase 1 to Phase 2 and was approved.",
		KeyInsights:   []string{"Phase 1 → 2", "Status Pending Review → APPROVED"},
		GoalAlignment: 0.9,
		Reasoning:     "status progression is the monitored signal",
	}}

	report, err := newAnalyzer(s, usecase.DefaultEngineConfig()).Analyze(context.Background(), statusChange())
	require.NoError(t, err)

	assert.True(t, report.LLMUsed)
	assert.Equal(t, summary.SourceExternal, report.SummarySource)
	assert.Equal(t, "Trial moved from Phase 1 to Phase 2 and was approved.", report.Result.SummaryChange)
	assert.Equal(t, 0.9, report.GoalAlignment)
	assert.Equal(t, "status progression is the monitored signal", report.Reasoning)
	// Counts stay local and the score is recomputed with the external alignment.
	assert.Equal(t, 0, report.Result.TextAdded)
	assert.Equal(t, 5, report.Result.TotalDiffLines)
	assert.Equal(t, 5.74, report.Result.ImportScore)
	assert.Equal(t, entity.ImportanceMedium, report.Result.Importance)

	assert.Contains(t, s.got.Prompt, "Monitor clinical trial status changes")
	assert.NotContains(t, s.got.Prompt, "VISUAL CONTEXT")
	assert.Nil(t, s.got.PrevImage)
}

func TestAnalyze_ExternalImages(t *testing.T) {
	cfg := usecase.DefaultEngineConfig()
	cfg.IncludeImages = true
	s := &stubSummarizer{err: errors.New("unavailable")}

	in := statusChange()
	in.PrevImage = entity.ParseImageRef("same", false)
	in.CurImage = entity.ParseImageRef("white", false)

	report, err := newAnalyzer(s, cfg).Analyze(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, report.LLMUsed)
	assert.Equal(t, summary.SourceLocal, report.SummarySource)
	assert.NotEmpty(t, s.got.PrevImage)
	assert.NotEmpty(t, s.got.CurImage)
	assert.Contains(t, s.got.Prompt, "VISUAL CONTEXT")
}

func TestAnalyze_CriticalPhrase(t *testing.T) {
	in := statusChange()
	in.PrevDOM = "<p>The program continues enrolling.</p>"
	in.CurDOM = "<p>The program continues enrolling. FDA granted Fast Track designation.</p>"

	report, err := newAnalyzer(nil, usecase.DefaultEngineConfig()).Analyze(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fast Track"}, report.CriticalPhrases)
	assert.Contains(t, report.KeyInsights, "Fast Track")
	assert.Contains(t, report.Result.SummaryChange, "Critical updates: Fast Track")
	assert.Equal(t, 5, report.Result.TextAdded)
}

func TestAnalyze_SummarizerTimeoutFallsBack(t *testing.T) {
	cfg := usecase.DefaultEngineConfig()
	cfg.SummaryTimeout = 10 * time.Millisecond

	report, err := usecase.NewChangeAnalyzer(goquery_extractor.NewGoqueryExtractor(), mapDecoder{}, slowSummarizer{}, cfg).
		Analyze(context.Background(), statusChange())
	require.NoError(t, err)
	assert.Equal(t, summary.SourceLocal, report.SummarySource)
	assert.Equal(t, 5.48, report.Result.ImportScore)
}

func TestAnalyze_NonPositiveSummaryTimeoutStillBounded(t *testing.T) {
	cfg := usecase.DefaultEngineConfig()
	cfg.SummaryTimeout = 0
	s := &deadlineSummarizer{}

	_, err := usecase.NewChangeAnalyzer(goquery_extractor.NewGoqueryExtractor(), mapDecoder{}, s, cfg).
		Analyze(context.Background(), statusChange())
	require.NoError(t, err)
	require.True(t, s.hasDeadline)
	assert.LessOrEqual(t, s.remaining, 20*time.Second)
	assert.Greater(t, s.remaining, 10*time.Second)
}

type deadlineSummarizer struct {
	hasDeadline bool
	remaining   time.Duration
}

func (d *deadlineSummarizer) Summarize(ctx context.Context, _ entity.SummaryInput) (*entity.SummaryPayload, error) {
	var deadline time.Time
	deadline, d.hasDeadline = ctx.Deadline()
	d.remaining = time.Until(deadline)
	return nil, errors.New("unavailable")
}

type slowSummarizer struct{}

func (slowSummarizer) Summarize(ctx context.Context, _ entity.SummaryInput) (*entity.SummaryPayload, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
