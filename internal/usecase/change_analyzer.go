package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/user/change-analysis-service/internal/analysis/goal"
	"github.com/user/change-analysis-service/internal/analysis/importance"
	"github.com/user/change-analysis-service/internal/analysis/kpi"
	"github.com/user/change-analysis-service/internal/analysis/summary"
	"github.com/user/change-analysis-service/internal/analysis/textdiff"
	"github.com/user/change-analysis-service/internal/analysis/visual"
	"github.com/user/change-analysis-service/internal/entity"
	"github.com/user/change-analysis-service/internal/repository"
	"github.com/user/change-analysis-service/pkg/metrics"
)

var ErrInvalidInput = errors.New("invalid change input")

const (
	// A pair is unchanged only when both similarities reach this value.
	changeThreshold = 0.98

	blendTextWeight   = 0.6
	blendVisualWeight = 0.4

	llmImageSide = 512
)

// ChangeAnalyzer defines the interface for comparing two captures of a page.
type ChangeAnalyzer interface {
	// Analyze only fails on invalid input. Undecodable images, extraction
	// problems and summarizer failures degrade to local results.
	Analyze(ctx context.Context, input entity.ChangeInput) (*entity.Report, error)
}

type changeAnalyzer struct {
	extractor  repository.TextExtractor
	decoder    repository.ImageDecoder
	summarizer repository.Summarizer
	cfg        EngineConfig
}

// NewChangeAnalyzer creates the analysis pipeline. summarizer may be nil to
// always summarize locally.
func NewChangeAnalyzer(
	extractor repository.TextExtractor,
	decoder repository.ImageDecoder,
	summarizer repository.Summarizer,
	cfg EngineConfig,
) ChangeAnalyzer {
	if cfg.Rules == nil {
		cfg.Rules = kpi.DefaultRules()
	}
	if cfg.Strategy == "" {
		cfg.Strategy = importance.StrategyGoal
	}
	if cfg.SummaryTimeout <= 0 {
		cfg.SummaryTimeout = defaultSummaryTimeout
	}
	cfg.VisualWeight = importance.ClampVisualWeight(cfg.VisualWeight)
	return &changeAnalyzer{
		extractor:  extractor,
		decoder:    decoder,
		summarizer: summarizer,
		cfg:        cfg,
	}
}

// decoded is one side of the comparison after text and image acquisition.
type decoded struct {
	text     entity.ExtractedText
	img      image.Image
	hasImage bool
}

// signals are the independent measurements of a pair.
type signals struct {
	visualSim    float64
	diff         textdiff.Result
	prevKPIs     entity.KpiMap
	curKPIs      entity.KpiMap
	criticalHits []string
}

func (uc *changeAnalyzer) Analyze(ctx context.Context, input entity.ChangeInput) (*entity.Report, error) {
	if missing := input.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	startTime := time.Now()

	prev, cur := uc.acquire(input)
	sig := uc.measure(prev, cur)

	rules := uc.cfg.Rules
	numericDelta, numericInsights := rules.Delta(sig.prevKPIs, sig.curKPIs)
	keywordHits := goal.CountHits(goal.Keywords(input.Goal), prev.text.Text+" "+cur.text.Text, numericInsights)

	bothImages := prev.hasImage && cur.hasImage
	outcome := summary.Merge(ctx, uc.summarizer, uc.summaryInput(input, prev, cur, sig, bothImages), summary.Local{
		Added:           sig.diff.Added,
		Removed:         sig.diff.Removed,
		Similarity:      sig.diff.Similarity,
		NumericInsights: numericInsights,
		CriticalPhrases: sig.criticalHits,
	}, uc.cfg.SummaryTimeout)
	recordSummary(outcome, uc.summarizer != nil)

	var verdict importance.Verdict
	switch uc.cfg.Strategy {
	case importance.StrategyVisual:
		verdict = importance.VisualScore(importance.LightSignals{
			TextSimilarity:   sig.diff.Similarity,
			VisualSimilarity: sig.visualSim,
			WatchHits:        goal.WatchHits(input.Keywords, input.Goal),
			Domain:           input.Domain,
		})
	default:
		verdict = importance.GoalScore(importance.Signals{
			TextSimilarity:  sig.diff.Similarity,
			NumericDelta:    numericDelta,
			KeywordHits:     keywordHits,
			CriticalPhrases: sig.criticalHits,
			GoalAlignment:   outcome.GoalAlignment,
			Goal:            input.Goal,
		})
	}

	summaryText := outcome.Summary
	blended := uc.cfg.VisualBlend && bothImages
	if blended {
		verdict = importance.BlendScore(sig.diff.Similarity, sig.visualSim, uc.cfg.VisualWeight)
		prefix := fmt.Sprintf("[visual] similarity=%.2f (%s) — ", sig.visualSim, importance.VisualLevel(sig.visualSim))
		summaryText = summary.Truncate(prefix+summaryText, summary.MaxSummaryRunes)
	}

	reasoning := outcome.Reasoning
	if reasoning == "" {
		reasoning = verdict.Rationale
	}

	report := &entity.Report{
		Result: entity.ChangeResult{
			HasChange: sig.diff.Added+sig.diff.Removed > 0 ||
				sig.diff.Similarity < changeThreshold ||
				sig.visualSim < changeThreshold ||
				len(sig.criticalHits) > 0,
			TextAdded:      sig.diff.Added,
			TextRemoved:    sig.diff.Removed,
			Similarity:     round4(blendTextWeight*sig.diff.Similarity + blendVisualWeight*sig.visualSim),
			TotalDiffLines: sig.diff.DiffLines,
			SummaryChange:  summaryText,
			Importance:     verdict.Importance,
			ImportScore:    verdict.Score,
			AlertCriteria:  verdict.Alert,
		},
		KeyInsights:      outcome.KeyInsights,
		GoalAlignment:    outcome.GoalAlignment,
		Reasoning:        reasoning,
		TextSimilarity:   sig.diff.Similarity,
		VisualSimilarity: sig.visualSim,
		NumericDelta:     numericDelta,
		KeywordHits:      keywordHits,
		CriticalPhrases:  nonNil(sig.criticalHits),
		PrevKPIs:         sig.prevKPIs,
		CurKPIs:          sig.curKPIs,
		Strategy:         string(uc.cfg.Strategy),
		VisualBlend:      blended,
		SummarySource:    outcome.Source,
		LLMUsed:          outcome.UsedExternal,
		PrevMetadata:     prev.text.Metadata,
		CurMetadata:      cur.text.Metadata,
	}

	duration := time.Since(startTime)
	metrics.AnalysesTotal.WithLabelValues(string(verdict.Importance), string(uc.cfg.Strategy)).Inc()
	metrics.AnalysisDuration.WithLabelValues(outcome.Source).Observe(duration.Seconds())
	slog.Info("Change analyzed",
		"url", input.URL,
		"domain", input.Domain,
		"has_change", report.Result.HasChange,
		"importance", report.Result.Importance,
		"import_score", report.Result.ImportScore,
		"summary_source", outcome.Source,
		"duration_ms", duration.Milliseconds(),
	)
	return report, nil
}

// acquire extracts text and decodes screenshots of both sides concurrently.
func (uc *changeAnalyzer) acquire(input entity.ChangeInput) (prev, cur decoded) {
	var g errgroup.Group
	g.Go(func() error {
		prev.text = uc.extractor.Extract(input.PrevDOM, input.URL)
		return nil
	})
	g.Go(func() error {
		cur.text = uc.extractor.Extract(input.CurDOM, input.URL)
		return nil
	})
	g.Go(func() error {
		prev.img, prev.hasImage = uc.decoder.Decode(input.PrevImage)
		return nil
	})
	g.Go(func() error {
		cur.img, cur.hasImage = uc.decoder.Decode(input.CurImage)
		return nil
	})
	_ = g.Wait()
	return prev, cur
}

// measure runs the independent signal computations concurrently. Screenshots
// are compared only when both sides decoded; otherwise visual similarity is 1.0.
func (uc *changeAnalyzer) measure(prev, cur decoded) signals {
	var (
		g     errgroup.Group
		sig   = signals{visualSim: 1.0}
		rules = uc.cfg.Rules
	)
	if prev.hasImage && cur.hasImage {
		g.Go(func() error {
			sig.visualSim = visual.Similarity(prev.img, cur.img)
			return nil
		})
	}
	g.Go(func() error {
		sig.diff = textdiff.Stats(prev.text.Text, cur.text.Text)
		return nil
	})
	g.Go(func() error {
		sig.prevKPIs = rules.Extract(prev.text.Text)
		sig.curKPIs = rules.Extract(cur.text.Text)
		return nil
	})
	g.Go(func() error {
		sig.criticalHits = rules.CriticalPhrases(prev.text.Text, cur.text.Text)
		return nil
	})
	_ = g.Wait()
	return sig
}

func (uc *changeAnalyzer) summaryInput(input entity.ChangeInput, prev, cur decoded, sig signals, bothImages bool) entity.SummaryInput {
	if uc.summarizer == nil {
		return entity.SummaryInput{}
	}
	p := summary.PromptInput{
		Goal:      input.Goal,
		Domain:    input.Domain,
		URL:       input.URL,
		PrevText:  prev.text.Text,
		CurText:   cur.text.Text,
		Added:     sig.diff.Added,
		Removed:   sig.diff.Removed,
		DiffLines: sig.diff.DiffLines,
	}
	if bothImages {
		vs := sig.visualSim
		p.VisualSimilarity = &vs
	}
	in := entity.SummaryInput{Prompt: summary.BuildPrompt(p)}
	if uc.cfg.IncludeImages && bothImages {
		in.PrevImage = encodeThumbnail(prev.img)
		in.CurImage = encodeThumbnail(cur.img)
	}
	return in
}

func encodeThumbnail(img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, visual.Thumbnail(img, llmImageSide)); err != nil {
		slog.Warn("Failed to encode screenshot for summarizer", "error", err)
		return nil
	}
	return buf.Bytes()
}

func recordSummary(o summary.Outcome, enabled bool) {
	reason := "none"
	switch {
	case !enabled:
		reason = "disabled"
	case o.FallbackReason == nil:
	case errors.Is(o.FallbackReason, context.DeadlineExceeded):
		reason = "timeout"
	case errors.Is(o.FallbackReason, summary.ErrMalformed):
		reason = "malformed"
	default:
		reason = "error"
	}
	if o.FallbackReason != nil {
		slog.Warn("External summary rejected, using local summary", "reason", reason, "error", o.FallbackReason)
	}
	metrics.SummariesTotal.WithLabelValues(o.Source, reason).Inc()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
