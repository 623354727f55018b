package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/user/change-analysis-service/internal/entity"
	"github.com/user/change-analysis-service/internal/repository"
)

// Merge asks the summarizer for a structured summary within timeout and
// falls back to Fallback(local) on any failure: disabled, transport error,
// timeout or a payload that fails Validate. Only the narrative, the key
// insights and the goal alignment ever come from the summarizer; counts and
// similarity stay local.
func Merge(ctx context.Context, s repository.Summarizer, in entity.SummaryInput, local Local, timeout time.Duration) Outcome {
	if s == nil {
		return Fallback(local)
	}

	p, err := summarize(ctx, s, in, timeout)
	if err == nil {
		err = Validate(p)
	}
	if err != nil {
		out := Fallback(local)
		out.FallbackReason = err
		return out
	}

	insights := p.KeyInsights
	if len(insights) == 0 {
		insights = KeyInsights(local.NumericInsights, local.CriticalPhrases)
	}
	if len(insights) > maxKeyInsights {
		insights = insights[:maxKeyInsights]
	}
	return Outcome{
		Summary:       Truncate(p.SummaryChange, MaxSummaryRunes),
		KeyInsights:   insights,
		GoalAlignment: p.GoalAlignment,
		Reasoning:     p.Reasoning,
		UsedExternal:  true,
		Source:        SourceExternal,
	}
}

// summarize bounds the call even when the summarizer ignores cancellation.
func summarize(ctx context.Context, s repository.Summarizer, in entity.SummaryInput, timeout time.Duration) (*entity.SummaryPayload, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		p   *entity.SummaryPayload
		err error
	}
	done := make(chan result, 1)
	go func() {
		p, err := s.Summarize(ctx, in)
		done <- result{p, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("external summarization failed: %w", r.err)
		}
		return r.p, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("external summarization abandoned: %w", ctx.Err())
	}
}
