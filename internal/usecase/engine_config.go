package usecase

import (
	"time"

	"github.com/user/change-analysis-service/internal/analysis/importance"
	"github.com/user/change-analysis-service/internal/analysis/kpi"
	"github.com/user/change-analysis-service/pkg/config"
)

// defaultSummaryTimeout bounds a summarizer call when none is configured.
const defaultSummaryTimeout = 20 * time.Second

// EngineConfig fixes the behaviour of an analyzer at construction.
type EngineConfig struct {
	Strategy       importance.Strategy
	VisualBlend    bool
	VisualWeight   float64
	SummaryTimeout time.Duration
	IncludeImages  bool
	Rules          *kpi.RuleSet
}

// DefaultEngineConfig mirrors the documented configuration defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Strategy:       importance.StrategyGoal,
		VisualWeight:   0.3,
		SummaryTimeout: defaultSummaryTimeout,
		Rules:          kpi.DefaultRules(),
	}
}

// EngineConfigFrom derives the analyzer configuration from the loaded
// settings. An unknown scoring strategy is an error.
func EngineConfigFrom(cfg *config.Config) (EngineConfig, error) {
	strategy, err := importance.ParseStrategy(cfg.ScoringStrategy)
	if err != nil {
		return EngineConfig{}, err
	}
	return EngineConfig{
		Strategy:       strategy,
		VisualBlend:    cfg.VisualBlend,
		VisualWeight:   importance.ClampVisualWeight(cfg.VisualWeight),
		SummaryTimeout: cfg.SummaryTimeout(),
		IncludeImages:  cfg.IncludeImagesForLLM,
		Rules:          kpi.DefaultRules(),
	}, nil
}
