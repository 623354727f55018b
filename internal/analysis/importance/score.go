// Package importance turns change signals into a bounded 0-10 score, a
// severity label and an alert code.
package importance

import (
	"fmt"
	"math"
	"strings"

	"github.com/user/change-analysis-service/internal/analysis/goal"
	"github.com/user/change-analysis-service/internal/entity"
)

// Strategy names a scoring formula.
type Strategy string

const (
	// StrategyGoal is the KPI and critical-phrase aware formula.
	StrategyGoal Strategy = "goal"
	// StrategyVisual blends text and visual dissimilarity only.
	StrategyVisual Strategy = "visual"
)

// ParseStrategy validates a strategy name. The empty string selects StrategyGoal.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyGoal:
		return StrategyGoal, nil
	case StrategyVisual:
		return StrategyVisual, nil
	}
	return "", fmt.Errorf("unknown scoring strategy %q", s)
}

// MaxScore is the upper bound of every score.
const MaxScore = 10.0

// Goal formula weights.
const (
	weightText      = 0.55
	weightNumeric   = 0.25
	weightKeywords  = 0.10
	weightCritical  = 0.10
	weightAlignment = 0.05

	keywordSaturation = 5.0
	regulatedBoost    = 1.3
)

// Lightweight formula weights.
const (
	lightWeightText   = 0.6
	lightWeightVisual = 0.4
	watchHitBonus     = 0.05
)

// MaxVisualWeight caps the post-hoc visual blend factor.
const MaxVisualWeight = 0.5

var domainWeights = map[string]float64{
	"regulatory": 1.2,
	"safety":     1.15,
	"pricing":    1.1,
}

// DomainWeight returns the multiplier for a domain, 1.0 when unknown.
func DomainWeight(domain string) float64 {
	if w, ok := domainWeights[strings.ToLower(strings.TrimSpace(domain))]; ok {
		return w
	}
	return 1.0
}

// Ladder holds the half-open score thresholds of a classification:
// score < Medium is low, Medium <= score < Critical is medium, the rest critical.
type Ladder struct {
	Medium   float64
	Critical float64
}

var (
	GoalLadder   = Ladder{Medium: 4.5, Critical: 7.0}
	VisualLadder = Ladder{Medium: 4.5, Critical: 7.5}
)

// Classify maps a score onto an importance label.
func (l Ladder) Classify(score float64) entity.Importance {
	switch {
	case score < l.Medium:
		return entity.ImportanceLow
	case score < l.Critical:
		return entity.ImportanceMedium
	default:
		return entity.ImportanceCritical
	}
}

// AlertFor is the fixed importance to alert mapping.
func AlertFor(imp entity.Importance) entity.Alert {
	switch imp {
	case entity.ImportanceCritical:
		return entity.AlertCritical
	case entity.ImportanceMedium:
		return entity.AlertMedium
	default:
		return entity.AlertLow
	}
}

// Verdict is a score with its consistent labels.
type Verdict struct {
	Score      float64
	Importance entity.Importance
	Alert      entity.Alert
	Rationale  string
}

func newVerdict(score float64, l Ladder, rationale string) Verdict {
	imp := l.Classify(score)
	return Verdict{Score: score, Importance: imp, Alert: AlertFor(imp), Rationale: rationale}
}

// Signals feed the goal-aware formula.
type Signals struct {
	TextSimilarity  float64
	NumericDelta    float64
	KeywordHits     int
	CriticalPhrases []string
	GoalAlignment   float64
	Goal            string
}

// GoalScore weighs text dissimilarity, KPI movement, goal keyword hits,
// new critical phrases and goal alignment, boosted by 1.3 for regulated goals.
func GoalScore(s Signals) Verdict {
	sim := clamp(s.TextSimilarity, 0, 1)
	delta := clamp(s.NumericDelta, 0, 1)
	align := clamp(s.GoalAlignment, 0, 1)

	crit := 0.0
	if len(s.CriticalPhrases) > 0 {
		crit = 1
	}
	kw := math.Min(1, float64(max(s.KeywordHits, 0))/keywordSaturation)

	base := (1-sim)*weightText +
		delta*weightNumeric +
		kw*weightKeywords +
		crit*weightCritical +
		align*weightAlignment

	score := MaxScore * base
	if goal.Regulated(s.Goal) {
		score *= regulatedBoost
	}
	score = round2(math.Min(score, MaxScore))

	rationale := fmt.Sprintf("text dissimilarity=%.2f%%, numeric delta=%.2f, keyword hits=%d, critical flags=%d",
		(1-sim)*100, delta, s.KeywordHits, len(s.CriticalPhrases))
	return newVerdict(score, GoalLadder, rationale)
}

// LightSignals feed the lightweight text and visual formula.
type LightSignals struct {
	TextSimilarity   float64
	VisualSimilarity float64
	WatchHits        int
	Domain           string
}

// VisualScore blends text and visual dissimilarity, adds 0.05 per watch
// keyword found in the goal and applies the domain weight.
func VisualScore(s LightSignals) Verdict {
	textDelta := 1 - clamp(s.TextSimilarity, 0, 1)
	visDelta := 1 - clamp(s.VisualSimilarity, 0, 1)

	base := textDelta*lightWeightText + visDelta*lightWeightVisual
	if s.WatchHits > 0 {
		base += watchHitBonus * float64(s.WatchHits)
	}
	weighted := clamp(base*DomainWeight(s.Domain), 0, 1)
	score := round2(weighted * MaxScore)

	rationale := fmt.Sprintf("textΔ=%.2f, visΔ=%.2f, domain=%s, weighted=%v", textDelta, visDelta, s.Domain, score)
	return newVerdict(score, VisualLadder, rationale)
}

// ClampVisualWeight bounds a blend factor to [0, MaxVisualWeight].
func ClampVisualWeight(w float64) float64 {
	if math.IsNaN(w) {
		return 0
	}
	return clamp(w, 0, MaxVisualWeight)
}

// BlendScore recombines text and visual similarity post hoc as
// (1-w)·text + w·visual and scores the dissimilarity on the goal ladder.
func BlendScore(textSim, visualSim, weight float64) Verdict {
	w := ClampVisualWeight(weight)
	combined := (1-w)*clamp(textSim, 0, 1) + w*clamp(visualSim, 0, 1)
	score := clamp(round2((1-combined)*MaxScore), 0, MaxScore)

	rationale := fmt.Sprintf("blended similarity=%.4f (visual weight %.2f)", combined, w)
	return newVerdict(score, GoalLadder, rationale)
}

// VisualLevel describes a visual similarity as minor, moderate or significant change.
func VisualLevel(sim float64) string {
	switch {
	case sim > 0.85:
		return "minor"
	case sim > 0.65:
		return "moderate"
	default:
		return "significant"
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
