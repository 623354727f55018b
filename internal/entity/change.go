package entity

import "strings"

// Importance is the severity label attached to a detected change.
type Importance string

const (
	ImportanceLow      Importance = "low"
	ImportanceMedium   Importance = "medium"
	ImportanceCritical Importance = "critical"
)

// Alert is the short alert code consumers route on.
type Alert string

const (
	AlertLow      Alert = "low"
	AlertMedium   Alert = "med"
	AlertCritical Alert = "crit"
)

// ChangeInput is the per-invocation request for a change analysis.
type ChangeInput struct {
	PrevDOM   string
	CurDOM    string
	PrevImage ImageRef
	CurImage  ImageRef
	Goal      string
	Domain    string
	URL       string
	Keywords  []string
}

// Missing returns the names of required fields that are blank.
func (in ChangeInput) Missing() []string {
	var missing []string
	if strings.TrimSpace(in.PrevDOM) == "" {
		missing = append(missing, "prev_dom")
	}
	if strings.TrimSpace(in.CurDOM) == "" {
		missing = append(missing, "cur_dom")
	}
	if strings.TrimSpace(in.Goal) == "" {
		missing = append(missing, "goal")
	}
	if strings.TrimSpace(in.Domain) == "" {
		missing = append(missing, "domain")
	}
	return missing
}

// ChangeResult is the flat result consumers receive. The JSON field names are
// part of the wire contract and must not change.
type ChangeResult struct {
	HasChange      bool       `json:"has_change" yaml:"has_change"`
	TextAdded      int        `json:"text_added" yaml:"text_added"`
	TextRemoved    int        `json:"text_removed" yaml:"text_removed"`
	Similarity     float64    `json:"similarity" yaml:"similarity"`
	TotalDiffLines int        `json:"total_diff_lines" yaml:"total_diff_lines"`
	SummaryChange  string     `json:"summary_change" yaml:"summary_change"`
	Importance     Importance `json:"importance" yaml:"importance"`
	ImportScore    float64    `json:"import_score" yaml:"import_score"`
	AlertCriteria  Alert      `json:"alert_criteria" yaml:"alert_criteria"`
}

// KpiMap maps an indicator label to its numeric value. A missing label means
// the indicator was not mentioned.
type KpiMap map[string]float64

// Report is a ChangeResult plus the intermediate signals that produced it.
type Report struct {
	Result           ChangeResult `json:"result" yaml:"result"`
	KeyInsights      []string     `json:"key_insights" yaml:"key_insights"`
	GoalAlignment    float64      `json:"goal_alignment" yaml:"goal_alignment"`
	Reasoning        string       `json:"reasoning" yaml:"reasoning"`
	TextSimilarity   float64      `json:"text_similarity" yaml:"text_similarity"`
	VisualSimilarity float64      `json:"visual_similarity" yaml:"visual_similarity"`
	NumericDelta     float64      `json:"numeric_delta" yaml:"numeric_delta"`
	KeywordHits      int          `json:"keyword_hits" yaml:"keyword_hits"`
	CriticalPhrases  []string     `json:"critical_phrases" yaml:"critical_phrases"`
	PrevKPIs         KpiMap       `json:"prev_kpis" yaml:"prev_kpis"`
	CurKPIs          KpiMap       `json:"cur_kpis" yaml:"cur_kpis"`
	Strategy         string       `json:"strategy" yaml:"strategy"`
	VisualBlend      bool         `json:"visual_blend" yaml:"visual_blend"`
	SummarySource    string       `json:"summary_source" yaml:"summary_source"`
	LLMUsed          bool         `json:"llm_used" yaml:"llm_used"`
	PrevMetadata     PageMetadata `json:"prev_metadata" yaml:"prev_metadata"`
	CurMetadata      PageMetadata `json:"cur_metadata" yaml:"cur_metadata"`
}
