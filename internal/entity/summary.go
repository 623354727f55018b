package entity

// SummaryPayload is the structured answer expected from an external summarizer.
type SummaryPayload struct {
	SummaryChange string   `json:"summary_change"`
	KeyInsights   []string `json:"key_insights"`
	GoalAlignment float64  `json:"goal_alignment"`
	Reasoning     string   `json:"reasoning,omitempty"`
}

// SummaryInput is everything a summarizer may see about one change.
type SummaryInput struct {
	Prompt    string
	PrevImage []byte // PNG, optional
	CurImage  []byte // PNG, optional
}
