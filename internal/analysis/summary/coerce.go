package summary

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/user/change-analysis-service/internal/entity"
)

// ErrMalformed marks a summarizer answer that does not satisfy the payload schema.
var ErrMalformed = errors.New("malformed summary payload")

type wirePayload struct {
	SummaryChange *string   `json:"summary_change"`
	KeyInsights   *[]string `json:"key_insights"`
	GoalAlignment *float64  `json:"goal_alignment"`
	Reasoning     string    `json:"reasoning"`
}

// Coerce extracts the payload from a model answer. Code fences and prose
// around the object are tolerated; the first balanced {...} span is decoded
// and must satisfy Validate.
func Coerce(raw string) (*entity.SummaryPayload, error) {
	obj, ok := firstObject(stripFences(raw))
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object found", ErrMalformed)
	}

	var w wirePayload
	dec := json.NewDecoder(bytes.NewReader([]byte(obj)))
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if w.SummaryChange == nil || w.KeyInsights == nil || w.GoalAlignment == nil {
		return nil, fmt.Errorf("%w: summary_change, key_insights and goal_alignment are required", ErrMalformed)
	}

	p := &entity.SummaryPayload{
		SummaryChange: *w.SummaryChange,
		KeyInsights:   *w.KeyInsights,
		GoalAlignment: *w.GoalAlignment,
		Reasoning:     w.Reasoning,
	}
	if err := Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate rejects payloads that must not be merged.
func Validate(p *entity.SummaryPayload) error {
	switch {
	case p == nil:
		return fmt.Errorf("%w: empty payload", ErrMalformed)
	case strings.TrimSpace(p.SummaryChange) == "":
		return fmt.Errorf("%w: summary_change is empty", ErrMalformed)
	case !(p.GoalAlignment >= 0 && p.GoalAlignment <= 1):
		return fmt.Errorf("%w: goal_alignment %v outside [0,1]", ErrMalformed, p.GoalAlignment)
	}
	for i, s := range p.KeyInsights {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%w: key_insights[%d] is empty", ErrMalformed, i)
		}
	}
	return nil
}

func stripFences(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	kept := lines[:0]
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "```") {
			continue
		}
		kept = append(kept, l)
	}
	return strings.Join(kept, "\n")
}

// firstObject returns the first balanced {...} span, ignoring braces inside
// JSON strings.
func firstObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
