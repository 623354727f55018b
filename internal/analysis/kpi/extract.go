package kpi

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/user/change-analysis-service/internal/entity"
)

// minDelta is the smallest absolute difference treated as a change.
const minDelta = 0.01

// Extract applies the built-in rules to text.
func Extract(text string) entity.KpiMap {
	return DefaultRules().Extract(text)
}

// Extract returns every indicator whose rule matches text. Labels without a
// match are absent from the map.
func (rs *RuleSet) Extract(text string) entity.KpiMap {
	lower := strings.ToLower(text)
	out := make(entity.KpiMap)
	for i := range rs.Rules {
		if v, ok := rs.Rules[i].apply(lower); ok {
			out[rs.Rules[i].Label] = v
		}
	}
	return out
}

func (r *Rule) apply(lower string) (float64, bool) {
	scope := lower
	if r.Window > 0 {
		if runes := []rune(lower); len(runes) > r.Window {
			scope = string(runes[:r.Window])
		}
	}

	m, err := r.re.FindStringMatch(scope)
	if err != nil || m == nil {
		return 0, false
	}

	if len(r.Classify) > 0 {
		whole := m.String()
		for _, c := range r.Classify {
			if ok, err := c.re.MatchString(whole); err == nil && ok {
				return c.Value, true
			}
		}
		return 0, false
	}

	g := m.GroupByNumber(r.Group)
	if g == nil || g.Length == 0 {
		return 0, false
	}
	raw := g.String()
	for _, s := range r.Strip {
		raw = strings.ReplaceAll(raw, string(s), "")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}

	if r.UnitGroup > 0 {
		unit := ""
		if ug := m.GroupByNumber(r.UnitGroup); ug != nil {
			unit = ug.String()
		}
		scaled := false
		for _, u := range r.Units {
			if strings.Contains(unit, u.Contains) {
				v = u.apply(v)
				scaled = true
				break
			}
		}
		if !scaled {
			return 0, false
		}
	}
	return v, true
}

// Delta compares two indicator maps using the built-in display formats.
func Delta(prev, cur entity.KpiMap) (float64, []string) {
	return DefaultRules().Delta(prev, cur)
}

// Delta returns the mean normalized change over labels present in both maps,
// with one insight string per changed label in lexical label order. Labels
// differing by no more than 0.01 are ignored. No comparable label yields 0 and
// no insights.
func (rs *RuleSet) Delta(prev, cur entity.KpiMap) (float64, []string) {
	labels := make([]string, 0, len(prev))
	for label := range prev {
		if _, ok := cur[label]; ok {
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)

	var (
		sum      float64
		n        int
		insights []string
	)
	for _, label := range labels {
		p, c := prev[label], cur[label]
		if math.Abs(c-p) <= minDelta {
			continue
		}
		sum += math.Abs(c-p) / max(math.Abs(p), math.Abs(c), 1.0)
		n++
		insights = append(insights, rs.insight(label, p, c))
	}
	if n == 0 {
		return 0, insights
	}
	return sum / float64(n), insights
}

func (rs *RuleSet) insight(label string, prev, cur float64) string {
	r, ok := rs.byLabel[label]
	if !ok || r.Insight == "" {
		return fmt.Sprintf("%s %v → %v", label, prev, cur)
	}
	if r.Integer {
		return fmt.Sprintf(r.Insight, int(prev), int(cur))
	}
	return fmt.Sprintf(r.Insight, prev, cur)
}
