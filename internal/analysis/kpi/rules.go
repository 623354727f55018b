// Package kpi mines labelled numeric indicators and trigger phrases from
// page text using a data-driven rule table.
package kpi

import (
	_ "embed"
	"fmt"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// matchTimeout bounds a single regex evaluation.
const matchTimeout = 2 * time.Second

// UnitScale rescales a value whose unit word contains Contains.
type UnitScale struct {
	Contains string  `yaml:"contains"`
	Multiply float64 `yaml:"multiply"`
	Divide   float64 `yaml:"divide"`
}

func (u UnitScale) apply(v float64) float64 {
	if u.Multiply != 0 {
		v *= u.Multiply
	}
	if u.Divide != 0 {
		v /= u.Divide
	}
	return v
}

// Class assigns Value when Pattern matches the rule's whole match.
type Class struct {
	Pattern string  `yaml:"pattern"`
	Value   float64 `yaml:"value"`

	re *regexp2.Regexp
}

// Rule extracts one labelled indicator.
type Rule struct {
	Label     string      `yaml:"label"`
	Pattern   string      `yaml:"pattern"`
	Window    int         `yaml:"window"`
	Group     int         `yaml:"group"`
	Strip     string      `yaml:"strip"`
	UnitGroup int         `yaml:"unit_group"`
	Units     []UnitScale `yaml:"units"`
	Classify  []Class     `yaml:"classify"`
	Insight   string      `yaml:"insight"`
	Integer   bool        `yaml:"integer"`

	re *regexp2.Regexp
}

// RuleSet is a compiled rule table. It is read-only after loading and safe
// for concurrent use.
type RuleSet struct {
	Rules   []Rule   `yaml:"rules"`
	Phrases []string `yaml:"critical_phrases"`

	byLabel map[string]*Rule
}

// LoadRules parses and compiles a YAML rule table.
func LoadRules(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("failed to parse kpi rules: %w", err)
	}

	rs.byLabel = make(map[string]*Rule, len(rs.Rules))
	for i := range rs.Rules {
		r := &rs.Rules[i]
		if r.Label == "" {
			return nil, fmt.Errorf("kpi rule %d has no label", i)
		}
		if _, dup := rs.byLabel[r.Label]; dup {
			return nil, fmt.Errorf("duplicate kpi rule %q", r.Label)
		}
		if r.Group == 0 && len(r.Classify) == 0 {
			return nil, fmt.Errorf("kpi rule %q needs a capture group or classify list", r.Label)
		}

		re, err := compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("kpi rule %q: %w", r.Label, err)
		}
		r.re = re

		for j := range r.Classify {
			c := &r.Classify[j]
			if c.re, err = compile(c.Pattern); err != nil {
				return nil, fmt.Errorf("kpi rule %q classify %d: %w", r.Label, j, err)
			}
		}
		rs.byLabel[r.Label] = r
	}
	return &rs, nil
}

func compile(pattern string) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = matchTimeout
	return re, nil
}

var defaultRules = sync.OnceValue(func() *RuleSet {
	rs, err := LoadRules(defaultRulesYAML)
	if err != nil {
		panic(err)
	}
	return rs
})

// DefaultRules returns the built-in rule table.
func DefaultRules() *RuleSet {
	return defaultRules()
}
