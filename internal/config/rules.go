package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/intel"
)

// Condition ops supported by the pattern matcher.
const (
	OpEq     = "eq"      // payload field equals value (number, bool, or string)
	OpNeq    = "neq"     // payload field differs from value
	OpLt     = "lt"      // numeric less-than
	OpLte    = "lte"     // numeric less-than-or-equal
	OpGt     = "gt"      // numeric greater-than
	OpGte    = "gte"     // numeric greater-than-or-equal
	OpAbsGte = "abs_gte" // absolute numeric value at least
)

var validOps = map[string]bool{
	OpEq: true, OpNeq: true, OpLt: true, OpLte: true, OpGt: true, OpGte: true, OpAbsGte: true,
}

// Condition is one predicate of a pattern: a head kind and, optionally, a
// payload-field comparison. With no field, any retained signal from the head
// satisfies the condition.
type Condition struct {
	Head  intel.HeadKind `json:"head"`
	Field string         `json:"field,omitempty"`
	Op    string         `json:"op,omitempty"`
	Value any            `json:"value,omitempty"`
}

// Pattern is one entry of the correlation table: when every require
// condition is satisfied by a distinct signal in the window and no negate
// condition matches, an insight of the given kind is emitted.
type Pattern struct {
	Kind    string      `json:"kind"`
	Require []Condition `json:"require"`
	Negate  []Condition `json:"negate,omitempty"`
	Promote bool        `json:"promote,omitempty"` // bump threat one level, capped at critical
}

// HeadScoring configures the scorer for one head kind.
type HeadScoring struct {
	Enabled bool `json:"enabled"`

	// Metric is the payload field driving threat escalation. When Absolute
	// is set the thresholds compare against the metric's absolute value.
	Metric   string  `json:"metric,omitempty"`
	Absolute bool    `json:"absolute,omitempty"`
	Medium   float64 `json:"medium,omitempty"`
	High     float64 `json:"high,omitempty"`
	Critical float64 `json:"critical,omitempty"`

	// Required payload fields; missing ones reduce confidence.
	Required []string `json:"required,omitempty"`
}

// Rules is the externally supplied rule set: per-head scoring, the pattern
// table, and the confidence combiner.
type Rules struct {
	Combiner string                         `json:"combiner"` // mean, min, max, or product
	Heads    map[intel.HeadKind]HeadScoring `json:"heads"`
	Patterns []Pattern                      `json:"patterns"`
}

var validCombiners = map[string]bool{"mean": true, "min": true, "max": true, "product": true}

// DefaultRules returns the built-in rule set, mirroring the thresholds the
// collector heads historically applied and the stock cross-head patterns.
func DefaultRules() *Rules {
	return &Rules{
		Combiner: "mean",
		Heads: map[intel.HeadKind]HeadScoring{
			intel.HeadPriceWatch: {
				Enabled: true, Metric: "percent_change", Absolute: true,
				Medium: 5, High: 10, Critical: 20,
				Required: []string{"product", "percent_change"},
			},
			intel.HeadJobSpy: {
				Enabled: true, Metric: "hiring_velocity",
				Medium: 5, High: 10, Critical: 20,
				Required: []string{"hiring_velocity"},
			},
			intel.HeadTechRadar: {
				Enabled: true, Metric: "investment_amount",
				Medium: 1e6, High: 1e7, Critical: 1e8,
				Required: []string{"technology_name"},
			},
			intel.HeadSocialPulse: {
				Enabled: true, Metric: "sentiment_score", Absolute: true,
				Medium: 0.3, High: 0.5, Critical: 0.8,
				Required: []string{"sentiment_score", "engagement_count"},
			},
			intel.HeadPatentHawk: {
				Enabled:  true,
				Required: []string{"patent_number", "title"},
			},
			intel.HeadAdTracker: {
				Enabled: true, Metric: "spend_change", Absolute: true,
				Medium: 0.25, High: 0.5, Critical: 1.0,
				Required: []string{"ad_copy"},
			},
		},
		Patterns: []Pattern{
			{
				Kind: "cost-cutting signal",
				Require: []Condition{
					{Head: intel.HeadPriceWatch, Field: "percent_change", Op: OpLte, Value: -15.0},
					{Head: intel.HeadJobSpy, Field: "hiring_freeze", Op: OpEq, Value: true},
				},
				Promote: true,
			},
			{
				Kind: "aggressive expansion",
				Require: []Condition{
					{Head: intel.HeadJobSpy, Field: "hiring_velocity", Op: OpGte, Value: 10.0},
					{Head: intel.HeadAdTracker, Field: "spend_change", Op: OpGte, Value: 0.5},
				},
				Negate: []Condition{
					{Head: intel.HeadPriceWatch, Field: "percent_change", Op: OpLte, Value: -15.0},
				},
			},
			{
				Kind: "new product launch",
				Require: []Condition{
					{Head: intel.HeadPatentHawk},
					{Head: intel.HeadTechRadar},
					{Head: intel.HeadSocialPulse, Field: "sentiment_score", Op: OpGte, Value: 0.3},
				},
				Promote: true,
			},
		},
	}
}

// LoadRules loads the rule set from a JSON file, or the built-in defaults
// when path is empty. The result is validated; any error here is fatal at
// startup, before the engine accepts a single signal.
func LoadRules(path string) (*Rules, error) {
	rules := DefaultRules()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read rules file: %w", err)
		}
		rules = &Rules{}
		if err := json.Unmarshal(data, rules); err != nil {
			return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
		}
	}
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	return rules, nil
}

// Validate checks the rule set for configuration errors.
func (r *Rules) Validate() error {
	if r.Combiner == "" {
		r.Combiner = "mean"
	}
	if !validCombiners[r.Combiner] {
		return fmt.Errorf("unknown combiner %q (must be mean, min, max, or product)", r.Combiner)
	}
	for head, hs := range r.Heads {
		if !head.IsValid() {
			return fmt.Errorf("scoring table references unknown head %q", head)
		}
		if hs.Metric != "" {
			if hs.Medium > hs.High || hs.High > hs.Critical {
				return fmt.Errorf("head %s: thresholds must be ordered medium <= high <= critical", head)
			}
		}
	}
	kinds := make(map[string]bool, len(r.Patterns))
	for i, p := range r.Patterns {
		if p.Kind == "" {
			return fmt.Errorf("pattern %d: kind cannot be empty", i)
		}
		if kinds[p.Kind] {
			return fmt.Errorf("duplicate pattern kind %q", p.Kind)
		}
		kinds[p.Kind] = true
		if len(p.Require) < 2 {
			return fmt.Errorf("pattern %q: requires at least 2 conditions (insights correlate >= 2 signals)", p.Kind)
		}
		heads := make(map[intel.HeadKind]bool, len(p.Require))
		for _, c := range p.Require {
			if err := validateCondition(p.Kind, c); err != nil {
				return err
			}
			if heads[c.Head] {
				return fmt.Errorf("pattern %q: duplicate require head %q", p.Kind, c.Head)
			}
			heads[c.Head] = true
		}
		for _, c := range p.Negate {
			if err := validateCondition(p.Kind, c); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateCondition(kind string, c Condition) error {
	if !c.Head.IsValid() {
		return fmt.Errorf("pattern %q: unknown head %q", kind, c.Head)
	}
	if c.Field == "" {
		if c.Op != "" {
			return fmt.Errorf("pattern %q: op %q requires a field", kind, c.Op)
		}
		return nil
	}
	if !validOps[c.Op] {
		return fmt.Errorf("pattern %q: unknown op %q on field %q", kind, c.Op, c.Field)
	}
	if c.Op != OpEq && c.Op != OpNeq {
		if _, ok := toFloat(c.Value); !ok {
			return fmt.Errorf("pattern %q: op %q on field %q needs a numeric value", kind, c.Op, c.Field)
		}
	}
	return nil
}

// Matches evaluates the condition against a signal. The head must match; a
// condition without a field matches any signal from that head.
func (c Condition) Matches(s *intel.Signal) bool {
	if s.Head != c.Head {
		return false
	}
	if c.Field == "" {
		return true
	}
	switch c.Op {
	case OpEq, OpNeq:
		v, ok := s.Payload[c.Field]
		if !ok {
			return false
		}
		eq := looseEqual(v, c.Value)
		if c.Op == OpEq {
			return eq
		}
		return !eq
	default:
		got, ok := s.PayloadFloat(c.Field)
		if !ok {
			return false
		}
		want, ok := toFloat(c.Value)
		if !ok {
			return false
		}
		switch c.Op {
		case OpLt:
			return got < want
		case OpLte:
			return got <= want
		case OpGt:
			return got > want
		case OpGte:
			return got >= want
		case OpAbsGte:
			if got < 0 {
				got = -got
			}
			return got >= want
		}
	}
	return false
}

// looseEqual compares payload values the way JSON decodes them: numbers as
// float64, plus bools and strings.
func looseEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
