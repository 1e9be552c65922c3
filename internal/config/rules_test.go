package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/intel"
)

func TestDefaultRules_Valid(t *testing.T) {
	rules := DefaultRules()
	if err := rules.Validate(); err != nil {
		t.Fatalf("DefaultRules().Validate() error = %v", err)
	}
	if len(rules.Heads) != len(intel.HeadKinds) {
		t.Errorf("DefaultRules() covers %d heads, want %d", len(rules.Heads), len(intel.HeadKinds))
	}
}

func TestRules_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Rules)
		wantErr bool
	}{
		{name: "defaults pass", mutate: func(r *Rules) {}, wantErr: false},
		{name: "empty combiner defaults to mean", mutate: func(r *Rules) { r.Combiner = "" }, wantErr: false},
		{name: "unknown combiner", mutate: func(r *Rules) { r.Combiner = "median" }, wantErr: true},
		{name: "unknown head in scoring", mutate: func(r *Rules) {
			r.Heads["weather_watch"] = HeadScoring{Enabled: true}
		}, wantErr: true},
		{name: "unordered thresholds", mutate: func(r *Rules) {
			r.Heads[intel.HeadJobSpy] = HeadScoring{Enabled: true, Metric: "hiring_velocity", Medium: 20, High: 10, Critical: 5}
		}, wantErr: true},
		{name: "empty pattern kind", mutate: func(r *Rules) {
			r.Patterns[0].Kind = ""
		}, wantErr: true},
		{name: "duplicate pattern kind", mutate: func(r *Rules) {
			r.Patterns = append(r.Patterns, r.Patterns[0])
		}, wantErr: true},
		{name: "single require condition", mutate: func(r *Rules) {
			r.Patterns[0].Require = r.Patterns[0].Require[:1]
		}, wantErr: true},
		{name: "duplicate require head", mutate: func(r *Rules) {
			r.Patterns[0].Require = []Condition{
				{Head: intel.HeadPriceWatch, Field: "percent_change", Op: OpLte, Value: -15.0},
				{Head: intel.HeadPriceWatch, Field: "percent_change", Op: OpLte, Value: -5.0},
			}
		}, wantErr: true},
		{name: "unknown op", mutate: func(r *Rules) {
			r.Patterns[0].Require[0].Op = "between"
		}, wantErr: true},
		{name: "op without field", mutate: func(r *Rules) {
			r.Patterns[0].Require[0].Field = ""
		}, wantErr: true},
		{name: "numeric op with non-numeric value", mutate: func(r *Rules) {
			r.Patterns[0].Require[0].Value = "fifteen"
		}, wantErr: true},
		{name: "eq with bool value", mutate: func(r *Rules) {
			r.Patterns[0].Require[0] = Condition{Head: intel.HeadPriceWatch, Field: "on_sale", Op: OpEq, Value: true}
		}, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := DefaultRules()
			tt.mutate(rules)
			err := rules.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCondition_Matches(t *testing.T) {
	sig := &intel.Signal{
		Head: intel.HeadPriceWatch,
		Payload: map[string]any{
			"percent_change": -18.0,
			"product":        "enterprise",
			"on_sale":        true,
		},
	}

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{name: "head only", cond: Condition{Head: intel.HeadPriceWatch}, want: true},
		{name: "wrong head", cond: Condition{Head: intel.HeadJobSpy}, want: false},
		{name: "lte match", cond: Condition{Head: intel.HeadPriceWatch, Field: "percent_change", Op: OpLte, Value: -15.0}, want: true},
		{name: "lte miss", cond: Condition{Head: intel.HeadPriceWatch, Field: "percent_change", Op: OpLte, Value: -20.0}, want: false},
		{name: "lt boundary", cond: Condition{Head: intel.HeadPriceWatch, Field: "percent_change", Op: OpLt, Value: -18.0}, want: false},
		{name: "gt miss", cond: Condition{Head: intel.HeadPriceWatch, Field: "percent_change", Op: OpGt, Value: 0.0}, want: false},
		{name: "gte boundary", cond: Condition{Head: intel.HeadPriceWatch, Field: "percent_change", Op: OpGte, Value: -18.0}, want: true},
		{name: "abs_gte match", cond: Condition{Head: intel.HeadPriceWatch, Field: "percent_change", Op: OpAbsGte, Value: 15.0}, want: true},
		{name: "abs_gte miss", cond: Condition{Head: intel.HeadPriceWatch, Field: "percent_change", Op: OpAbsGte, Value: 20.0}, want: false},
		{name: "eq string", cond: Condition{Head: intel.HeadPriceWatch, Field: "product", Op: OpEq, Value: "enterprise"}, want: true},
		{name: "eq bool", cond: Condition{Head: intel.HeadPriceWatch, Field: "on_sale", Op: OpEq, Value: true}, want: true},
		{name: "eq int vs float", cond: Condition{Head: intel.HeadPriceWatch, Field: "percent_change", Op: OpEq, Value: -18}, want: true},
		{name: "neq match", cond: Condition{Head: intel.HeadPriceWatch, Field: "product", Op: OpNeq, Value: "starter"}, want: true},
		{name: "missing field", cond: Condition{Head: intel.HeadPriceWatch, Field: "absent", Op: OpEq, Value: 1.0}, want: false},
		{name: "numeric op on string field", cond: Condition{Head: intel.HeadPriceWatch, Field: "product", Op: OpGt, Value: 1.0}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cond.Matches(sig); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadRules(t *testing.T) {
	t.Run("empty path loads defaults", func(t *testing.T) {
		rules, err := LoadRules("")
		if err != nil {
			t.Fatalf("LoadRules(\"\") error = %v", err)
		}
		if rules.Combiner != "mean" {
			t.Errorf("default combiner = %q, want mean", rules.Combiner)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadRules("/nonexistent/rules.json"); err == nil {
			t.Error("LoadRules() error = nil, want error")
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.json")
		if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadRules(path); err == nil {
			t.Error("LoadRules() error = nil, want error")
		}
	})

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.json")
		content := `{
			"combiner": "min",
			"heads": {
				"price_watch": {"enabled": true, "metric": "percent_change", "absolute": true, "medium": 5, "high": 10, "critical": 20}
			},
			"patterns": [
				{
					"kind": "price war",
					"require": [
						{"head": "price_watch", "field": "percent_change", "op": "lte", "value": -15},
						{"head": "ad_tracker", "field": "spend_change", "op": "gte", "value": 0.5}
					]
				}
			]
		}`
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		rules, err := LoadRules(path)
		if err != nil {
			t.Fatalf("LoadRules() error = %v", err)
		}
		if rules.Combiner != "min" {
			t.Errorf("combiner = %q, want min", rules.Combiner)
		}
		if len(rules.Patterns) != 1 || rules.Patterns[0].Kind != "price war" {
			t.Errorf("patterns = %+v, want one 'price war' pattern", rules.Patterns)
		}
	})

	t.Run("invalid rules in file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.json")
		content := `{"combiner": "mean", "patterns": [{"kind": "solo", "require": [{"head": "price_watch"}]}]}`
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadRules(path); err == nil {
			t.Error("LoadRules() error = nil, want validation error")
		}
	})
}
