package policy

import (
	"testing"
)

func FuzzParsePolicy(f *testing.F) {
	// Seed with the sample policy
	f.Add([]byte(DefaultConfigYAML()))

	// Seed with minimal valid JSON
	f.Add([]byte(`{"allowed_tools": ["A"], "max_steps_per_run": 1, "budget_limit": 0}`))

	// Seed with legacy gate spelling
	f.Add([]byte(`{"allowed_tools": [], "max_steps_per_run": 2, "budget_limit": 5, "approval_required_for": {"access_levels": ["write"]}}`))

	// Seed with empty
	f.Add([]byte{})

	// Seed with garbage
	f.Add([]byte(`{{{not yaml at all`))

	f.Fuzz(func(t *testing.T, data []byte) {
		// Must not panic on any input; accepted policies must be well-formed.
		p, err := Parse(data)
		if err != nil {
			return
		}
		if p.MaxStepsPerRun <= 0 || p.BudgetLimit < 0 {
			t.Fatalf("Parse accepted invalid limits: %+v", p)
		}
	})
}

func FuzzEvaluate(f *testing.F) {
	f.Add("A", 10, 0, 100)
	f.Add("C", 25, 0, 100)
	f.Add("B", 0, 0, 0)
	f.Add("", -1, -1, -1)

	e := testEngine(f)
	f.Fuzz(func(t *testing.T, tool string, cost, steps, budget int) {
		d, err := e.Evaluate(tool, cost, steps, budget)
		if err != nil {
			return
		}
		if d.Outcome == "" {
			t.Fatal("empty outcome")
		}
	})
}
