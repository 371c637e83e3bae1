// Package scenario runs policy regression cases against the policy engine.
package scenario

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/guardsim/internal/model"
	"github.com/ppiankov/guardsim/internal/policy"
)

// aliases lets scenario files use short outcome names.
var aliases = map[string]model.Outcome{
	"approved":          model.Approved,
	"allow":             model.Approved,
	"denied_violation":  model.DeniedViolation,
	"deny":              model.DeniedViolation,
	"violation":         model.DeniedViolation,
	"requires_approval": model.RequiresApproval,
	"approval":          model.RequiresApproval,
}

func normalizeExpect(s string) string {
	if o, ok := aliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return string(o)
	}
	return strings.ToUpper(s)
}

// Run evaluates all cases in a scenario against the engine.
// Each case starts from its own counters (cases are independent).
func Run(s *Scenario, engine *policy.Engine) *RunResult {
	result := &RunResult{
		Name:  s.Name,
		Total: len(s.Cases),
	}
	budget := engine.Policy().BudgetLimit

	for i, c := range s.Cases {
		remaining := budget
		if c.RemainingBudget != nil {
			remaining = *c.RemainingBudget
		}

		cr := CaseResult{
			Index:    i + 1,
			Tool:     c.Tool,
			Cost:     c.Cost,
			Expected: normalizeExpect(c.Expect),
		}

		decision, err := engine.Evaluate(c.Tool, c.Cost, c.StepsTaken, remaining)
		if err != nil {
			cr.Actual = "ERROR"
			cr.Reason = err.Error()
		} else {
			cr.Actual = string(decision.Outcome)
			cr.Reason = decision.Message
			if len(decision.Violations) > 0 {
				cr.Violation = string(decision.Violations[0].Type)
			}
		}

		cr.Passed = cr.Actual == cr.Expected &&
			(c.ExpectViolation == "" || strings.EqualFold(c.ExpectViolation, cr.Violation))
		if cr.Passed {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Cases = append(result.Cases, cr)
	}

	return result
}

// Load parses a scenario YAML file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = path
	}
	return &s, nil
}

// LoadAndRun loads a scenario file and runs it against engine.
func LoadAndRun(path string, engine *policy.Engine) (*RunResult, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	result := Run(s, engine)
	result.File = path
	return result, nil
}
