package budget

import (
	"fmt"

	"github.com/ppiankov/guardsim/internal/model"
)

// CheckResult is the outcome of a budget check.
type CheckResult struct {
	Exceeded  bool
	Dimension model.ViolationType // step_limit or budget_limit
	Current   int
	Limit     int
	Reason    string
}

// Check compares usage against limits.
// Checks steps, then budget. Returns the first exceeded dimension.
func Check(usage Usage, limits Limits) CheckResult {
	if usage.StepsTaken >= limits.MaxSteps {
		return CheckResult{
			Exceeded:  true,
			Dimension: model.ViolationStepLimit,
			Current:   usage.StepsTaken,
			Limit:     limits.MaxSteps,
			Reason:    fmt.Sprintf("step limit exceeded: %d steps taken >= %d max_steps_per_run", usage.StepsTaken, limits.MaxSteps),
		}
	}
	if usage.RemainingBudget-usage.ActionCost < 0 {
		return CheckResult{
			Exceeded:  true,
			Dimension: model.ViolationBudgetLimit,
			Current:   usage.ActionCost,
			Limit:     usage.RemainingBudget,
			Reason:    fmt.Sprintf("budget limit exceeded: action cost %d > %d remaining", usage.ActionCost, usage.RemainingBudget),
		}
	}
	return CheckResult{}
}
