package budget

import "github.com/ppiankov/guardsim/internal/model"

// Usage captures one task's consumption at the moment an action is proposed.
type Usage struct {
	StepsTaken      int
	RemainingBudget int
	ActionCost      int
}

// Snapshot reads current usage from a task's RunState for an action of the given cost.
func Snapshot(state model.RunState, cost int) Usage {
	return Usage{
		StepsTaken:      state.StepsTaken,
		RemainingBudget: state.RemainingBudget,
		ActionCost:      cost,
	}
}
