package runner

import "github.com/ppiankov/guardsim/internal/model"

// TaskResult is the outcome of one task.
type TaskResult struct {
	TaskID     string                `json:"task_id"`
	FinalState model.AgentState      `json:"final_state"`
	State      model.RunState        `json:"state"`
	Steps      []model.ExecutionStep `json:"steps"`
	Violations []model.Violation     `json:"violations"`
}

// RunResult is the outcome of one run over a task batch.
type RunResult struct {
	RunID      string       `json:"run_id"`
	PolicyHash string       `json:"policy_hash"`
	StartedAt  string       `json:"started_at"`
	FinishedAt string       `json:"finished_at"`
	Tasks      []TaskResult `json:"tasks"`
}

// Trace returns every execution step in task-definition order, then sequence.
func (r *RunResult) Trace() []model.ExecutionStep {
	out := []model.ExecutionStep{}
	for _, t := range r.Tasks {
		out = append(out, t.Steps...)
	}
	return out
}

// Violations returns every violation and approval gate in trace order.
func (r *RunResult) Violations() []model.Violation {
	out := []model.Violation{}
	for _, t := range r.Tasks {
		out = append(out, t.Violations...)
	}
	return out
}

// Counts summarizes a run.
type Counts struct {
	Tasks        int `json:"tasks"`
	Completed    int `json:"completed"`
	Violations   int `json:"violations"` // excludes approval gates
	Approvals    int `json:"approvals_required"`
	ToolFailures int `json:"tool_failures"`
}

// Counts tallies task outcomes.
func (r *RunResult) Counts() Counts {
	c := Counts{Tasks: len(r.Tasks)}
	for _, t := range r.Tasks {
		if t.FinalState == model.StateComplete {
			c.Completed++
		}
		for _, v := range t.Violations {
			if v.IsApproval() {
				c.Approvals++
			} else {
				c.Violations++
			}
		}
		for _, s := range t.Steps {
			if s.ToolResult != nil && s.ToolResult.Status == model.ToolFailure {
				c.ToolFailures++
			}
		}
	}
	return c
}

// Task returns the result for taskID.
func (r *RunResult) Task(taskID string) (TaskResult, bool) {
	for _, t := range r.Tasks {
		if t.TaskID == taskID {
			return t, true
		}
	}
	return TaskResult{}, false
}
