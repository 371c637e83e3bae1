package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/guardsim/internal/model"
)

// --- Input/Output types ---

// CheckInput defines parameters for the guardsim_check tool.
type CheckInput struct {
	Tool            string `json:"tool" jsonschema:"catalog tool name"`
	Cost            int    `json:"cost" jsonschema:"declared cost of the action"`
	StepsTaken      int    `json:"steps_taken,omitempty" jsonschema:"approved actions already taken in the task"`
	RemainingBudget *int   `json:"remaining_budget,omitempty" jsonschema:"budget left in the task, defaults to the policy budget"`
}

// CheckOutput contains the policy decision.
type CheckOutput struct {
	Outcome          string          `json:"outcome"`
	Message          string          `json:"message,omitempty"`
	ApprovalRequired bool            `json:"approval_required"`
	Violations       []model.Finding `json:"violations"`
}

// ToolsInput is empty.
type ToolsInput struct{}

// ToolItem describes one catalog tool.
type ToolItem struct {
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	AccessLevel      string `json:"access_level"`
	RiskClass        string `json:"risk_class"`
	Allowed          bool   `json:"allowed"`
	ApprovalRequired bool   `json:"approval_required"`
}

// ToolsOutput lists the catalog.
type ToolsOutput struct {
	Tools []ToolItem `json:"tools"`
}

// RunTaskInput defines parameters for the guardsim_run_task tool.
type RunTaskInput struct {
	TaskID string `json:"task_id" jsonschema:"task identifier from the task definitions"`
}

// RunTaskOutput is the result of one task.
type RunTaskOutput struct {
	RunID           string                `json:"run_id"`
	TaskID          string                `json:"task_id"`
	FinalState      string                `json:"final_state"`
	StepsTaken      int                   `json:"steps_taken"`
	RemainingBudget int                   `json:"remaining_budget"`
	Steps           []model.ExecutionStep `json:"steps"`
	Violations      []model.Violation     `json:"violations"`
}

// --- Handlers ---

func (s *Server) handleCheck(ctx context.Context, req *mcpsdk.CallToolRequest, input CheckInput) (*mcpsdk.CallToolResult, CheckOutput, error) {
	remaining := s.snap.AgentPolicy.BudgetLimit
	if input.RemainingBudget != nil {
		remaining = *input.RemainingBudget
	}
	if err := checkCounters(input.Cost, input.StepsTaken, remaining); err != nil {
		return nil, CheckOutput{}, err
	}
	decision, err := s.runner.Engine().Evaluate(input.Tool, input.Cost, input.StepsTaken, remaining)
	if err != nil {
		return nil, CheckOutput{}, err
	}
	s.logger.Debug("mcp check", "tool", input.Tool, "cost", input.Cost, "outcome", decision.Outcome)

	out := CheckOutput{
		Outcome:          string(decision.Outcome),
		Message:          decision.Message,
		ApprovalRequired: decision.ApprovalRequired,
		Violations:       decision.Violations,
	}
	if decision.Outcome != model.Approved {
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}
	return nil, out, nil
}

// checkCounters rejects counter values no task run can produce.
func checkCounters(cost, stepsTaken, remaining int) error {
	switch {
	case cost < 0:
		return fmt.Errorf("invalid cost %d: must be >= 0", cost)
	case stepsTaken < 0:
		return fmt.Errorf("invalid steps_taken %d: must be >= 0", stepsTaken)
	case remaining < 0:
		return fmt.Errorf("invalid remaining_budget %d: must be >= 0", remaining)
	}
	return nil
}

func (s *Server) handleTools(ctx context.Context, req *mcpsdk.CallToolRequest, input ToolsInput) (*mcpsdk.CallToolResult, ToolsOutput, error) {
	pol := s.snap.AgentPolicy
	out := ToolsOutput{Tools: []ToolItem{}}
	for _, t := range s.snap.Catalog().Tools() {
		out.Tools = append(out.Tools, ToolItem{
			Name:             t.Name,
			Description:      t.Description,
			AccessLevel:      string(t.AccessLevel),
			RiskClass:        string(t.RiskClass),
			Allowed:          pol.Allows(t.Name),
			ApprovalRequired: pol.ApprovalGates.Requires(t),
		})
	}
	return nil, out, nil
}

func (s *Server) handleRunTask(ctx context.Context, req *mcpsdk.CallToolRequest, input RunTaskInput) (*mcpsdk.CallToolResult, RunTaskOutput, error) {
	var task *model.Task
	for i := range s.snap.TaskDefinitions {
		if s.snap.TaskDefinitions[i].TaskID == input.TaskID {
			task = &s.snap.TaskDefinitions[i]
			break
		}
	}
	if task == nil {
		return nil, RunTaskOutput{}, fmt.Errorf("unknown task %q", input.TaskID)
	}

	res, err := s.runner.RunAll(ctx, []model.Task{*task})
	if err != nil {
		return nil, RunTaskOutput{}, err
	}
	tr := res.Tasks[0]
	out := RunTaskOutput{
		RunID:           res.RunID,
		TaskID:          tr.TaskID,
		FinalState:      string(tr.FinalState),
		StepsTaken:      tr.State.StepsTaken,
		RemainingBudget: tr.State.RemainingBudget,
		Steps:           tr.Steps,
		Violations:      tr.Violations,
	}
	if tr.FinalState != model.StateComplete {
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}
	return nil, out, nil
}
