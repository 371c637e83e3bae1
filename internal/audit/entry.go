package audit

import "github.com/ppiankov/guardsim/internal/model"

// AuditEntry is one line in the hash-chained JSONL decision log.
// All fields are scalars (no map[string]any) to guarantee deterministic
// json.Marshal field order for reproducible hashing.
type AuditEntry struct {
	Timestamp       string `json:"ts"`
	RunID           string `json:"run_id"`
	TaskID          string `json:"task_id"`
	Seq             int    `json:"seq"`
	AgentState      string `json:"agent_state"`
	Event           string `json:"event"`
	Tool            string `json:"tool,omitempty"`
	Cost            int    `json:"cost"`
	Decision        string `json:"decision,omitempty"`
	Reason          string `json:"reason,omitempty"`
	StepsTaken      int    `json:"steps_taken"`
	RemainingBudget int    `json:"remaining_budget"`
	PolicyHash      string `json:"policy_hash"`
	PrevHash        string `json:"prev_hash"`
}

// FromStep flattens one execution step into an audit entry. PrevHash is left empty.
func FromStep(runID, policyHash string, step model.ExecutionStep) AuditEntry {
	e := AuditEntry{
		Timestamp:       step.Timestamp,
		RunID:           runID,
		TaskID:          step.TaskID,
		Seq:             step.Sequence,
		AgentState:      string(step.AgentState),
		Event:           string(step.Outcome),
		StepsTaken:      step.StepsTaken,
		RemainingBudget: step.RemainingBudget,
		PolicyHash:      policyHash,
	}
	if step.ActionAttempted != nil {
		e.Tool = step.ActionAttempted.ToolName
		e.Cost = step.ActionAttempted.Cost
	}
	if step.PolicyDecision != nil {
		e.Decision = string(step.PolicyDecision.Outcome)
		e.Reason = step.PolicyDecision.Message
	}
	return e
}

// FromSteps converts a whole trace.
func FromSteps(runID, policyHash string, steps []model.ExecutionStep) []AuditEntry {
	out := make([]AuditEntry, len(steps))
	for i, s := range steps {
		out[i] = FromStep(runID, policyHash, s)
	}
	return out
}
