package sim

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/guardsim/internal/model"
	"github.com/ppiankov/guardsim/internal/policydiff"
)

// TaskChange is one task whose outcome differs under the new policy.
type TaskChange struct {
	TaskID       string           `json:"task_id"`
	OldState     model.AgentState `json:"old_state"`
	NewState     model.AgentState `json:"new_state"`
	OldSteps     int              `json:"old_steps_taken"`
	NewSteps     int              `json:"new_steps_taken"`
	OldRemaining int              `json:"old_remaining_budget"`
	NewRemaining int              `json:"new_remaining_budget"`
	NewReason    string           `json:"new_reason,omitempty"`
}

// SimResult holds the complete simulation output.
type SimResult struct {
	RunLocation   string                 `json:"run_location"`
	PolicyPath    string                 `json:"policy_path"`
	OldPolicyHash string                 `json:"old_policy_hash"`
	NewPolicyHash string                 `json:"new_policy_hash"`
	TotalTasks    int                    `json:"total_tasks"`
	ChangedTasks  int                    `json:"changed_tasks"`
	NewlyBlocked  int                    `json:"newly_blocked"`
	NewlyAllowed  int                    `json:"newly_allowed"`
	PolicyDiff    *policydiff.DiffResult `json:"policy_diff"`
	Changes       []TaskChange           `json:"changes"`
}

// FormatText renders the simulation result as human-readable text.
func FormatText(r *SimResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Simulating %s against %d recorded tasks from %s...\n", r.PolicyPath, r.TotalTasks, r.RunLocation)

	if r.PolicyDiff != nil && r.PolicyDiff.HasChanges {
		b.WriteString("\n")
		d := *r.PolicyDiff
		d.OldPath, d.NewPath = "recorded", r.PolicyPath
		b.WriteString(policydiff.FormatText(&d))
	}

	if len(r.Changes) == 0 {
		b.WriteString("\nNo changes detected.\n")
		return b.String()
	}

	b.WriteString("\n")
	for _, c := range r.Changes {
		fmt.Fprintf(&b, "  CHANGED  %-16s %s → %s  steps %d → %d  budget %d → %d\n",
			c.TaskID, c.OldState, c.NewState, c.OldSteps, c.NewSteps, c.OldRemaining, c.NewRemaining)
		if c.NewReason != "" {
			fmt.Fprintf(&b, "           %s\n", c.NewReason)
		}
	}

	fmt.Fprintf(&b, "\n%d of %d tasks changed.", r.ChangedTasks, r.TotalTasks)
	if r.NewlyBlocked > 0 || r.NewlyAllowed > 0 {
		fmt.Fprintf(&b, " %d newly blocked, %d newly allowed.", r.NewlyBlocked, r.NewlyAllowed)
	}
	b.WriteString("\n")

	return b.String()
}

// FormatJSON renders the simulation result as JSON.
func FormatJSON(r *SimResult) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal sim result: %w", err)
	}
	return string(data), nil
}
