package evidence

import (
	"fmt"
	"strings"

	"github.com/ppiankov/guardsim/internal/model"
	"github.com/ppiankov/guardsim/internal/runner"
)

// ExecutiveSummary renders the human-readable run report as markdown.
// tasks supplies the expected outcome of each task, when one was declared.
func ExecutiveSummary(pol *model.Policy, tasks []model.Task, result *runner.RunResult, policyHash, generatedAt string) string {
	var b strings.Builder
	c := result.Counts()
	expected := make(map[string]string, len(tasks))
	for _, t := range tasks {
		if t.ExpectedOutcome != "" {
			expected[t.TaskID] = t.ExpectedOutcome
		}
	}

	fmt.Fprintln(&b, "# Executive Summary")
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "- **Run ID:** %s\n", result.RunID)
	fmt.Fprintf(&b, "- **Generated:** %s\n", generatedAt)
	fmt.Fprintf(&b, "- **Started:** %s\n", result.StartedAt)
	fmt.Fprintf(&b, "- **Finished:** %s\n", result.FinishedAt)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "## Totals")
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "| Metric | Count |")
	fmt.Fprintln(&b, "|---|---|")
	fmt.Fprintf(&b, "| Tasks | %d |\n", c.Tasks)
	fmt.Fprintf(&b, "| Completed | %d |\n", c.Completed)
	fmt.Fprintf(&b, "| Violations | %d |\n", c.Violations)
	fmt.Fprintf(&b, "| Approval required | %d |\n", c.Approvals)
	fmt.Fprintf(&b, "| Tool failures | %d |\n", c.ToolFailures)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "## Active Policy")
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "- **Allowed tools:** %s\n", joinOrNone(pol.AllowedTools))
	fmt.Fprintf(&b, "- **Max steps per run:** %d\n", pol.MaxStepsPerRun)
	fmt.Fprintf(&b, "- **Budget limit:** %d\n", pol.BudgetLimit)
	fmt.Fprintf(&b, "- **Approval gates:** access levels %s; risk classes %s\n",
		joinOrNone(accessStrings(pol.ApprovalGates.AccessLevels)),
		joinOrNone(riskStrings(pol.ApprovalGates.RiskClasses)))
	fmt.Fprintf(&b, "- **Escalation rule:** %s\n", pol.EscalationRule)
	fmt.Fprintf(&b, "- **Policy hash:** `%s`\n", policyHash)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "## Task Outcomes")
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "| Task | Final state | Expected | Steps taken | Remaining budget |")
	fmt.Fprintln(&b, "|---|---|---|---|---|")
	for _, t := range result.Tasks {
		exp, ok := expected[t.TaskID]
		if !ok {
			exp = "-"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %d | %d |\n",
			cell(t.TaskID), t.FinalState, cell(exp), t.State.StepsTaken, t.State.RemainingBudget)
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "## Violations")
	fmt.Fprintln(&b)
	viols := result.Violations()
	if len(viols) == 0 {
		fmt.Fprintln(&b, "No violations recorded.")
		return b.String()
	}
	fmt.Fprintln(&b, "| Task | Timestamp | Type | Severity | Message | Attempted action | Resolution |")
	fmt.Fprintln(&b, "|---|---|---|---|---|---|---|")
	for _, v := range viols {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
			cell(v.TaskID), v.Timestamp, v.Type, v.Severity, cell(v.Message),
			cell(describeAction(v.ActionAttempted)), cell(v.Resolution))
	}
	return b.String()
}

func describeAction(a *model.Action) string {
	if a == nil {
		return "-"
	}
	return fmt.Sprintf("%s (cost %d)", a.ToolName, a.Cost)
}

// cell escapes text for a markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func accessStrings(levels []model.AccessLevel) []string {
	out := make([]string, len(levels))
	for i, l := range levels {
		out[i] = string(l)
	}
	return out
}

func riskStrings(classes []model.RiskClass) []string {
	out := make([]string, len(classes))
	for i, r := range classes {
		out[i] = string(r)
	}
	return out
}
