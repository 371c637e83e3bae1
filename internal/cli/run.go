package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/guardsim/internal/runner"
)

var (
	runInputs inputFlags
	runFormat string
)

func init() {
	rootCmd.AddCommand(runCmd)
	runInputs.register(runCmd, true)
	runCmd.Flags().StringVarP(&runFormat, "format", "f", "text", "Output format (text|json)")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every task under the policy and write the evidence pack",
	Long: "Loads and validates all inputs, runs each task through the agent state\n" +
		"machine, then writes the audit trail, executive summary and evidence\n" +
		"manifest. Refuses to start when any input is missing or invalid.",
	RunE: runRun,
}

// runSummary is the JSON form of a finished run.
type runSummary struct {
	RunID        string          `json:"run_id"`
	Location     string          `json:"location"`
	PolicyHash   string          `json:"policy_hash"`
	ManifestHash string          `json:"manifest_hash"`
	Counts       runner.Counts   `json:"counts"`
	Tasks        []taskBreakdown `json:"tasks"`
}

type taskBreakdown struct {
	TaskID          string `json:"task_id"`
	FinalState      string `json:"final_state"`
	StepsTaken      int    `json:"steps_taken"`
	RemainingBudget int    `json:"remaining_budget"`
}

func runRun(cmd *cobra.Command, args []string) error {
	snap, _, err := runInputs.load()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	out, err := executeRun(ctx, snap)
	if err != nil {
		return err
	}
	return printRun(out, runFormat)
}

func summarize(out *runOutcome) runSummary {
	s := runSummary{
		RunID:        out.Result.RunID,
		Location:     out.Report.Location,
		PolicyHash:   out.Result.PolicyHash,
		ManifestHash: out.Report.ManifestHash,
		Counts:       out.Result.Counts(),
		Tasks:        make([]taskBreakdown, 0, len(out.Result.Tasks)),
	}
	for _, t := range out.Result.Tasks {
		s.Tasks = append(s.Tasks, taskBreakdown{
			TaskID:          t.TaskID,
			FinalState:      string(t.FinalState),
			StepsTaken:      t.State.StepsTaken,
			RemainingBudget: t.State.RemainingBudget,
		})
	}
	return s
}

func printRun(out *runOutcome, format string) error {
	s := summarize(out)
	if format == "json" {
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Run ID:    %s\n", s.RunID)
	fmt.Printf("Artifacts: %s\n", s.Location)
	fmt.Printf("Policy:    %s\n", s.PolicyHash)
	fmt.Printf("Manifest:  %s\n", s.ManifestHash)
	fmt.Println()
	fmt.Printf("Tasks: %d  Completed: %d  Violations: %d  Approval required: %d  Tool failures: %d\n",
		s.Counts.Tasks, s.Counts.Completed, s.Counts.Violations, s.Counts.Approvals, s.Counts.ToolFailures)
	fmt.Println()
	fmt.Printf("%-20s %-20s %6s %8s\n", "TASK", "FINAL STATE", "STEPS", "BUDGET")
	for _, t := range s.Tasks {
		fmt.Printf("%-20s %-20s %6d %8d\n", t.TaskID, t.FinalState, t.StepsTaken, t.RemainingBudget)
	}
	return nil
}
