package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/guardsim/internal/audit"
)

var (
	tailLines int

	replayRun    string
	replayTask   string
	replayFrom   string
	replayTo     string
	replayFormat string
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditTailCmd)
	auditCmd.AddCommand(auditReplayCmd)
	auditTailCmd.Flags().IntVarP(&tailLines, "lines", "n", 10, "Number of recent entries to show")
	auditReplayCmd.Flags().StringVar(&replayRun, "run", "", "Only entries of this run id")
	auditReplayCmd.Flags().StringVar(&replayTask, "task", "", "Only entries of this task id")
	auditReplayCmd.Flags().StringVar(&replayFrom, "from", "", "Start time (RFC3339)")
	auditReplayCmd.Flags().StringVar(&replayTo, "to", "", "End time (RFC3339)")
	auditReplayCmd.Flags().StringVarP(&replayFormat, "format", "f", "text", "Output format (text|json)")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Decision log operations",
	Long: "Commands for verifying and inspecting a hash-chained decision log: the\n" +
		"audit_log file every run appends to, or a run's decision_chain.jsonl.",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify <path>",
	Short: "Verify hash chain integrity of a decision log",
	Long:  "Walks the JSONL decision log and validates that every entry's prev_hash\nmatches the SHA-256 of the previous entry. Exits 0 if valid, 1 if tampered.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditVerify,
}

var auditTailCmd = &cobra.Command{
	Use:   "tail <path>",
	Short: "Show recent decision log entries",
	Long:  "Reads the last N entries from the JSONL decision log and pretty-prints them.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditTail,
}

var auditReplayCmd = &cobra.Command{
	Use:   "replay <path>",
	Short: "Replay recorded decisions as a timeline",
	Long:  "Reads the decision log, filters by run, task and time range, and renders\nthe decisions in order with a summary of outcomes.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditReplay,
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	result := audit.Verify(args[0])
	if result.Valid {
		fmt.Printf("OK: %d entries verified\n", result.Lines)
		return nil
	}
	fmt.Fprintf(os.Stderr, "FAILED at line %d: %s\n", result.ErrorLine, result.Error)
	os.Exit(1)
	return nil
}

func runAuditTail(cmd *cobra.Command, args []string) error {
	lines, err := audit.Tail(args[0], tailLines)
	if err != nil {
		return err
	}

	for _, line := range lines {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			fmt.Println(line)
			continue
		}
		out, _ := json.MarshalIndent(entry, "", "  ")
		fmt.Println(string(out))
	}
	return nil
}

func parseTimeFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s time: %w", name, err)
	}
	return t, nil
}

func runAuditReplay(cmd *cobra.Command, args []string) error {
	from, err := parseTimeFlag("from", replayFrom)
	if err != nil {
		return err
	}
	to, err := parseTimeFlag("to", replayTo)
	if err != nil {
		return err
	}

	result, err := audit.Replay(args[0], audit.ReplayFilter{
		RunID:  replayRun,
		TaskID: replayTask,
		From:   from,
		To:     to,
	})
	if err != nil {
		return err
	}

	switch replayFormat {
	case "json":
		out, err := audit.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Println(out)
	default:
		fmt.Print(audit.FormatTimeline(result))
	}
	return nil
}
