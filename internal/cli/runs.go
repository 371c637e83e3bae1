package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/guardsim/internal/history"
)

var (
	runsLimit  int
	runsFormat string
)

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Maximum number of runs to show")
	runsCmd.Flags().StringVarP(&runsFormat, "format", "f", "text", "Output format (text|json)")
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs, newest first",
	RunE:  runRuns,
}

func runRuns(cmd *cobra.Command, args []string) error {
	records := []history.RunRecord{}
	if _, err := os.Stat(settings.HistoryPath()); err == nil {
		h, err := history.Open(settings.HistoryPath())
		if err != nil {
			return err
		}
		defer h.Close()
		if records, err = h.List(context.Background(), runsLimit); err != nil {
			return err
		}
	}

	if runsFormat == "json" {
		out, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(records) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}
	fmt.Printf("%-36s  %-24s  %5s  %9s  %10s  %9s  %s\n",
		"RUN ID", "CREATED", "TASKS", "COMPLETED", "VIOLATIONS", "APPROVALS", "LOCATION")
	for _, r := range records {
		fmt.Printf("%-36s  %-24s  %5d  %9d  %10d  %9d  %s\n",
			r.RunID, r.CreatedAt, r.Tasks, r.Completed, r.Violations, r.Approvals, r.Location)
	}
	return nil
}
