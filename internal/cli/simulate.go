package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/guardsim/internal/sim"
	"github.com/ppiankov/guardsim/internal/toolsim"
)

var (
	simPolicy string
	simFormat string
)

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().StringVar(&simPolicy, "policy", "", "Path to new policy YAML (required)")
	simulateCmd.Flags().StringVarP(&simFormat, "format", "f", "text", "Output format (text|json)")
	simulateCmd.MarkFlagRequired("policy")
}

var simulateCmd = &cobra.Command{
	Use:   "simulate <run>",
	Short: "Re-run a recorded run under a new policy and show outcome diffs",
	Long: "Reads the config snapshot of a recorded run (directory, s3:// location or\n" +
		"run id), runs the same tasks under an alternate policy file, and shows\n" +
		"which tasks changed final state.\n\n" +
		"Use this to preview policy changes before deploying them.",
	Args: cobra.ExactArgs(1),
	RunE: runSimulate,
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store, err := openRun(ctx, args[0])
	if err != nil {
		return err
	}

	result, err := sim.Simulate(ctx, store, simPolicy, toolsim.Builtin())
	if err != nil {
		return err
	}

	switch simFormat {
	case "json":
		out, err := sim.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Println(out)
	default:
		fmt.Print(sim.FormatText(result))
	}
	return nil
}
