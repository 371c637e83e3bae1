package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/guardsim/internal/watch"
)

var (
	watchInputs   inputFlags
	watchDebounce time.Duration
	watchFormat   string
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchInputs.register(watchCmd, true)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "Quiet period before re-running after a change")
	watchCmd.Flags().StringVarP(&watchFormat, "format", "f", "text", "Output format (text|json)")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the tasks whenever an input file changes",
	Long: "Runs once, then watches the tool registry, agent policy and task\n" +
		"definitions. Each settled change reloads the inputs and writes a new\n" +
		"evidence pack. Invalid inputs are reported and the previous run stands.",
	RunE: runWatch,
}

func watchPass(ctx context.Context) error {
	snap, _, err := watchInputs.load()
	if err != nil {
		return err
	}
	out, err := executeRun(ctx, snap)
	if err != nil {
		return err
	}
	if err := printRun(out, watchFormat); err != nil {
		return err
	}
	fmt.Println()
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	if err := watchPass(ctx); err != nil {
		slog.Error("initial run failed", "error", err)
	}

	p := watchInputs.paths()
	w, err := watch.New([]string{p.Tools, p.Policy, p.Tasks}, watchPass,
		watch.WithDebounce(watchDebounce),
		watch.WithLogger(slog.Default()),
	)
	if err != nil {
		return err
	}
	slog.Info("watching inputs", "tools", p.Tools, "policy", p.Policy, "tasks", p.Tasks)
	return w.Run(ctx)
}
