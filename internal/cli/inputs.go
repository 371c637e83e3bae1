package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/guardsim/internal/snapshot"
	"github.com/ppiankov/guardsim/internal/toolsim"
)

// inputFlags locate the run inputs: a directory with the default file
// names, optionally overridden per file.
type inputFlags struct {
	dir    string
	tools  string
	policy string
	tasks  string
}

func (f *inputFlags) register(cmd *cobra.Command, withTasks bool) {
	cmd.Flags().StringVarP(&f.dir, "dir", "d", "", "Directory holding the input files (default input_dir setting)")
	cmd.Flags().StringVar(&f.tools, "tools", "", "Path to the tool registry (overrides --dir)")
	cmd.Flags().StringVar(&f.policy, "policy", "", "Path to the agent policy (overrides --dir)")
	if withTasks {
		cmd.Flags().StringVar(&f.tasks, "tasks", "", "Path to the task definitions (overrides --dir)")
	}
}

func (f *inputFlags) paths() snapshot.Paths {
	dir := f.dir
	if dir == "" {
		dir = settings.InputDir
	}
	p := snapshot.Resolve(dir)
	if f.tools != "" {
		p.Tools = f.tools
	}
	if f.policy != "" {
		p.Policy = f.policy
	}
	if f.tasks != "" {
		p.Tasks = f.tasks
	}
	return p
}

// load reads and cross-validates all inputs. Nothing runs unless it succeeds.
func (f *inputFlags) load() (*snapshot.Snapshot, []string, error) {
	snap, warnings, err := snapshot.Load(f.paths(), toolsim.Builtin())
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	for _, w := range warnings {
		slog.Warn("task definition warning", "detail", w)
	}
	return snap, warnings, nil
}

func printWarnings(warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
}
