package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/guardsim/internal/snapshot"
)

var (
	initDir   string
	initForce bool
)

func init() {
	initCmd.Flags().StringVarP(&initDir, "dir", "d", "", "Directory to write the sample inputs to (default input_dir setting)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing input files (reset sample data)")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the sample tool registry, agent policy and task definitions",
	Long: `Writes tool_registry.yaml, agent_policy.yaml and task_definitions.yaml.

The samples cover one completing task, one task stopped at an approval
gate and one task denied for using a tool outside the allow-list.
Existing files are kept unless --force is given.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := initDir
	if dir == "" {
		dir = settings.InputDir
	}

	written, err := snapshot.WriteSamples(dir, initForce)
	if err != nil {
		return err
	}

	fmt.Println("guardsim init complete.")
	fmt.Println()
	fmt.Println("Created:")
	for _, path := range written {
		fmt.Printf("  %s\n", path)
	}
	fmt.Println()

	fmt.Println("Validate:")
	fmt.Printf("  guardsim validate --dir %s\n", dir)
	fmt.Println()
	fmt.Println("Run the sample tasks:")
	fmt.Printf("  guardsim run --dir %s\n", dir)
	return nil
}
