package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateInputs inputFlags

func init() {
	rootCmd.AddCommand(validateCmd)
	validateInputs.register(validateCmd, true)
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the run inputs without running anything",
	Long: "Loads the tool registry, agent policy and task definitions, checks them\n" +
		"against their schemas and against each other, and reports the first error\n" +
		"by file and field.",
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	snap, warnings, err := validateInputs.load()
	if err != nil {
		return err
	}
	printWarnings(warnings)

	fmt.Printf("OK: %d tools, %d tasks\n", snap.Catalog().Len(), len(snap.TaskDefinitions))
	fmt.Printf("Policy: %s\n", snap.PolicyHash())
	return nil
}
