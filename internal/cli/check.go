package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/guardsim/internal/catalog"
	"github.com/ppiankov/guardsim/internal/policy"
	"github.com/ppiankov/guardsim/internal/scenario"
)

var (
	checkScenario string
	checkInputs   inputFlags
	checkFormat   string
)

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkScenario, "scenario", "", "Glob pattern for scenario YAML files (required)")
	checkInputs.register(checkCmd, false)
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "Output format (text|json)")
	checkCmd.MarkFlagRequired("scenario")
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run policy assertions from scenario files",
	Long: "Loads scenario YAML files matching a glob pattern, evaluates each\n" +
		"proposed action against the policy engine, and reports pass/fail.\n\n" +
		"Exit code 0 if all cases pass, 1 if any fail.\n" +
		"Use in CI to gate policy changes.",
	RunE: runCheck,
}

func loadEngine(f *inputFlags) (*policy.Engine, error) {
	paths := f.paths()
	cat, err := catalog.Load(paths.Tools)
	if err != nil {
		return nil, err
	}
	pol, err := policy.LoadConfig(paths.Policy)
	if err != nil {
		return nil, err
	}
	if err := policy.Validate(pol, cat); err != nil {
		return nil, fmt.Errorf("%s: %w", paths.Policy, err)
	}
	return policy.NewEngine(cat, pol), nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	matches, err := filepath.Glob(checkScenario)
	if err != nil {
		return fmt.Errorf("invalid glob pattern: %w", err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("no scenario files match pattern: %s", checkScenario)
	}

	engine, err := loadEngine(&checkInputs)
	if err != nil {
		return err
	}

	var results []*scenario.RunResult
	for _, path := range matches {
		r, err := scenario.LoadAndRun(path, engine)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		results = append(results, r)
	}

	switch checkFormat {
	case "json":
		out, err := scenario.FormatJSON(results)
		if err != nil {
			return err
		}
		fmt.Println(out)
	default:
		fmt.Print(scenario.FormatText(results))
	}

	for _, r := range results {
		if r.Failed > 0 {
			os.Exit(1)
		}
	}
	return nil
}
