package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/guardsim/internal/config"
)

var (
	configPath       string
	logLevelOverride string

	// settings is loaded once per invocation, before any command runs.
	settings = config.DefaultConfig()
)

var rootCmd = &cobra.Command{
	Use:   "guardsim",
	Short: "Policy sandbox for agent runtime constraints",
	Long: "Runs simulated agent tasks against a tool catalog and an agent policy,\n" +
		"gates every proposed action through the policy engine, and writes a\n" +
		"tamper-evident evidence pack for each run.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		settings = cfg
		return configureLogger(cfg, logLevelOverride)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Settings file (default ~/.guardsim/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevelOverride, "log-level", "", "Override log level (debug|info|warn|error)")
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	if cerr := sink.close(); cerr != nil {
		fmt.Fprintf(os.Stderr, "warning: close log file: %v\n", cerr)
	}
	if err != nil {
		os.Exit(1)
	}
}
