package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/guardsim/internal/audit"
	guardmcp "github.com/ppiankov/guardsim/internal/mcp"
)

var mcpInputs inputFlags

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpInputs.register(mcpCmd, true)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server for agent integration",
	Long: "Runs guardsim as an MCP (Model Context Protocol) server over stdio.\n" +
		"Exposes guardsim_check, guardsim_tools and guardsim_run_task over the\n" +
		"loaded inputs. Decisions are appended to audit_log when it is set.",
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	snap, _, err := mcpInputs.load()
	if err != nil {
		return err
	}

	cfg := guardmcp.Config{
		Snapshot: snap,
		Logger:   slog.Default(),
		Version:  version,
	}
	if settings.AuditLog != "" {
		decisionLog, err := audit.Open(settings.AuditLog)
		if err != nil {
			return fmt.Errorf("open audit log: %w", err)
		}
		defer decisionLog.Close()
		cfg.Recorder = decisionLog
	}

	srv, err := guardmcp.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Fprintln(os.Stderr, "guardsim MCP server running on stdio")
	fmt.Fprintf(os.Stderr, "Tools: %d  Tasks: %d  Policy: %s\n",
		snap.Catalog().Len(), len(snap.TaskDefinitions), snap.PolicyHash())
	fmt.Fprintln(os.Stderr)

	return srv.Run(ctx)
}
