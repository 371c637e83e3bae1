// Package mcp exposes the policy engine and task runner as MCP tools over stdio.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/guardsim/internal/runner"
	"github.com/ppiankov/guardsim/internal/snapshot"
)

// Config holds MCP server configuration.
type Config struct {
	Snapshot *snapshot.Snapshot
	// Recorder, when set, receives the trace of every task run through the server.
	Recorder runner.Recorder
	Logger   *slog.Logger
	Version  string
}

// Server wraps the MCP SDK server around one loaded snapshot.
type Server struct {
	mcpServer *mcpsdk.Server
	snap      *snapshot.Snapshot
	runner    *runner.Runner
	logger    *slog.Logger
}

// New creates an MCP server over a validated snapshot.
func New(cfg Config) (*Server, error) {
	if cfg.Snapshot == nil {
		return nil, fmt.Errorf("snapshot is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	opts := []runner.Option{runner.WithLogger(logger)}
	if cfg.Recorder != nil {
		opts = append(opts, runner.WithRecorder(cfg.Recorder))
	}

	s := &Server{
		snap:   cfg.Snapshot,
		runner: runner.New(cfg.Snapshot.Catalog(), cfg.Snapshot.AgentPolicy, cfg.Snapshot.Bindings(), opts...),
		logger: logger,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "guardsim",
			Version: version,
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// registerTools adds all guardsim tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "guardsim_check",
		Description: "Evaluate a proposed tool call against the active policy without executing it (dry-run).",
	}, s.handleCheck)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "guardsim_tools",
		Description: "List the tool catalog with each tool's access level, risk class, and policy status.",
	}, s.handleTools)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "guardsim_run_task",
		Description: "Run one configured task through the agent state machine and return its execution trace.",
	}, s.handleRunTask)
}
