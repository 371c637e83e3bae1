package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/ppiankov/guardsim/internal/artifact"
	"github.com/ppiankov/guardsim/internal/audit"
	"github.com/ppiankov/guardsim/internal/evidence"
	"github.com/ppiankov/guardsim/internal/history"
	"github.com/ppiankov/guardsim/internal/runner"
	"github.com/ppiankov/guardsim/internal/snapshot"
)

// runOutcome is what one pass of the run pipeline produced.
type runOutcome struct {
	Result *runner.RunResult
	Report *evidence.Report
}

// executeRun runs every task of snap, writes the evidence pack to the
// configured store and indexes the run.
func executeRun(ctx context.Context, snap *snapshot.Snapshot) (*runOutcome, error) {
	runID := uuid.NewString()
	logger := slog.Default().With("run_id", runID)

	opts := []runner.Option{
		runner.WithRunID(runID),
		runner.WithConcurrency(settings.Concurrency),
		runner.WithLogger(slog.Default()),
	}
	if settings.AuditLog != "" {
		decisionLog, err := audit.Open(settings.AuditLog)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		defer closeLogged(logger, "audit log", decisionLog)
		opts = append(opts, runner.WithRecorder(decisionLog))
	}

	r := runner.New(snap.Catalog(), snap.AgentPolicy, snap.Bindings(), opts...)
	result, err := r.RunAll(ctx, snap.TaskDefinitions)
	if err != nil {
		return nil, fmt.Errorf("run failed: %w", err)
	}

	store, err := artifact.NewStore(ctx, settings.ArtifactConfig(), runID)
	if err != nil {
		return nil, fmt.Errorf("open artifact store: %w", err)
	}
	report, err := evidence.NewBuilder(store, evidence.WithLogger(logger)).Build(ctx, snap, result, r.PolicyHash())
	if err != nil {
		return nil, fmt.Errorf("write evidence: %w", err)
	}

	// The evidence pack is complete at this point; a broken index only costs lookup by id.
	if err := recordRun(ctx, result, report); err != nil {
		logger.Warn("failed to index run", "error", err)
	}
	return &runOutcome{Result: result, Report: report}, nil
}

// closeLogged closes c and reports a failure as a warning; by then the run
// result is already decided.
func closeLogged(logger *slog.Logger, what string, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Warn("failed to close "+what, "error", err)
	}
}

func recordRun(ctx context.Context, result *runner.RunResult, report *evidence.Report) error {
	h, err := history.Open(settings.HistoryPath())
	if err != nil {
		return err
	}
	defer h.Close()

	c := result.Counts()
	return h.Record(ctx, history.RunRecord{
		RunID:        result.RunID,
		CreatedAt:    report.GeneratedAt,
		Location:     report.Location,
		Tasks:        c.Tasks,
		Completed:    c.Completed,
		Violations:   c.Violations,
		Approvals:    c.Approvals,
		PolicyHash:   result.PolicyHash,
		ManifestHash: report.ManifestHash,
	})
}

// openRun resolves a run reference: an s3:// location, a run directory,
// or a run id recorded in the history index.
func openRun(ctx context.Context, ref string) (artifact.Store, error) {
	if strings.HasPrefix(ref, "s3://") {
		return artifact.Open(ctx, ref, settings.Storage.S3)
	}
	if info, err := os.Stat(ref); err == nil && info.IsDir() {
		return artifact.OpenFileStore(ref)
	}

	notFound := fmt.Errorf("run %q not found: not a directory, s3:// location or recorded run id", ref)
	if _, err := os.Stat(settings.HistoryPath()); err != nil {
		return nil, notFound
	}
	h, err := history.Open(settings.HistoryPath())
	if err != nil {
		return nil, err
	}
	defer h.Close()

	rec, err := h.Get(ctx, ref)
	if errors.Is(err, history.ErrNotFound) {
		return nil, notFound
	}
	if err != nil {
		return nil, err
	}
	return artifact.Open(ctx, rec.Location, settings.Storage.S3)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nShutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
