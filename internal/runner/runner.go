// Package runner drives tasks through the agent state machine, gating every
// proposed action through the policy engine and recording an append-only trace.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/guardsim/internal/catalog"
	"github.com/ppiankov/guardsim/internal/model"
	"github.com/ppiankov/guardsim/internal/policy"
	"github.com/ppiankov/guardsim/internal/toolsim"
)

// Recorder receives every trace entry of a finished task, in trace order.
type Recorder interface {
	RecordStep(runID, policyHash string, step model.ExecutionStep) error
}

// Runner executes tasks under one catalog and policy. Safe for concurrent use.
type Runner struct {
	engine      *policy.Engine
	policy      *model.Policy
	policyHash  string
	bindings    toolsim.Bindings
	clock       func() time.Time
	logger      *slog.Logger
	recorder    Recorder
	concurrency int
	runID       string
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock sets the time source used for trace timestamps.
// The clock must be safe for concurrent use when concurrency > 1.
func WithClock(clock func() time.Time) Option {
	return func(r *Runner) { r.clock = clock }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithRecorder attaches a persistent decision log.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithConcurrency sets how many tasks RunAll executes at once. Values below 1 mean 1.
func WithConcurrency(n int) Option {
	return func(r *Runner) { r.concurrency = n }
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(r *Runner) { r.runID = id }
}

// New returns a runner. bindings must cover every catalog tool.
func New(cat *catalog.Catalog, pol *model.Policy, bindings toolsim.Bindings, opts ...Option) *Runner {
	r := &Runner{
		engine:      policy.NewEngine(cat, pol),
		policy:      pol,
		bindings:    bindings,
		clock:       time.Now,
		logger:      slog.Default(),
		concurrency: 1,
	}
	// Hashing a decoded policy cannot fail.
	r.policyHash, _ = policy.Hash(pol)
	for _, opt := range opts {
		opt(r)
	}
	if r.concurrency < 1 {
		r.concurrency = 1
	}
	return r
}

// Engine returns the runner's policy engine.
func (r *Runner) Engine() *policy.Engine { return r.engine }

// PolicyHash returns the canonical hash of the runner's policy.
func (r *Runner) PolicyHash() string { return r.policyHash }

// taskRun owns the state and ordered log of one task. Never shared.
type taskRun struct {
	r      *Runner
	task   model.Task
	state  model.RunState
	seq    int
	steps  []model.ExecutionStep
	viols  []model.Violation
	logger *slog.Logger
}

func (tr *taskRun) transition(ev Event) error {
	next, err := Transition(tr.state.AgentState, ev)
	if err != nil {
		return fmt.Errorf("task %s: %w", tr.task.TaskID, err)
	}
	tr.state.AgentState = next
	return nil
}

func (tr *taskRun) append(action *model.Action, result *model.ToolResult, decision *model.Decision, outcome model.StepOutcome) model.ExecutionStep {
	tr.seq++
	step := model.ExecutionStep{
		Sequence:        tr.seq,
		Timestamp:       model.FormatTime(tr.r.clock()),
		TaskID:          tr.task.TaskID,
		AgentState:      tr.state.AgentState,
		StepsTaken:      tr.state.StepsTaken,
		RemainingBudget: tr.state.RemainingBudget,
		ActionAttempted: action,
		ToolResult:      result,
		PolicyDecision:  decision,
		Outcome:         outcome,
	}
	tr.steps = append(tr.steps, step)
	return step
}

// RunTask executes one task from a fresh RunState until it completes or halts.
// Policy violations and approval gates are data in the result, not errors.
// An error means the run itself is broken (unknown allowed tool, illegal transition).
func (r *Runner) RunTask(ctx context.Context, t model.Task) (TaskResult, error) {
	tr := &taskRun{
		r:      r,
		task:   t,
		state:  model.NewRunState(r.policy),
		logger: r.logger.With("task_id", t.TaskID),
	}
	tr.append(nil, nil, nil, model.StepStarted)

	for i := range t.ExpectedActions {
		action := t.ExpectedActions[i]
		if err := tr.transition(EventNextAction); err != nil {
			return TaskResult{}, err
		}

		decision, err := r.engine.EvaluateState(action.ToolName, action.Cost, tr.state)
		if err != nil {
			return TaskResult{}, fmt.Errorf("task %s action %d: %w", t.TaskID, i+1, err)
		}
		ev, err := EventFor(decision.Outcome)
		if err != nil {
			return TaskResult{}, err
		}
		if err := tr.transition(ev); err != nil {
			return TaskResult{}, err
		}
		tr.logger.Debug("action evaluated",
			"tool", action.ToolName,
			"cost", action.Cost,
			"outcome", decision.Outcome,
			"steps_taken", tr.state.StepsTaken,
			"remaining_budget", tr.state.RemainingBudget,
		)

		if decision.Outcome != model.Approved {
			tr.halt(&action, decision)
			return tr.result(), nil
		}

		// ACT: counters move only on approval.
		tr.state.StepsTaken++
		tr.state.RemainingBudget -= action.Cost
		result := r.bindings.Invoke(ctx, action.ToolName, action.Params)
		if result.Status == model.ToolFailure {
			tr.logger.Warn("simulated tool failed", "tool", action.ToolName, "error", result.Error)
		}
		tr.append(&action, &result, &decision, model.StepExecuted)

		if err := tr.transition(EventExecuted); err != nil {
			return TaskResult{}, err
		}
	}

	if err := tr.transition(EventNoMoreActions); err != nil {
		return TaskResult{}, err
	}
	tr.append(nil, nil, nil, model.StepCompleted)
	return tr.result(), nil
}

func (tr *taskRun) halt(action *model.Action, decision model.Decision) {
	outcome := model.StepDenied
	resolution := tr.r.policy.EscalationRule
	if decision.Outcome == model.RequiresApproval {
		outcome = model.StepRequiresApproval
		resolution = model.PendingApprovalResolution
	}
	step := tr.append(action, nil, &decision, outcome)
	for _, f := range decision.Violations {
		tr.viols = append(tr.viols, model.Violation{
			TaskID:          tr.task.TaskID,
			Timestamp:       step.Timestamp,
			Type:            f.Type,
			Severity:        f.Severity,
			Message:         f.Message,
			ActionAttempted: action,
			Resolution:      resolution,
		})
	}
	tr.logger.Info("task halted", "state", tr.state.AgentState, "tool", action.ToolName, "reason", decision.Message)
}

func (tr *taskRun) result() TaskResult {
	if tr.viols == nil {
		tr.viols = []model.Violation{}
	}
	return TaskResult{
		TaskID:     tr.task.TaskID,
		FinalState: tr.state.AgentState,
		State:      tr.state,
		Steps:      tr.steps,
		Violations: tr.viols,
	}
}

// RunAll executes every task independently and merges their logs in
// task-definition order, so the merged trace does not depend on concurrency.
func (r *Runner) RunAll(ctx context.Context, tasks []model.Task) (*RunResult, error) {
	runID := r.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	res := &RunResult{
		RunID:      runID,
		PolicyHash: r.policyHash,
		StartedAt:  model.FormatTime(r.clock()),
	}
	logger := r.logger.With("run_id", runID)
	logger.Info("run started", "tasks", len(tasks), "concurrency", r.concurrency)

	results := make([]TaskResult, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i := range tasks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tres, err := r.RunTask(gctx, tasks[i])
			if err != nil {
				return err
			}
			results[i] = tres
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res.Tasks = results
	res.FinishedAt = model.FormatTime(r.clock())

	if r.recorder != nil {
		for _, step := range res.Trace() {
			if err := r.recorder.RecordStep(runID, r.policyHash, step); err != nil {
				return nil, fmt.Errorf("failed to record decision: %w", err)
			}
		}
	}

	c := res.Counts()
	logger.Info("run finished",
		"completed", c.Completed,
		"violations", c.Violations,
		"approvals", c.Approvals,
		"tool_failures", c.ToolFailures,
	)
	return res, nil
}
