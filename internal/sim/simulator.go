// Package sim re-runs a recorded run's tasks under a different policy and
// reports which task outcomes change.
package sim

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ppiankov/guardsim/internal/artifact"
	"github.com/ppiankov/guardsim/internal/evidence"
	"github.com/ppiankov/guardsim/internal/model"
	"github.com/ppiankov/guardsim/internal/policy"
	"github.com/ppiankov/guardsim/internal/policydiff"
	"github.com/ppiankov/guardsim/internal/runner"
	"github.com/ppiankov/guardsim/internal/snapshot"
	"github.com/ppiankov/guardsim/internal/toolsim"
)

// Simulate loads the config snapshot of a prior run from store and replays its
// tasks under the policy at policyPath. Both sides are re-run with the same
// simulated tools, so only policy differences can change an outcome.
func Simulate(ctx context.Context, store artifact.Store, policyPath string, reg toolsim.Registry) (*SimResult, error) {
	data, err := store.Get(ctx, evidence.ConfigSnapshotFile)
	if err != nil {
		return nil, fmt.Errorf("load config snapshot: %w", err)
	}
	base, err := snapshot.Decode(data, reg)
	if err != nil {
		return nil, fmt.Errorf("load config snapshot: %w", err)
	}
	pol, err := policy.LoadConfig(policyPath)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}
	next, err := base.WithPolicy(pol, reg)
	if err != nil {
		return nil, fmt.Errorf("policy does not fit the recorded tool registry: %w", err)
	}

	result, err := Compare(ctx, base, next)
	if err != nil {
		return nil, err
	}
	result.RunLocation = store.Location()
	result.PolicyPath = policyPath
	return result, nil
}

// Compare runs the tasks of base under both snapshots' policies.
func Compare(ctx context.Context, base, next *snapshot.Snapshot) (*SimResult, error) {
	oldRun, err := replay(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("replay recorded policy: %w", err)
	}
	newRun, err := replay(ctx, next)
	if err != nil {
		return nil, fmt.Errorf("replay new policy: %w", err)
	}

	result := &SimResult{
		OldPolicyHash: base.PolicyHash(),
		NewPolicyHash: next.PolicyHash(),
		TotalTasks:    len(oldRun.Tasks),
		PolicyDiff:    policydiff.Diff(base.AgentPolicy, next.AgentPolicy),
		Changes:       []TaskChange{},
	}
	for i, o := range oldRun.Tasks {
		n := newRun.Tasks[i]
		if o.FinalState == n.FinalState && o.State == n.State {
			continue
		}
		result.Changes = append(result.Changes, TaskChange{
			TaskID:       o.TaskID,
			OldState:     o.FinalState,
			NewState:     n.FinalState,
			OldSteps:     o.State.StepsTaken,
			NewSteps:     n.State.StepsTaken,
			OldRemaining: o.State.RemainingBudget,
			NewRemaining: n.State.RemainingBudget,
			NewReason:    haltReason(n),
		})
		result.ChangedTasks++
		if o.FinalState == model.StateComplete && n.FinalState != model.StateComplete {
			result.NewlyBlocked++
		}
		if o.FinalState != model.StateComplete && n.FinalState == model.StateComplete {
			result.NewlyAllowed++
		}
	}
	return result, nil
}

var epoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

func replay(ctx context.Context, s *snapshot.Snapshot) (*runner.RunResult, error) {
	r := runner.New(s.Catalog(), s.AgentPolicy, s.Bindings(),
		runner.WithClock(func() time.Time { return epoch }),
		runner.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		runner.WithRunID("simulation"),
	)
	return r.RunAll(ctx, s.TaskDefinitions)
}

func haltReason(t runner.TaskResult) string {
	if len(t.Violations) == 0 {
		return ""
	}
	return t.Violations[len(t.Violations)-1].Message
}
