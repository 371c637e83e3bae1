package policy

import (
	"errors"
	"fmt"

	"github.com/ppiankov/guardsim/internal/budget"
	"github.com/ppiankov/guardsim/internal/catalog"
	"github.com/ppiankov/guardsim/internal/model"
)

// ErrUnknownTool is returned when an allowed tool has no catalog entry.
// It is distinct from a permission denial.
var ErrUnknownTool = errors.New("tool not found in registry")

// Engine evaluates proposed actions against a catalog and a policy.
// It retains no counters and is safe for concurrent use.
type Engine struct {
	cat    *catalog.Catalog
	policy *model.Policy
	limits budget.Limits
}

// NewEngine returns an engine for the given catalog and policy.
func NewEngine(cat *catalog.Catalog, p *model.Policy) *Engine {
	return &Engine{
		cat:    cat,
		policy: p,
		limits: budget.Limits{MaxSteps: p.MaxStepsPerRun},
	}
}

// Policy returns the policy the engine evaluates against.
func (e *Engine) Policy() *model.Policy { return e.policy }

// Catalog returns the engine's tool catalog.
func (e *Engine) Catalog() *catalog.Catalog { return e.cat }

// Evaluate scores one proposed action. All counters are supplied by the caller.
//
// Evaluation order (must not be changed, first hit wins):
//  1. Tool permission: not in allowed_tools, deny (critical)
//  2. Step limit: steps_taken >= max_steps_per_run, deny (high)
//  3. Budget limit: remaining_budget - cost < 0, deny (high)
//  4. Approval gate: access level or risk class gated, requires approval
//  5. Approved
func (e *Engine) Evaluate(toolName string, actionCost, stepsTaken, remainingBudget int) (model.Decision, error) {
	return e.evaluate(toolName, budget.Usage{StepsTaken: stepsTaken, RemainingBudget: remainingBudget, ActionCost: actionCost})
}

// EvaluateState scores an action of the given cost against a task's live counters.
func (e *Engine) EvaluateState(toolName string, cost int, state model.RunState) (model.Decision, error) {
	return e.evaluate(toolName, budget.Snapshot(state, cost))
}

func (e *Engine) evaluate(toolName string, usage budget.Usage) (model.Decision, error) {
	// Step 1: permission dominates everything, including unknown tools.
	if !e.policy.Allows(toolName) {
		return deny(model.ViolationToolPermission, model.SeverityCritical,
			fmt.Sprintf("tool %q is not in allowed_tools", toolName)), nil
	}

	tool, ok := e.cat.Lookup(toolName)
	if !ok {
		return model.Decision{}, fmt.Errorf("%w: %s", ErrUnknownTool, toolName)
	}

	// Steps 2-3: resource limits, steps before budget.
	if res := budget.Check(usage, e.limits); res.Exceeded {
		return deny(res.Dimension, model.SeverityHigh, res.Reason), nil
	}

	// Step 4: approval gate, only reachable for otherwise legal actions.
	if e.policy.ApprovalGates.Requires(tool) {
		msg := approvalMessage(tool, e.policy.ApprovalGates)
		return model.Decision{
			Outcome: model.RequiresApproval,
			Violations: []model.Finding{{
				Type:     model.ViolationApprovalRequired,
				Severity: model.Severity(tool.RiskClass),
				Message:  msg,
			}},
			ApprovalRequired: true,
			Message:          msg,
		}, nil
	}

	return model.Decision{
		Outcome:    model.Approved,
		Violations: []model.Finding{},
		Message:    fmt.Sprintf("tool %q approved", toolName),
	}, nil
}

func deny(kind model.ViolationType, sev model.Severity, msg string) model.Decision {
	return model.Decision{
		Outcome:    model.DeniedViolation,
		Violations: []model.Finding{{Type: kind, Severity: sev, Message: msg}},
		Message:    msg,
	}
}

func approvalMessage(tool model.Tool, gates model.ApprovalGates) string {
	for _, a := range gates.AccessLevels {
		if a == tool.AccessLevel {
			return fmt.Sprintf("tool %q requires approval due to %s access level", tool.Name, tool.AccessLevel)
		}
	}
	return fmt.Sprintf("tool %q requires approval due to %s risk class", tool.Name, tool.RiskClass)
}
