package model

import (
	"strings"
	"time"
)

// TimestampFormat is the layout used for every timestamp guardsim records.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// FormatTime renders t in UTC using TimestampFormat.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// AccessLevel classifies what a tool is able to do.
type AccessLevel string

const (
	AccessReadOnly AccessLevel = "read-only"
	AccessWrite    AccessLevel = "write"
	AccessExecute  AccessLevel = "execute"
)

// AccessLevels lists every access level in ascending order of capability.
var AccessLevels = []AccessLevel{AccessReadOnly, AccessWrite, AccessExecute}

// Valid reports whether a is a known access level.
func (a AccessLevel) Valid() bool {
	switch a {
	case AccessReadOnly, AccessWrite, AccessExecute:
		return true
	default:
		return false
	}
}

// ParseAccessLevel normalizes s (case and surrounding space) to an AccessLevel.
// The second result is false when s is not a known level.
func ParseAccessLevel(s string) (AccessLevel, bool) {
	a := AccessLevel(strings.ToLower(strings.TrimSpace(s)))
	return a, a.Valid()
}

// RiskClass classifies how much damage a misused tool can cause.
type RiskClass string

const (
	RiskLow      RiskClass = "low"
	RiskMedium   RiskClass = "medium"
	RiskHigh     RiskClass = "high"
	RiskCritical RiskClass = "critical"
)

// RiskClasses lists every risk class in ascending order.
var RiskClasses = []RiskClass{RiskLow, RiskMedium, RiskHigh, RiskCritical}

// Valid reports whether r is a known risk class.
func (r RiskClass) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	default:
		return false
	}
}

// ParseRiskClass normalizes s to a RiskClass.
func ParseRiskClass(s string) (RiskClass, bool) {
	r := RiskClass(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Tool is one entry of the tool catalog. Immutable for the duration of a run.
type Tool struct {
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description" yaml:"description"`
	AccessLevel AccessLevel `json:"access_level" yaml:"access_level"`
	RiskClass   RiskClass   `json:"risk_class" yaml:"risk_class"`
	BehaviorRef string      `json:"simulated_behavior_ref" yaml:"simulated_behavior_ref"`
}

// ApprovalGates lists the tool attributes that require human sign-off.
type ApprovalGates struct {
	AccessLevels []AccessLevel `json:"access_levels" yaml:"access_levels"`
	RiskClasses  []RiskClass   `json:"risk_classes" yaml:"risk_classes"`
}

// Requires reports whether a tool with the given attributes hits a gate.
func (g ApprovalGates) Requires(tool Tool) bool {
	for _, a := range g.AccessLevels {
		if a == tool.AccessLevel {
			return true
		}
	}
	for _, r := range g.RiskClasses {
		if r == tool.RiskClass {
			return true
		}
	}
	return false
}

// Policy is the set of runtime constraints every proposed action is checked against.
type Policy struct {
	AllowedTools   []string      `json:"allowed_tools" yaml:"allowed_tools"`
	MaxStepsPerRun int           `json:"max_steps_per_run" yaml:"max_steps_per_run"`
	BudgetLimit    int           `json:"budget_limit" yaml:"budget_limit"`
	ApprovalGates  ApprovalGates `json:"approval_gates" yaml:"approval_gates"`
	EscalationRule string        `json:"escalation_rule" yaml:"escalation_rule"`
}

// Allows reports whether toolName is in the allowed tools list.
func (p *Policy) Allows(toolName string) bool {
	for _, t := range p.AllowedTools {
		if t == toolName {
			return true
		}
	}
	return false
}

// Action is a single proposed tool invocation with its declared cost.
type Action struct {
	ToolName string         `json:"tool_name" yaml:"tool_name"`
	Params   map[string]any `json:"params" yaml:"params"`
	Cost     int            `json:"cost" yaml:"cost"`
}

// Task is one compliance scenario: an ordered list of actions the agent will propose.
type Task struct {
	TaskID          string   `json:"task_id" yaml:"task_id"`
	Description     string   `json:"description" yaml:"description"`
	ExpectedActions []Action `json:"expected_actions" yaml:"expected_actions"`
	ExpectedOutcome string   `json:"expected_outcome" yaml:"expected_outcome"`
}

// AgentState is a state of the per-task execution state machine.
type AgentState string

const (
	StateInit             AgentState = "INIT"
	StatePlan             AgentState = "PLAN"
	StateAct              AgentState = "ACT"
	StateReview           AgentState = "REVIEW"
	StateComplete         AgentState = "COMPLETE"
	StateViolation        AgentState = "VIOLATION"
	StateApprovalRequired AgentState = "APPROVAL_REQUIRED"
)

// Terminal reports whether no further transitions are possible from s.
func (s AgentState) Terminal() bool {
	return s == StateComplete || s == StateViolation || s == StateApprovalRequired
}

// Outcome is the policy engine's verdict on one proposed action.
type Outcome string

const (
	Approved         Outcome = "APPROVED"
	DeniedViolation  Outcome = "DENIED_VIOLATION"
	RequiresApproval Outcome = "REQUIRES_APPROVAL"
)

// ViolationType names the check that produced a finding.
type ViolationType string

const (
	ViolationToolPermission   ViolationType = "tool_permission"
	ViolationStepLimit        ViolationType = "step_limit"
	ViolationBudgetLimit      ViolationType = "budget_limit"
	ViolationApprovalRequired ViolationType = "approval_required"
)

// Severity of a finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
)

// Finding is one violation record attached to a Decision.
type Finding struct {
	Type     ViolationType `json:"violation_type"`
	Severity Severity      `json:"severity"`
	Message  string        `json:"message"`
}

// Decision is the output of policy evaluation.
type Decision struct {
	Outcome          Outcome   `json:"outcome"`
	Violations       []Finding `json:"violations"`
	ApprovalRequired bool      `json:"approval_required"`
	Message          string    `json:"message,omitempty"`
}

// ToolStatus is the result status of a simulated tool invocation.
type ToolStatus string

const (
	ToolSuccess ToolStatus = "success"
	ToolFailure ToolStatus = "failure"
)

// ToolResult is the payload returned by a simulated tool.
type ToolResult struct {
	Status ToolStatus     `json:"status"`
	Output map[string]any `json:"output,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// RunState is the mutable state of one task's execution. Never shared across tasks.
type RunState struct {
	AgentState      AgentState `json:"agent_state"`
	StepsTaken      int        `json:"steps_taken"`
	RemainingBudget int        `json:"remaining_budget"`
}

// NewRunState returns the initial state for a task under p.
func NewRunState(p *Policy) RunState {
	return RunState{
		AgentState:      StateInit,
		StepsTaken:      0,
		RemainingBudget: p.BudgetLimit,
	}
}

// StepOutcome describes what happened at one trace entry.
type StepOutcome string

const (
	StepStarted          StepOutcome = "task_started"
	StepExecuted         StepOutcome = "executed"
	StepDenied           StepOutcome = "denied_violation"
	StepRequiresApproval StepOutcome = "requires_approval"
	StepCompleted        StepOutcome = "task_completed"
)

// ExecutionStep is one append-only trace entry. Entries are never mutated after append.
type ExecutionStep struct {
	Sequence        int         `json:"sequence"`
	Timestamp       string      `json:"timestamp"`
	TaskID          string      `json:"task_id"`
	AgentState      AgentState  `json:"agent_state"`
	StepsTaken      int         `json:"steps_taken"`
	RemainingBudget int         `json:"remaining_budget"`
	ActionAttempted *Action     `json:"action_attempted"`
	ToolResult      *ToolResult `json:"tool_result"`
	PolicyDecision  *Decision   `json:"policy_decision"`
	Outcome         StepOutcome `json:"outcome"`
}

// Violation is the audit record derived from a denied or gated step.
type Violation struct {
	TaskID          string        `json:"task_id"`
	Timestamp       string        `json:"timestamp"`
	Type            ViolationType `json:"violation_type"`
	Severity        Severity      `json:"severity"`
	Message         string        `json:"message"`
	ActionAttempted *Action       `json:"action_attempted"`
	Resolution      string        `json:"resolution"`
}

// IsApproval reports whether v records an approval gate rather than a denial.
func (v Violation) IsApproval() bool {
	return v.Type == ViolationApprovalRequired
}

// PendingApprovalResolution is the fixed resolution text for approval gates.
const PendingApprovalResolution = "Pending human approval"
