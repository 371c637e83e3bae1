package model

import (
	"testing"
	"time"
)

func TestParseAccessLevelNormalizes(t *testing.T) {
	tests := []struct {
		in   string
		want AccessLevel
		ok   bool
	}{
		{"read-only", AccessReadOnly, true},
		{"  WRITE ", AccessWrite, true},
		{"Execute", AccessExecute, true},
		{"admin", AccessLevel("admin"), false},
		{"", AccessLevel(""), false},
	}
	for _, tt := range tests {
		got, ok := ParseAccessLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseAccessLevel(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseRiskClassNormalizes(t *testing.T) {
	for _, r := range RiskClasses {
		got, ok := ParseRiskClass(" " + string(r) + " ")
		if !ok || got != r {
			t.Errorf("ParseRiskClass(%q) = %q, %v", r, got, ok)
		}
	}
	if _, ok := ParseRiskClass("severe"); ok {
		t.Error("expected severe to be rejected")
	}
}

func TestApprovalGatesRequires(t *testing.T) {
	gates := ApprovalGates{
		AccessLevels: []AccessLevel{AccessExecute},
		RiskClasses:  []RiskClass{RiskCritical},
	}
	tests := []struct {
		name string
		tool Tool
		want bool
	}{
		{"read low", Tool{AccessLevel: AccessReadOnly, RiskClass: RiskLow}, false},
		{"execute low", Tool{AccessLevel: AccessExecute, RiskClass: RiskLow}, true},
		{"write critical", Tool{AccessLevel: AccessWrite, RiskClass: RiskCritical}, true},
		{"write high", Tool{AccessLevel: AccessWrite, RiskClass: RiskHigh}, false},
	}
	for _, tt := range tests {
		if got := gates.Requires(tt.tool); got != tt.want {
			t.Errorf("%s: Requires = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestEmptyGatesNeverRequire(t *testing.T) {
	var gates ApprovalGates
	if gates.Requires(Tool{AccessLevel: AccessExecute, RiskClass: RiskCritical}) {
		t.Error("expected empty gates to never require approval")
	}
}

func TestTerminalStates(t *testing.T) {
	terminal := map[AgentState]bool{
		StateInit:             false,
		StatePlan:             false,
		StateAct:              false,
		StateReview:           false,
		StateComplete:         true,
		StateViolation:        true,
		StateApprovalRequired: true,
	}
	for s, want := range terminal {
		if s.Terminal() != want {
			t.Errorf("%s.Terminal() = %v, want %v", s, s.Terminal(), want)
		}
	}
}

func TestNewRunStateUsesFullBudget(t *testing.T) {
	p := &Policy{BudgetLimit: 100, MaxStepsPerRun: 5}
	s := NewRunState(p)
	if s.AgentState != StateInit || s.StepsTaken != 0 || s.RemainingBudget != 100 {
		t.Fatalf("unexpected initial state: %+v", s)
	}
}

func TestFormatTimeUTCMillis(t *testing.T) {
	loc := time.FixedZone("X", 3600)
	ts := time.Date(2025, 1, 15, 11, 30, 0, 123456789, loc)
	if got := FormatTime(ts); got != "2025-01-15T10:30:00.123Z" {
		t.Fatalf("FormatTime = %s", got)
	}
}

func TestPolicyAllows(t *testing.T) {
	p := &Policy{AllowedTools: []string{"A", "B"}}
	if !p.Allows("A") || p.Allows("C") || p.Allows("a") {
		t.Fatal("Allows must be an exact, case-sensitive membership test")
	}
}
