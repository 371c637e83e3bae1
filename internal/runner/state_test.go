package runner

import (
	"testing"

	"github.com/ppiankov/guardsim/internal/model"
)

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		from model.AgentState
		ev   Event
		want model.AgentState
	}{
		{model.StateInit, EventNextAction, model.StatePlan},
		{model.StateInit, EventNoMoreActions, model.StateComplete},
		{model.StatePlan, EventApproved, model.StateAct},
		{model.StatePlan, EventRequiresApproval, model.StateApprovalRequired},
		{model.StatePlan, EventDenied, model.StateViolation},
		{model.StateAct, EventExecuted, model.StateReview},
		{model.StateReview, EventNextAction, model.StatePlan},
		{model.StateReview, EventNoMoreActions, model.StateComplete},
	}
	for _, tt := range tests {
		got, err := Transition(tt.from, tt.ev)
		if err != nil {
			t.Errorf("%s on %s: unexpected error %v", tt.from, tt.ev, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s on %s = %s, want %s", tt.from, tt.ev, got, tt.want)
		}
	}
}

func TestTerminalStatesHaveNoTransitions(t *testing.T) {
	events := []Event{EventNextAction, EventApproved, EventRequiresApproval, EventDenied, EventExecuted, EventNoMoreActions}
	for _, s := range []model.AgentState{model.StateComplete, model.StateViolation, model.StateApprovalRequired} {
		for _, ev := range events {
			if _, err := Transition(s, ev); err == nil {
				t.Errorf("expected %s on %s to be illegal", s, ev)
			}
		}
	}
}

func TestIllegalTransitions(t *testing.T) {
	illegal := []struct {
		from model.AgentState
		ev   Event
	}{
		{model.StateInit, EventApproved},
		{model.StatePlan, EventExecuted},
		{model.StateAct, EventNextAction},
		{model.StateReview, EventDenied},
	}
	for _, tt := range illegal {
		if _, err := Transition(tt.from, tt.ev); err == nil {
			t.Errorf("expected %s on %s to be illegal", tt.from, tt.ev)
		}
	}
}

func TestEventFor(t *testing.T) {
	for o, want := range map[model.Outcome]Event{
		model.Approved:         EventApproved,
		model.RequiresApproval: EventRequiresApproval,
		model.DeniedViolation:  EventDenied,
	} {
		got, err := EventFor(o)
		if err != nil || got != want {
			t.Errorf("EventFor(%s) = %s, %v", o, got, err)
		}
	}
	if _, err := EventFor("MAYBE"); err == nil {
		t.Error("expected error for unknown outcome")
	}
}
