package runner

import (
	"fmt"

	"github.com/ppiankov/guardsim/internal/model"
)

// Event drives one transition of the per-task state machine.
type Event string

const (
	EventNextAction       Event = "next_action"       // INIT or REVIEW, more actions remain
	EventApproved         Event = "approved"          // PLAN, engine approved
	EventRequiresApproval Event = "requires_approval" // PLAN, approval gate hit
	EventDenied           Event = "denied"            // PLAN, policy violation
	EventExecuted         Event = "executed"          // ACT, stand-in returned
	EventNoMoreActions    Event = "no_more_actions"   // INIT or REVIEW, nothing left
)

// EventFor maps an engine outcome to the PLAN event it triggers.
func EventFor(o model.Outcome) (Event, error) {
	switch o {
	case model.Approved:
		return EventApproved, nil
	case model.RequiresApproval:
		return EventRequiresApproval, nil
	case model.DeniedViolation:
		return EventDenied, nil
	default:
		return "", fmt.Errorf("unknown decision outcome %q", o)
	}
}

type edge struct {
	from model.AgentState
	ev   Event
}

var transitions = map[edge]model.AgentState{
	{model.StateInit, EventNextAction}:       model.StatePlan,
	{model.StateInit, EventNoMoreActions}:    model.StateComplete,
	{model.StatePlan, EventApproved}:         model.StateAct,
	{model.StatePlan, EventRequiresApproval}: model.StateApprovalRequired,
	{model.StatePlan, EventDenied}:           model.StateViolation,
	{model.StateAct, EventExecuted}:          model.StateReview,
	{model.StateReview, EventNextAction}:     model.StatePlan,
	{model.StateReview, EventNoMoreActions}:  model.StateComplete,
}

// Transition returns the state that follows from on ev.
// Terminal states have no outgoing transitions.
func Transition(from model.AgentState, ev Event) (model.AgentState, error) {
	next, ok := transitions[edge{from, ev}]
	if !ok {
		return from, fmt.Errorf("illegal transition: %s on %s", from, ev)
	}
	return next, nil
}
