package budget

// Limits defines the per-task resource limits an action is checked against.
// The cost dimension is tracked as a remaining balance, so only steps need a limit here.
type Limits struct {
	MaxSteps int
}

