package scenario

// Case is one policy check: a proposed tool call against given counters.
type Case struct {
	Tool            string `yaml:"tool"`
	Cost            int    `yaml:"cost"`
	StepsTaken      int    `yaml:"steps_taken"`
	RemainingBudget *int   `yaml:"remaining_budget,omitempty"` // defaults to the policy budget
	Expect          string `yaml:"expect"`
	ExpectViolation string `yaml:"expect_violation,omitempty"`
	Purpose         string `yaml:"purpose,omitempty"`
}

// Scenario is a named collection of policy test cases.
type Scenario struct {
	Name  string `yaml:"name"`
	Cases []Case `yaml:"cases"`
}

// CaseResult is the outcome of evaluating one test case.
type CaseResult struct {
	Index     int    `json:"index"`
	Passed    bool   `json:"passed"`
	Tool      string `json:"tool"`
	Cost      int    `json:"cost"`
	Expected  string `json:"expected"`
	Actual    string `json:"actual"`
	Violation string `json:"violation,omitempty"`
	Reason    string `json:"reason"`
}

// RunResult is the outcome of running all cases in one scenario file.
type RunResult struct {
	File   string       `json:"file"`
	Name   string       `json:"name"`
	Total  int          `json:"total"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
	Cases  []CaseResult `json:"cases"`
}
