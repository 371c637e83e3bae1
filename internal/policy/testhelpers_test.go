package policy

import (
	"testing"

	"github.com/ppiankov/guardsim/internal/catalog"
	"github.com/ppiankov/guardsim/internal/model"
)

// testCatalog returns A (read-only/low), B (read-only/low), C (execute/critical) and W (write/high).
func testCatalog(t testing.TB) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]model.Tool{
		{Name: "A", AccessLevel: model.AccessReadOnly, RiskClass: model.RiskLow, BehaviorRef: "mock_read_market_data"},
		{Name: "B", AccessLevel: model.AccessReadOnly, RiskClass: model.RiskLow, BehaviorRef: "mock_read_market_data"},
		{Name: "C", AccessLevel: model.AccessExecute, RiskClass: model.RiskCritical, BehaviorRef: "mock_change_system_config"},
		{Name: "W", AccessLevel: model.AccessWrite, RiskClass: model.RiskHigh, BehaviorRef: "mock_update_portfolio"},
	})
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return c
}

// testPolicy allows A, C and W with max 5 steps, budget 100 and execute/critical gates.
func testPolicy() *model.Policy {
	return &model.Policy{
		AllowedTools:   []string{"A", "C", "W"},
		MaxStepsPerRun: 5,
		BudgetLimit:    100,
		ApprovalGates: model.ApprovalGates{
			AccessLevels: []model.AccessLevel{model.AccessExecute},
			RiskClasses:  []model.RiskClass{model.RiskCritical},
		},
		EscalationRule: "Notify Security Team and Terminate Agent",
	}
}

func testEngine(t testing.TB) *Engine {
	t.Helper()
	return NewEngine(testCatalog(t), testPolicy())
}
