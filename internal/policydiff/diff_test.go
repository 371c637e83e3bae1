package policydiff

import (
	"strings"
	"testing"

	"github.com/ppiankov/guardsim/internal/model"
	"github.com/ppiankov/guardsim/internal/policy"
)

func TestIdenticalPoliciesNoChanges(t *testing.T) {
	r := Diff(policy.DefaultConfig(), policy.DefaultConfig())
	if r.HasChanges {
		t.Errorf("expected no changes, got %d changes + %d set changes",
			len(r.Changes), len(r.SetChanges))
	}
	if !strings.Contains(FormatText(r), "No changes detected.") {
		t.Error("text output should say no changes")
	}
}

func findChange(r *DiffResult, field string) (Change, bool) {
	for _, c := range r.Changes {
		if c.Field == field {
			return c, true
		}
	}
	return Change{}, false
}

func TestLowerLimitsAreStricter(t *testing.T) {
	a := policy.DefaultConfig()
	b := policy.DefaultConfig()
	b.MaxStepsPerRun = 3
	b.BudgetLimit = 200

	r := Diff(a, b)
	steps, ok := findChange(r, "max_steps_per_run")
	if !ok {
		t.Fatal("max_steps_per_run change not found")
	}
	if steps.Old != "5" || steps.New != "3" || steps.Comment != "stricter" {
		t.Errorf("steps change = %+v", steps)
	}
	budget, ok := findChange(r, "budget_limit")
	if !ok {
		t.Fatal("budget_limit change not found")
	}
	if budget.Comment != "looser" {
		t.Errorf("raising the budget should be looser, got %q", budget.Comment)
	}
	if !r.Stricter() {
		t.Error("expected Stricter() with a lowered step limit")
	}
}

func TestEscalationRuleChange(t *testing.T) {
	a := policy.DefaultConfig()
	b := policy.DefaultConfig()
	b.EscalationRule = "Page on-call"

	c, ok := findChange(Diff(a, b), "escalation_rule")
	if !ok || c.New != "Page on-call" || c.Comment != "" {
		t.Errorf("escalation change = %+v, found=%v", c, ok)
	}
}

func TestAllowedToolsSetChanges(t *testing.T) {
	a := policy.DefaultConfig()
	b := policy.DefaultConfig()
	b.AllowedTools = []string{"MarketDataAPI_Read", "ReportGenerator", "System_Config_Change"}

	r := Diff(a, b)
	if len(r.SetChanges) != 2 {
		t.Fatalf("expected 2 set changes, got %+v", r.SetChanges)
	}
	added, removed := r.SetChanges[0], r.SetChanges[1]
	if added.Type != "added" || added.Value != "System_Config_Change" || added.Comment != "looser" {
		t.Errorf("added = %+v", added)
	}
	if removed.Type != "removed" || removed.Value != "Portfolio_Update" || removed.Comment != "stricter" {
		t.Errorf("removed = %+v", removed)
	}
}

func TestGateChangesInvertDirection(t *testing.T) {
	a := policy.DefaultConfig()
	b := policy.DefaultConfig()
	b.ApprovalGates.AccessLevels = append(b.ApprovalGates.AccessLevels, model.AccessWrite)
	b.ApprovalGates.RiskClasses = nil

	r := Diff(a, b)
	var gotAdd, gotRemove bool
	for _, c := range r.SetChanges {
		switch {
		case c.Field == "approval_gates.access_levels" && c.Type == "added":
			gotAdd = c.Value == "write" && c.Comment == "stricter"
		case c.Field == "approval_gates.risk_classes" && c.Type == "removed":
			gotRemove = c.Value == "critical" && c.Comment == "looser"
		}
	}
	if !gotAdd || !gotRemove {
		t.Errorf("gate changes = %+v", r.SetChanges)
	}
}

func TestFormatTextSections(t *testing.T) {
	a := policy.DefaultConfig()
	b := policy.DefaultConfig()
	b.BudgetLimit = 50
	b.AllowedTools = append(b.AllowedTools, "System_Config_Change")
	r := Diff(a, b)
	r.OldPath, r.NewPath = "old.yaml", "new.yaml"

	out := FormatText(r)
	for _, want := range []string{
		"Policy diff: old.yaml → new.yaml",
		"budget_limit:",
		"100 → 50  (stricter)",
		"Allowed Tools:",
		"+ System_Config_Change",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatJSON(t *testing.T) {
	b := policy.DefaultConfig()
	b.MaxStepsPerRun = 1
	out, err := FormatJSON(Diff(policy.DefaultConfig(), b))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"has_changes": true`) {
		t.Errorf("json = %s", out)
	}
}
