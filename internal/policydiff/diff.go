// Package policydiff compares two policies field by field.
package policydiff

import (
	"fmt"
	"strconv"

	"github.com/ppiankov/guardsim/internal/model"
)

// Change represents a scalar field change.
type Change struct {
	Field   string `json:"field"`
	Old     string `json:"old"`
	New     string `json:"new"`
	Comment string `json:"comment,omitempty"`
}

// SetChange is one member added to or removed from a list field.
type SetChange struct {
	Field   string `json:"field"`
	Type    string `json:"type"` // "added" or "removed"
	Value   string `json:"value"`
	Comment string `json:"comment"`
}

// DiffResult holds the comparison of two policies.
type DiffResult struct {
	OldPath    string      `json:"old_path"`
	NewPath    string      `json:"new_path"`
	OldHash    string      `json:"old_hash,omitempty"`
	NewHash    string      `json:"new_hash,omitempty"`
	Changes    []Change    `json:"changes"`
	SetChanges []SetChange `json:"set_changes"`
	HasChanges bool        `json:"has_changes"`
}

// Diff compares two policies and returns the differences.
func Diff(old, new *model.Policy) *DiffResult {
	r := &DiffResult{}

	diffInt(r, "max_steps_per_run", old.MaxStepsPerRun, new.MaxStepsPerRun)
	diffInt(r, "budget_limit", old.BudgetLimit, new.BudgetLimit)
	if old.EscalationRule != new.EscalationRule {
		r.Changes = append(r.Changes, Change{
			Field: "escalation_rule",
			Old:   old.EscalationRule,
			New:   new.EscalationRule,
		})
	}

	// Allowing more tools loosens the policy; gating more attributes tightens it.
	diffSet(r, "allowed_tools", old.AllowedTools, new.AllowedTools, false)
	diffSet(r, "approval_gates.access_levels",
		levelStrings(old.ApprovalGates.AccessLevels), levelStrings(new.ApprovalGates.AccessLevels), true)
	diffSet(r, "approval_gates.risk_classes",
		classStrings(old.ApprovalGates.RiskClasses), classStrings(new.ApprovalGates.RiskClasses), true)

	r.HasChanges = len(r.Changes) > 0 || len(r.SetChanges) > 0
	return r
}

// diffInt records a limit change. A lower limit is stricter.
func diffInt(r *DiffResult, field string, old, new int) {
	if old == new {
		return
	}
	comment := "looser"
	if new < old {
		comment = "stricter"
	}
	r.Changes = append(r.Changes, Change{
		Field:   field,
		Old:     strconv.Itoa(old),
		New:     strconv.Itoa(new),
		Comment: comment,
	})
}

func diffSet(r *DiffResult, field string, oldItems, newItems []string, addIsStricter bool) {
	oldSet := make(map[string]bool, len(oldItems))
	for _, v := range oldItems {
		oldSet[v] = true
	}
	newSet := make(map[string]bool, len(newItems))
	for _, v := range newItems {
		newSet[v] = true
	}

	added, removed := "looser", "stricter"
	if addIsStricter {
		added, removed = removed, added
	}
	for _, v := range newItems {
		if !oldSet[v] {
			r.SetChanges = append(r.SetChanges, SetChange{Field: field, Type: "added", Value: v, Comment: added})
		}
	}
	for _, v := range oldItems {
		if !newSet[v] {
			r.SetChanges = append(r.SetChanges, SetChange{Field: field, Type: "removed", Value: v, Comment: removed})
		}
	}
}

func levelStrings(levels []model.AccessLevel) []string {
	out := make([]string, len(levels))
	for i, l := range levels {
		out[i] = string(l)
	}
	return out
}

func classStrings(classes []model.RiskClass) []string {
	out := make([]string, len(classes))
	for i, c := range classes {
		out[i] = string(c)
	}
	return out
}

// Stricter reports whether any change tightens the policy.
func (r *DiffResult) Stricter() bool {
	for _, c := range r.Changes {
		if c.Comment == "stricter" {
			return true
		}
	}
	for _, c := range r.SetChanges {
		if c.Comment == "stricter" {
			return true
		}
	}
	return false
}

func (c SetChange) String() string {
	sign := "+"
	if c.Type == "removed" {
		sign = "-"
	}
	return fmt.Sprintf("%s %s", sign, c.Value)
}
