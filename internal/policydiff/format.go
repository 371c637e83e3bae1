package policydiff

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatText renders the diff result as human-readable text.
func FormatText(r *DiffResult) string {
	if !r.HasChanges {
		return fmt.Sprintf("Policy diff: %s → %s\n\nNo changes detected.\n", r.OldPath, r.NewPath)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Policy diff: %s → %s\n", r.OldPath, r.NewPath)
	if r.OldHash != "" && r.NewHash != "" {
		fmt.Fprintf(&b, "  %s → %s\n", r.OldHash, r.NewHash)
	}

	if len(r.Changes) > 0 {
		b.WriteString("\n")
		for _, c := range r.Changes {
			fmt.Fprintf(&b, "  %-24s %s → %s", c.Field+":", c.Old, c.New)
			if c.Comment != "" {
				fmt.Fprintf(&b, "  (%s)", c.Comment)
			}
			b.WriteString("\n")
		}
	}

	section := ""
	for _, c := range r.SetChanges {
		if c.Field != section {
			section = c.Field
			fmt.Fprintf(&b, "\n  %s:\n", sectionTitle(section))
		}
		fmt.Fprintf(&b, "    %-28s (%s)\n", c.String(), c.Comment)
	}

	return b.String()
}

func sectionTitle(field string) string {
	switch field {
	case "allowed_tools":
		return "Allowed Tools"
	case "approval_gates.access_levels":
		return "Approval Gates (access levels)"
	case "approval_gates.risk_classes":
		return "Approval Gates (risk classes)"
	default:
		return field
	}
}

// FormatJSON renders the diff result as JSON.
func FormatJSON(r *DiffResult) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal diff result: %w", err)
	}
	return string(data), nil
}
