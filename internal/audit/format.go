package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/guardsim/internal/model"
)

const rule = "──────────────────────────────────────────────────────────────────────────────"

// FormatTimeline renders replayed decisions one per line, grouped under a
// header per run.
func FormatTimeline(result *ReplayResult) string {
	scope := result.RunID
	if scope == "" {
		scope = "all runs"
	}
	if result.TaskID != "" {
		scope += " / " + result.TaskID
	}
	if len(result.Entries) == 0 {
		return fmt.Sprintf("Run: %s | No entries found.\n", scope)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s | %s to %s UTC\n", scope,
		reformat(result.Summary.FirstTimestamp, time.DateTime),
		reformat(result.Summary.LastTimestamp, time.TimeOnly))

	currentRun := ""
	for _, e := range result.Entries {
		if e.RunID != currentRun {
			currentRun = e.RunID
			b.WriteString(rule + "\n")
			if result.RunID == "" {
				fmt.Fprintf(&b, "run %s  policy %s\n", e.RunID, shortHash(e.PolicyHash))
			}
		}
		fmt.Fprintf(&b, "%-12s %-10s %3d  %-18s %s\n",
			reformat(e.Timestamp, "15:04:05.000"), clip(e.TaskID, 10), e.Seq, e.AgentState, describe(e))
	}
	b.WriteString(rule + "\n")
	b.WriteString(summaryLine(result.Summary))
	return b.String()
}

// describe states what one entry records.
func describe(e AuditEntry) string {
	switch model.StepOutcome(e.Event) {
	case model.StepStarted:
		return fmt.Sprintf("started (budget=%d)", e.RemainingBudget)
	case model.StepCompleted:
		return fmt.Sprintf("completed (steps=%d budget=%d)", e.StepsTaken, e.RemainingBudget)
	}
	s := fmt.Sprintf("%s %s cost=%d", e.Decision, e.Tool, e.Cost)
	if model.StepOutcome(e.Event) == model.StepExecuted {
		return fmt.Sprintf("%s -> steps=%d budget=%d", s, e.StepsTaken, e.RemainingBudget)
	}
	if e.Reason != "" {
		s += ": " + e.Reason
	}
	return s
}

// FormatJSON renders a ReplayResult as indented JSON.
func FormatJSON(result *ReplayResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal replay result: %w", err)
	}
	return string(data), nil
}

func reformat(ts, layout string) string {
	t, err := time.Parse(model.TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format(layout)
}

func summaryLine(s ReplaySummary) string {
	var parts []string
	if s.ApprovedCount > 0 {
		parts = append(parts, fmt.Sprintf("%d approved", s.ApprovedCount))
	}
	if s.DeniedCount > 0 {
		parts = append(parts, fmt.Sprintf("%d denied", s.DeniedCount))
	}
	if s.ApprovalCount > 0 {
		parts = append(parts, fmt.Sprintf("%d awaiting approval", s.ApprovalCount))
	}
	if len(parts) == 0 {
		parts = []string{"no decisions"}
	}
	return fmt.Sprintf("Summary: %s | %d entries, %d tasks completed, %d runs\n",
		strings.Join(parts, ", "), s.Total, s.CompletedTasks, s.Runs)
}

func shortHash(h string) string {
	h = strings.TrimPrefix(h, "sha256:")
	return clip(h, 12)
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
