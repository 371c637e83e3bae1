package scenario

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatText renders scenario results, listing every failing case.
func FormatText(results []*RunResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Checking %d scenario %s...\n\n", len(results), plural(len(results), "file", "files"))

	cases, passed, failedFiles := 0, 0, 0
	for _, r := range results {
		cases += r.Total
		passed += r.Passed
		status := "PASS"
		if r.Failed > 0 {
			status = "FAIL"
			failedFiles++
		}
		fmt.Fprintf(&b, "  %s  %s (%d/%d)\n", status, r.Name, r.Passed, r.Total)
		for _, c := range r.Cases {
			if !c.Passed {
				writeFailure(&b, c)
			}
		}
	}

	fmt.Fprintf(&b, "\n%d of %d cases passed.", passed, cases)
	if failedFiles > 0 {
		fmt.Fprintf(&b, " %d of %d scenarios failed.", failedFiles, len(results))
	}
	b.WriteString("\n")
	return b.String()
}

func writeFailure(b *strings.Builder, c CaseResult) {
	fmt.Fprintf(b, "    FAIL  case %d: %s (cost %d) expected %s, got %s",
		c.Index, c.Tool, c.Cost, c.Expected, c.Actual)
	if c.Violation != "" {
		fmt.Fprintf(b, " [%s]", c.Violation)
	}
	if c.Reason != "" {
		fmt.Fprintf(b, ": %s", c.Reason)
	}
	b.WriteString("\n")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// FormatJSON renders run results as JSON.
func FormatJSON(results []*RunResult) (string, error) {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal results: %w", err)
	}
	return string(data), nil
}
