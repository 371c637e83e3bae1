package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/guardsim/internal/model"
)

// ReplayFilter selects entries. Zero fields match everything.
type ReplayFilter struct {
	RunID  string
	TaskID string
	From   time.Time
	To     time.Time
}

func (f ReplayFilter) match(e AuditEntry) bool {
	if f.RunID != "" && e.RunID != f.RunID {
		return false
	}
	if f.TaskID != "" && e.TaskID != f.TaskID {
		return false
	}
	if f.From.IsZero() && f.To.IsZero() {
		return true
	}
	ts, err := time.Parse(model.TimestampFormat, e.Timestamp)
	if err != nil {
		return false
	}
	if !f.From.IsZero() && ts.Before(f.From) {
		return false
	}
	return f.To.IsZero() || !ts.After(f.To)
}

// ReplaySummary counts the decisions among the replayed entries.
type ReplaySummary struct {
	Total          int    `json:"total"`
	ApprovedCount  int    `json:"approved_count"`
	DeniedCount    int    `json:"denied_count"`
	ApprovalCount  int    `json:"approval_count"`
	CompletedTasks int    `json:"completed_tasks"`
	Runs           int    `json:"runs"`
	FirstTimestamp string `json:"first_timestamp"`
	LastTimestamp  string `json:"last_timestamp"`
}

// ReplayResult holds the matching entries in log order.
type ReplayResult struct {
	RunID   string        `json:"run_id"`
	TaskID  string        `json:"task_id,omitempty"`
	Entries []AuditEntry  `json:"entries"`
	Summary ReplaySummary `json:"summary"`

	runs map[string]bool
}

func (r *ReplayResult) add(e AuditEntry) {
	r.Entries = append(r.Entries, e)

	s := &r.Summary
	s.Total++
	switch model.Outcome(e.Decision) {
	case model.Approved:
		s.ApprovedCount++
	case model.DeniedViolation:
		s.DeniedCount++
	case model.RequiresApproval:
		s.ApprovalCount++
	}
	if model.StepOutcome(e.Event) == model.StepCompleted {
		s.CompletedTasks++
	}
	if !r.runs[e.RunID] {
		r.runs[e.RunID] = true
		s.Runs++
	}
	if s.FirstTimestamp == "" {
		s.FirstTimestamp = e.Timestamp
	}
	s.LastTimestamp = e.Timestamp
}

// Replay reads the log at path and returns the entries matching filter.
// Lines that do not decode are skipped; use Verify to detect them.
func Replay(path string, filter ReplayFilter) (*ReplayResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	result := &ReplayResult{
		RunID:   filter.RunID,
		TaskID:  filter.TaskID,
		Entries: []AuditEntry{},
		runs:    map[string]bool{},
	}
	err = eachLine(f, func(_ int, line []byte) error {
		var entry AuditEntry
		if json.Unmarshal(line, &entry) != nil || !filter.match(entry) {
			return nil
		}
		result.add(entry)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	return result, nil
}

// Tail returns the last n raw lines of the log, oldest first. n <= 0 means all.
func Tail(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	lines := []string{}
	err = eachLine(f, func(_ int, line []byte) error {
		if n > 0 && len(lines) == n {
			lines = append(lines[:0], lines[1:]...)
		}
		lines = append(lines, string(line))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	return lines, nil
}
