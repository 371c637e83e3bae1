package audit

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ppiankov/guardsim/internal/model"
)

// sampleTrace is the trace of one task that reads market data and
// then stops at the approval gate on a portfolio update.
func sampleTrace() []model.ExecutionStep {
	read := &model.Action{ToolName: "MarketDataAPI_Read", Cost: 10}
	update := &model.Action{ToolName: "Portfolio_Update", Cost: 25}
	return []model.ExecutionStep{
		{Sequence: 1, Timestamp: "2026-01-02T10:00:00.000Z", TaskID: "task_2", AgentState: model.StateInit,
			RemainingBudget: 100, Outcome: model.StepStarted},
		{Sequence: 2, Timestamp: "2026-01-02T10:00:00.010Z", TaskID: "task_2", AgentState: model.StateAct,
			StepsTaken: 1, RemainingBudget: 90, ActionAttempted: read,
			PolicyDecision: &model.Decision{Outcome: model.Approved}, Outcome: model.StepExecuted},
		{Sequence: 3, Timestamp: "2026-01-02T10:00:00.020Z", TaskID: "task_2", AgentState: model.StateApprovalRequired,
			StepsTaken: 1, RemainingBudget: 90, ActionAttempted: update,
			PolicyDecision: &model.Decision{Outcome: model.RequiresApproval, ApprovalRequired: true, Message: "write access requires approval"},
			Outcome:        model.StepRequiresApproval},
	}
}

func openLog(t *testing.T) (*Log, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logs", "decisions.jsonl")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return l, path
}

func TestFromStepFlattensDecision(t *testing.T) {
	steps := sampleTrace()
	e := FromStep("run-1", "sha256:p", steps[2])
	if e.Tool != "Portfolio_Update" || e.Cost != 25 {
		t.Errorf("action not flattened: %+v", e)
	}
	if e.Decision != string(model.RequiresApproval) || e.Reason != "write access requires approval" {
		t.Errorf("decision not flattened: %+v", e)
	}
	if e.Event != string(model.StepRequiresApproval) || e.AgentState != "APPROVAL_REQUIRED" {
		t.Errorf("state not flattened: %+v", e)
	}

	start := FromStep("run-1", "sha256:p", steps[0])
	if start.Tool != "" || start.Decision != "" {
		t.Errorf("INIT entry should carry no action or decision: %+v", start)
	}
}

func TestRecordedStepsVerify(t *testing.T) {
	l, path := openLog(t)
	for _, s := range sampleTrace() {
		if err := l.RecordStep("run-1", "sha256:p", s); err != nil {
			t.Fatal(err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	res := Verify(path)
	if !res.Valid || res.Lines != 3 {
		t.Fatalf("expected valid 3-line chain, got %+v", res)
	}
}

func TestRecordStampsMissingTimestamp(t *testing.T) {
	l, path := openLog(t)
	if err := l.Record(AuditEntry{RunID: "r", TaskID: "t"}); err != nil {
		t.Fatal(err)
	}
	l.Close()

	lines, err := Tail(path, 1)
	if err != nil {
		t.Fatal(err)
	}
	var e AuditEntry
	if err := json.Unmarshal([]byte(lines[0]), &e); err != nil {
		t.Fatal(err)
	}
	if e.Timestamp == "" || e.PrevHash != GenesisHash {
		t.Errorf("unexpected first entry %+v", e)
	}
}

func TestReopenContinuesChain(t *testing.T) {
	l, path := openLog(t)
	for _, s := range sampleTrace() {
		l.RecordStep("run-1", "sha256:p", s)
	}
	l.Close()

	l2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range sampleTrace() {
		l2.RecordStep("run-2", "sha256:p", s)
	}
	l2.Close()

	res := Verify(path)
	if !res.Valid || res.Lines != 6 {
		t.Fatalf("chain across two runs broken: %+v", res)
	}
}

func TestConcurrentRecordsStayChained(t *testing.T) {
	l, path := openLog(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, s := range sampleTrace() {
				if err := l.RecordStep("run-c", "sha256:p", s); err != nil {
					t.Error(err)
				}
			}
		}()
	}
	wg.Wait()
	l.Close()

	res := Verify(path)
	if !res.Valid || res.Lines != 60 {
		t.Fatalf("concurrent writes broke the chain: %+v", res)
	}
}

func TestEncodeChainMatchesLog(t *testing.T) {
	entries := FromSteps("run-1", "sha256:p", sampleTrace())
	data, err := EncodeChain(entries)
	if err != nil {
		t.Fatal(err)
	}

	l, path := openLog(t)
	for _, e := range entries {
		l.Record(e)
	}
	l.Close()
	onDisk, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, onDisk) {
		t.Error("in-memory chain differs from the same entries logged to disk")
	}
	for _, e := range entries {
		if e.PrevHash != "" {
			t.Fatal("EncodeChain modified its input")
		}
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	data, err := EncodeChain(FromSteps("run-1", "sha256:p", sampleTrace()))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.SplitAfter(strings.TrimSuffix(string(data), "\n"), "\n")

	tests := []struct {
		name     string
		doc      string
		wantLine int
	}{
		{
			name:     "edited decision",
			doc:      lines[0] + strings.Replace(lines[1], `"APPROVED"`, `"DENIED_VIOLATION"`, 1) + lines[2],
			wantLine: 3,
		},
		{
			name:     "deleted entry",
			doc:      lines[0] + lines[2],
			wantLine: 2,
		},
		{
			name:     "reordered entries",
			doc:      lines[1] + lines[0] + lines[2],
			wantLine: 1,
		},
		{
			name:     "garbage line",
			doc:      lines[0] + "not json\n",
			wantLine: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := VerifyReader(strings.NewReader(tt.doc))
			if res.Valid {
				t.Fatal("tampered chain verified")
			}
			if res.ErrorLine != tt.wantLine {
				t.Errorf("error line = %d, want %d (%s)", res.ErrorLine, tt.wantLine, res.Error)
			}
		})
	}
}

func TestVerifyEmptyAndMissing(t *testing.T) {
	if res := VerifyReader(strings.NewReader("")); !res.Valid || res.Lines != 0 {
		t.Errorf("empty chain should verify, got %+v", res)
	}
	if res := Verify(filepath.Join(t.TempDir(), "missing.jsonl")); res.Valid || res.Error == "" {
		t.Errorf("missing log should fail, got %+v", res)
	}
}

func TestHashLineDeterministic(t *testing.T) {
	a := HashLine([]byte(`{"seq":1}`))
	if a != HashLine([]byte(`{"seq":1}`)) {
		t.Fatal("same bytes hashed differently")
	}
	if !strings.HasPrefix(a, "sha256:") || len(a) != len(GenesisHash) {
		t.Errorf("unexpected hash %q", a)
	}
	if a == HashLine([]byte(`{"seq":2}`)) {
		t.Error("different bytes share a hash")
	}
}
