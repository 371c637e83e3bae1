package task

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/guardsim/internal/catalog"
	"github.com/ppiankov/guardsim/internal/model"
)

const sampleTasks = `
- task_id: task_1
  description: Read market data
  expected_actions:
    - tool_name: MarketDataAPI_Read
      params: {symbol: AAPL}
      cost: 10
    - tool_name: MarketDataAPI_Read
      params: {symbol: MSFT}
      cost: 10
  expected_outcome: Success
- task_id: task_2
  task_description: Update portfolio
  expected_actions:
    - tool_name: Portfolio_Update
      params: {symbol: ABC, quantity: 100}
      cost: 50
`

func TestParsePreservesOrder(t *testing.T) {
	tasks, err := Parse([]byte(sampleTasks))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(tasks) != 2 || tasks[0].TaskID != "task_1" || tasks[1].TaskID != "task_2" {
		t.Fatalf("unexpected tasks %+v", tasks)
	}
	if len(tasks[0].ExpectedActions) != 2 || tasks[0].ExpectedActions[1].Params["symbol"] != "MSFT" {
		t.Errorf("actions not preserved: %+v", tasks[0].ExpectedActions)
	}
	if tasks[1].Description != "Update portfolio" {
		t.Errorf("expected legacy task_description alias, got %q", tasks[1].Description)
	}
}

func TestParseEmptyActionsAllowed(t *testing.T) {
	tasks, err := Parse([]byte(`[{"task_id": "empty", "expected_actions": []}]`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tasks[0].ExpectedActions == nil {
		t.Error("expected non-nil empty action list")
	}
}

func TestParseRejectsDuplicateTaskID(t *testing.T) {
	_, err := Parse([]byte(`[{"task_id": "a", "expected_actions": []}, {"task_id": "a", "expected_actions": []}]`))
	var ce *model.ConfigError
	if !errors.As(err, &ce) || ce.Field != "[1].task_id" {
		t.Fatalf("expected duplicate task_id error, got %v", err)
	}
}

func TestParseRejectsMissingToolName(t *testing.T) {
	_, err := Parse([]byte(`[{"task_id": "a", "expected_actions": [{"cost": 1}]}]`))
	if err == nil {
		t.Fatal("expected error for missing tool_name")
	}
}

func TestValidateRejectsNegativeCost(t *testing.T) {
	err := Validate([]model.Task{{TaskID: "a", ExpectedActions: []model.Action{{ToolName: "A", Cost: -5}}}})
	var ce *model.ConfigError
	if !errors.As(err, &ce) || ce.Field != "[0].expected_actions[0].cost" {
		t.Fatalf("expected cost error, got %v", err)
	}
}

func TestWarningsForUnknownTools(t *testing.T) {
	cat, err := catalog.New([]model.Tool{{Name: "MarketDataAPI_Read", AccessLevel: model.AccessReadOnly, RiskClass: model.RiskLow, BehaviorRef: "x"}})
	if err != nil {
		t.Fatal(err)
	}
	tasks, err := Parse([]byte(sampleTasks))
	if err != nil {
		t.Fatal(err)
	}
	w := Warnings(tasks, cat)
	if len(w) != 1 {
		t.Fatalf("expected 1 warning, got %v", w)
	}
}

func TestLoadNamesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "task_definitions.json")
	if err := os.WriteFile(path, []byte(`[{"task_id": ""}]`), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	var ce *model.ConfigError
	if !errors.As(err, &ce) || ce.File != path {
		t.Fatalf("expected ConfigError naming %s, got %v", path, err)
	}
}
