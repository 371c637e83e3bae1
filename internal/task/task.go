// Package task loads the ordered task definitions a run executes.
package task

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/guardsim/internal/catalog"
	"github.com/ppiankov/guardsim/internal/model"
	"github.com/ppiankov/guardsim/internal/schema"
)

type fileTask struct {
	TaskID            string         `yaml:"task_id"`
	Description       string         `yaml:"description"`
	LegacyDescription string         `yaml:"task_description"`
	ExpectedActions   []model.Action `yaml:"expected_actions"`
	ExpectedOutcome   string         `yaml:"expected_outcome"`
}

// Parse decodes and validates a YAML or JSON task definitions document.
func Parse(data []byte) ([]model.Task, error) {
	if err := schema.Validate(schema.TaskDefinitions, data); err != nil {
		return nil, err
	}
	var raw []fileTask
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &model.ConfigError{Reason: fmt.Sprintf("failed to parse task definitions: %v", err)}
	}
	tasks := make([]model.Task, len(raw))
	for i, f := range raw {
		desc := f.Description
		if desc == "" {
			desc = f.LegacyDescription
		}
		tasks[i] = model.Task{
			TaskID:          f.TaskID,
			Description:     desc,
			ExpectedActions: f.ExpectedActions,
			ExpectedOutcome: f.ExpectedOutcome,
		}
		if tasks[i].ExpectedActions == nil {
			tasks[i].ExpectedActions = []model.Action{}
		}
	}
	if err := Validate(tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Validate checks task ids and actions.
func Validate(tasks []model.Task) error {
	seen := make(map[string]bool, len(tasks))
	for i, t := range tasks {
		if t.TaskID == "" {
			return &model.ConfigError{Field: fmt.Sprintf("[%d].task_id", i), Reason: "task_id is required"}
		}
		if seen[t.TaskID] {
			return &model.ConfigError{Field: fmt.Sprintf("[%d].task_id", i), Reason: fmt.Sprintf("duplicate task %q", t.TaskID)}
		}
		seen[t.TaskID] = true
		for j, a := range t.ExpectedActions {
			if a.ToolName == "" {
				return &model.ConfigError{Field: fmt.Sprintf("[%d].expected_actions[%d].tool_name", i, j), Reason: "tool_name is required"}
			}
			if a.Cost < 0 {
				return &model.ConfigError{Field: fmt.Sprintf("[%d].expected_actions[%d].cost", i, j), Reason: fmt.Sprintf("cost must be non-negative, got %d", a.Cost)}
			}
		}
	}
	return nil
}

// Load reads task definitions from path.
func Load(path string) ([]model.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task definitions: %w", err)
	}
	tasks, err := Parse(data)
	if err != nil {
		var ce *model.ConfigError
		if errors.As(err, &ce) {
			return nil, ce.WithFile(path)
		}
		return nil, err
	}
	return tasks, nil
}

// Warnings lists actions that reference tools absent from the catalog.
// They are not errors: the permission check denies them at run time.
func Warnings(tasks []model.Task, cat *catalog.Catalog) []string {
	var out []string
	for _, t := range tasks {
		for j, a := range t.ExpectedActions {
			if _, ok := cat.Lookup(a.ToolName); !ok {
				out = append(out, fmt.Sprintf("task %s action %d references unknown tool %q", t.TaskID, j+1, a.ToolName))
			}
		}
	}
	return out
}
