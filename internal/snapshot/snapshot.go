// Package snapshot loads and cross-validates the three run inputs as one unit.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/guardsim/internal/catalog"
	"github.com/ppiankov/guardsim/internal/model"
	"github.com/ppiankov/guardsim/internal/policy"
	"github.com/ppiankov/guardsim/internal/task"
	"github.com/ppiankov/guardsim/internal/toolsim"
)

// ConfigError is the typed configuration error shared by every loader.
type ConfigError = model.ConfigError

// Base names of the input files.
const (
	ToolRegistryName    = "tool_registry"
	AgentPolicyName     = "agent_policy"
	TaskDefinitionsName = "task_definitions"
)

var extensions = []string{".yaml", ".yml", ".json"}

// Paths locates the input files.
type Paths struct {
	Tools  string
	Policy string
	Tasks  string
}

// Snapshot is the consolidated record of one run's inputs.
// The exported fields are serialized as config_snapshot.json.
type Snapshot struct {
	ToolRegistry    []model.Tool  `json:"tool_registry"`
	AgentPolicy     *model.Policy `json:"agent_policy"`
	TaskDefinitions []model.Task  `json:"task_definitions"`

	catalog    *catalog.Catalog
	bindings   toolsim.Bindings
	policyHash string
}

// Catalog returns the validated tool catalog.
func (s *Snapshot) Catalog() *catalog.Catalog { return s.catalog }

// Bindings returns the tool behaviors resolved at load time.
func (s *Snapshot) Bindings() toolsim.Bindings { return s.bindings }

// PolicyHash returns the canonical hash of the policy.
func (s *Snapshot) PolicyHash() string { return s.policyHash }

// Load reads all three inputs and validates them against each other.
// It returns warnings for tasks that reference unknown tools.
// Nothing is returned unless every input is valid.
func Load(paths Paths, reg toolsim.Registry) (*Snapshot, []string, error) {
	for _, p := range []struct{ name, path string }{
		{ToolRegistryName, paths.Tools},
		{AgentPolicyName, paths.Policy},
		{TaskDefinitionsName, paths.Tasks},
	} {
		if p.path == "" {
			return nil, nil, &ConfigError{Field: p.name, Reason: "input file is required"}
		}
		if _, err := os.Stat(p.path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, nil, &ConfigError{File: p.path, Field: p.name, Reason: "input file not found"}
			}
			return nil, nil, fmt.Errorf("failed to stat %s: %w", p.path, err)
		}
	}

	cat, err := catalog.Load(paths.Tools)
	if err != nil {
		return nil, nil, err
	}
	pol, _, err := policy.LoadConfigWithHash(paths.Policy)
	if err != nil {
		return nil, nil, err
	}
	tasks, err := task.Load(paths.Tasks)
	if err != nil {
		return nil, nil, err
	}

	s, err := build(cat, pol, tasks, reg)
	if err != nil {
		var ce *ConfigError
		if errors.As(err, &ce) && ce.File == "" {
			return nil, nil, ce.WithFile(fileFor(ce, paths))
		}
		return nil, nil, err
	}
	return s, task.Warnings(tasks, cat), nil
}

// fileFor attributes cross-validation errors to the input file they concern.
func fileFor(ce *ConfigError, paths Paths) string {
	if ce.Field != "" && ce.Field[0] == '[' {
		return paths.Tools
	}
	return paths.Policy
}

// LoadDir loads the inputs from dir using the default base names.
func LoadDir(dir string, reg toolsim.Registry) (*Snapshot, []string, error) {
	paths, err := Discover(dir)
	if err != nil {
		return nil, nil, err
	}
	return Load(paths, reg)
}

// Discover resolves the default input file names in dir.
// YAML is preferred over JSON when both exist.
func Discover(dir string) (Paths, error) {
	find := func(base string) (string, error) {
		for _, ext := range extensions {
			p := filepath.Join(dir, base+ext)
			if _, err := os.Stat(p); err == nil {
				return p, nil
			}
		}
		return "", &ConfigError{File: filepath.Join(dir, base+".yaml"), Field: base, Reason: "input file not found"}
	}
	var paths Paths
	var err error
	if paths.Tools, err = find(ToolRegistryName); err != nil {
		return Paths{}, err
	}
	if paths.Policy, err = find(AgentPolicyName); err != nil {
		return Paths{}, err
	}
	if paths.Tasks, err = find(TaskDefinitionsName); err != nil {
		return Paths{}, err
	}
	return paths, nil
}

// Resolve is Discover without the existence check. Inputs that are not
// found keep their default .yaml name so Load can report them by field.
func Resolve(dir string) Paths {
	pick := func(base string) string {
		for _, ext := range extensions {
			p := filepath.Join(dir, base+ext)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
		return filepath.Join(dir, base+".yaml")
	}
	return Paths{
		Tools:  pick(ToolRegistryName),
		Policy: pick(AgentPolicyName),
		Tasks:  pick(TaskDefinitionsName),
	}
}

// New builds a validated snapshot from already-parsed inputs.
func New(tools []model.Tool, pol *model.Policy, tasks []model.Task, reg toolsim.Registry) (*Snapshot, error) {
	cat, err := catalog.New(tools)
	if err != nil {
		return nil, err
	}
	if err := task.Validate(tasks); err != nil {
		return nil, err
	}
	return build(cat, pol, tasks, reg)
}

func build(cat *catalog.Catalog, pol *model.Policy, tasks []model.Task, reg toolsim.Registry) (*Snapshot, error) {
	if pol == nil {
		return nil, &ConfigError{Field: AgentPolicyName, Reason: "policy is required"}
	}
	if err := policy.Validate(pol, cat); err != nil {
		return nil, err
	}
	bindings, err := reg.Bind(cat)
	if err != nil {
		return nil, err
	}
	hash, err := policy.Hash(pol)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		ToolRegistry:    cat.Tools(),
		AgentPolicy:     pol,
		TaskDefinitions: tasks,
		catalog:         cat,
		bindings:        bindings,
		policyHash:      hash,
	}, nil
}

// Decode rebuilds a snapshot from a config_snapshot.json document.
func Decode(data []byte, reg toolsim.Registry) (*Snapshot, error) {
	var raw Snapshot
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("failed to parse config snapshot: %v", err)}
	}
	return New(raw.ToolRegistry, raw.AgentPolicy, raw.TaskDefinitions, reg)
}

// WithPolicy returns a copy of s evaluated under a different policy.
func (s *Snapshot) WithPolicy(pol *model.Policy, reg toolsim.Registry) (*Snapshot, error) {
	return build(s.catalog, pol, s.TaskDefinitions, reg)
}
