package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/gowebpki/jcs"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/guardsim/internal/catalog"
	"github.com/ppiankov/guardsim/internal/model"
	"github.com/ppiankov/guardsim/internal/schema"
)

// DefaultConfig returns the sample policy written by guardsim init.
func DefaultConfig() *model.Policy {
	return &model.Policy{
		AllowedTools:   []string{"MarketDataAPI_Read", "Portfolio_Update", "ReportGenerator"},
		MaxStepsPerRun: 5,
		BudgetLimit:    100,
		ApprovalGates: model.ApprovalGates{
			AccessLevels: []model.AccessLevel{model.AccessExecute},
			RiskClasses:  []model.RiskClass{model.RiskCritical},
		},
		EscalationRule: "Notify Security Team and Terminate Agent",
	}
}

// fileGates is the on-disk shape of approval gates.
type fileGates struct {
	AccessLevels []string `yaml:"access_levels"`
	RiskClasses  []string `yaml:"risk_classes"`
}

// filePolicy accepts approval_required_for as a legacy spelling of approval_gates.
type filePolicy struct {
	AllowedTools        []string   `yaml:"allowed_tools"`
	MaxStepsPerRun      int        `yaml:"max_steps_per_run"`
	BudgetLimit         int        `yaml:"budget_limit"`
	ApprovalGates       *fileGates `yaml:"approval_gates"`
	ApprovalRequiredFor *fileGates `yaml:"approval_required_for"`
	EscalationRule      string     `yaml:"escalation_rule"`
}

// Parse decodes and validates a YAML or JSON policy document.
// Catalog cross-checks are done separately by Validate.
func Parse(data []byte) (*model.Policy, error) {
	if err := schema.Validate(schema.AgentPolicy, data); err != nil {
		return nil, err
	}
	var fp filePolicy
	if err := yaml.Unmarshal(data, &fp); err != nil {
		return nil, &model.ConfigError{Reason: fmt.Sprintf("failed to parse policy config: %v", err)}
	}

	p := &model.Policy{
		AllowedTools:   fp.AllowedTools,
		MaxStepsPerRun: fp.MaxStepsPerRun,
		BudgetLimit:    fp.BudgetLimit,
		EscalationRule: fp.EscalationRule,
	}
	if p.AllowedTools == nil {
		p.AllowedTools = []string{}
	}

	gates, gatesField := fp.ApprovalGates, "approval_gates"
	if gates == nil && fp.ApprovalRequiredFor != nil {
		gates, gatesField = fp.ApprovalRequiredFor, "approval_required_for"
	}
	if gates != nil {
		for i, s := range gates.AccessLevels {
			a, ok := model.ParseAccessLevel(s)
			if !ok {
				return nil, &model.ConfigError{
					Field:  fmt.Sprintf("%s.access_levels[%d]", gatesField, i),
					Reason: fmt.Sprintf("unknown access level %q", s),
				}
			}
			p.ApprovalGates.AccessLevels = append(p.ApprovalGates.AccessLevels, a)
		}
		for i, s := range gates.RiskClasses {
			r, ok := model.ParseRiskClass(s)
			if !ok {
				return nil, &model.ConfigError{
					Field:  fmt.Sprintf("%s.risk_classes[%d]", gatesField, i),
					Reason: fmt.Sprintf("unknown risk class %q", s),
				}
			}
			p.ApprovalGates.RiskClasses = append(p.ApprovalGates.RiskClasses, r)
		}
	}

	if err := validateShape(p); err != nil {
		return nil, err
	}
	return p, nil
}

func validateShape(p *model.Policy) error {
	if p.MaxStepsPerRun <= 0 {
		return &model.ConfigError{Field: "max_steps_per_run", Reason: fmt.Sprintf("must be positive, got %d", p.MaxStepsPerRun)}
	}
	if p.BudgetLimit < 0 {
		return &model.ConfigError{Field: "budget_limit", Reason: fmt.Sprintf("must be non-negative, got %d", p.BudgetLimit)}
	}
	seen := make(map[string]bool, len(p.AllowedTools))
	for i, name := range p.AllowedTools {
		if name == "" {
			return &model.ConfigError{Field: fmt.Sprintf("allowed_tools[%d]", i), Reason: "tool name is empty"}
		}
		if seen[name] {
			return &model.ConfigError{Field: fmt.Sprintf("allowed_tools[%d]", i), Reason: fmt.Sprintf("duplicate tool %q", name)}
		}
		seen[name] = true
	}
	for i, a := range p.ApprovalGates.AccessLevels {
		if !a.Valid() {
			return &model.ConfigError{Field: fmt.Sprintf("approval_gates.access_levels[%d]", i), Reason: fmt.Sprintf("unknown access level %q", a)}
		}
	}
	for i, r := range p.ApprovalGates.RiskClasses {
		if !r.Valid() {
			return &model.ConfigError{Field: fmt.Sprintf("approval_gates.risk_classes[%d]", i), Reason: fmt.Sprintf("unknown risk class %q", r)}
		}
	}
	return nil
}

// Validate checks p on its own and against the tool catalog.
// Every allowed tool must exist in the catalog so that lookups cannot fail mid-run.
func Validate(p *model.Policy, cat *catalog.Catalog) error {
	if err := validateShape(p); err != nil {
		return err
	}
	if cat == nil {
		return nil
	}
	for i, name := range p.AllowedTools {
		if _, ok := cat.Lookup(name); !ok {
			return &model.ConfigError{
				Field:  fmt.Sprintf("allowed_tools[%d]", i),
				Reason: fmt.Sprintf("allowed tool %q is not in the tool registry", name),
			}
		}
	}
	return nil
}

// LoadConfig loads a policy from a YAML or JSON file.
// A missing file is a configuration error; there is no default policy for runs.
func LoadConfig(path string) (*model.Policy, error) {
	p, _, err := LoadConfigWithHash(path)
	return p, err
}

// LoadConfigWithHash loads a policy and returns its content hash.
func LoadConfigWithHash(path string) (*model.Policy, string, error) {
	if path == "" {
		return nil, "", &model.ConfigError{Field: "agent_policy", Reason: "policy file path is required"}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", &model.ConfigError{File: path, Reason: "policy file not found"}
		}
		return nil, "", fmt.Errorf("failed to read policy config: %w", err)
	}

	p, err := Parse(data)
	if err != nil {
		var ce *model.ConfigError
		if errors.As(err, &ce) {
			return nil, "", ce.WithFile(path)
		}
		return nil, "", err
	}

	hash, err := Hash(p)
	if err != nil {
		return nil, "", err
	}
	return p, hash, nil
}

// Hash returns "sha256:<hex>" over the RFC 8785 canonical JSON form of p,
// so YAML and JSON spellings of the same policy hash identically.
func Hash(p *model.Policy) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode policy: %w", err)
	}
	canon, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize policy: %w", err)
	}
	h := sha256.Sum256(canon)
	return "sha256:" + hex.EncodeToString(h[:]), nil
}

// DefaultConfigYAML returns a commented YAML string for guardsim init.
func DefaultConfigYAML() string {
	return `# guardsim agent policy
# Generated by: guardsim init
#
# Evaluation order (cannot be changed):
#   1. Tool permission  -> deny (critical)
#   2. Step limit       -> deny (high)
#   3. Budget limit     -> deny (high)
#   4. Approval gates   -> requires approval
#   5. Otherwise        -> approved

# Tools the agent may call. Every entry must exist in the tool registry.
allowed_tools:
  - MarketDataAPI_Read
  - Portfolio_Update
  - ReportGenerator

# Approved actions allowed per task. Counters reset for every task.
max_steps_per_run: 5

# Cost budget per task. An action is denied when its cost exceeds what remains.
budget_limit: 100

# Actions on tools matching any gate pause the task for human sign-off.
approval_gates:
  access_levels:
    - execute
  risk_classes:
    - critical

# Recorded as the resolution of every denial.
escalation_rule: "Notify Security Team and Terminate Agent"
`
}
