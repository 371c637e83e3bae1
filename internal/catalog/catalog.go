// Package catalog holds the immutable per-run lookup of tool capability metadata.
package catalog

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/guardsim/internal/model"
	"github.com/ppiankov/guardsim/internal/schema"
)

// Catalog is a read-only index of tools by name. Safe for concurrent use.
type Catalog struct {
	tools  []model.Tool
	byName map[string]int
}

// New validates tools and builds a Catalog preserving their order.
func New(tools []model.Tool) (*Catalog, error) {
	c := &Catalog{
		tools:  make([]model.Tool, 0, len(tools)),
		byName: make(map[string]int, len(tools)),
	}
	for i, t := range tools {
		field := func(name string) string { return fmt.Sprintf("[%d].%s", i, name) }
		if t.Name == "" {
			return nil, &model.ConfigError{Field: field("name"), Reason: "tool name is required"}
		}
		if _, dup := c.byName[t.Name]; dup {
			return nil, &model.ConfigError{Field: field("name"), Reason: fmt.Sprintf("duplicate tool %q", t.Name)}
		}
		al, ok := model.ParseAccessLevel(string(t.AccessLevel))
		if !ok {
			return nil, &model.ConfigError{Field: field("access_level"), Reason: fmt.Sprintf("unknown access level %q for tool %s", t.AccessLevel, t.Name)}
		}
		rc, ok := model.ParseRiskClass(string(t.RiskClass))
		if !ok {
			return nil, &model.ConfigError{Field: field("risk_class"), Reason: fmt.Sprintf("unknown risk class %q for tool %s", t.RiskClass, t.Name)}
		}
		if t.BehaviorRef == "" {
			return nil, &model.ConfigError{Field: field("simulated_behavior_ref"), Reason: fmt.Sprintf("tool %s has no simulated behavior", t.Name)}
		}
		t.AccessLevel = al
		t.RiskClass = rc
		c.byName[t.Name] = len(c.tools)
		c.tools = append(c.tools, t)
	}
	return c, nil
}

// Lookup returns the tool registered under name.
func (c *Catalog) Lookup(name string) (model.Tool, bool) {
	i, ok := c.byName[name]
	if !ok {
		return model.Tool{}, false
	}
	return c.tools[i], true
}

// Tools returns a copy of every tool in catalog order.
func (c *Catalog) Tools() []model.Tool {
	out := make([]model.Tool, len(c.tools))
	copy(out, c.tools)
	return out
}

// Names returns every tool name in catalog order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.tools))
	for i, t := range c.tools {
		out[i] = t.Name
	}
	return out
}

// Len returns the number of tools.
func (c *Catalog) Len() int { return len(c.tools) }

// fileTool accepts both current and legacy field names.
type fileTool struct {
	Name              string `yaml:"name"`
	LegacyName        string `yaml:"tool_name"`
	Description       string `yaml:"description"`
	AccessLevel       string `yaml:"access_level"`
	RiskClass         string `yaml:"risk_class"`
	BehaviorRef       string `yaml:"simulated_behavior_ref"`
	LegacyBehaviorRef string `yaml:"mock_function_name"`
}

func (f fileTool) tool() model.Tool {
	t := model.Tool{
		Name:        f.Name,
		Description: f.Description,
		AccessLevel: model.AccessLevel(f.AccessLevel),
		RiskClass:   model.RiskClass(f.RiskClass),
		BehaviorRef: f.BehaviorRef,
	}
	if t.Name == "" {
		t.Name = f.LegacyName
	}
	if t.BehaviorRef == "" {
		t.BehaviorRef = f.LegacyBehaviorRef
	}
	return t
}

// Parse decodes a YAML or JSON tool registry document.
func Parse(data []byte) (*Catalog, error) {
	if err := schema.Validate(schema.ToolRegistry, data); err != nil {
		return nil, err
	}
	var raw []fileTool
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &model.ConfigError{Reason: fmt.Sprintf("failed to parse tool registry: %v", err)}
	}
	tools := make([]model.Tool, len(raw))
	for i, f := range raw {
		tools[i] = f.tool()
	}
	return New(tools)
}

// Load reads a tool registry from path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tool registry: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, withFile(err, path)
	}
	return c, nil
}

func withFile(err error, path string) error {
	var ce *model.ConfigError
	if errors.As(err, &ce) {
		return ce.WithFile(path)
	}
	return err
}
