// Package schema validates guardsim input documents against embedded JSON schemas.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/guardsim/internal/model"
)

// Kind identifies one of the input documents.
type Kind string

const (
	ToolRegistry    Kind = "tool_registry"
	AgentPolicy     Kind = "agent_policy"
	TaskDefinitions Kind = "task_definitions"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var (
	compileOnce sync.Once
	compiled    map[Kind]*jsonschema.Schema
	compileErr  error
)

func schemaURL(k Kind) string {
	return fmt.Sprintf("https://guardsim.local/schemas/%s.schema.json", k)
}

func compileAll() {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	kinds := []Kind{ToolRegistry, AgentPolicy, TaskDefinitions}
	for _, k := range kinds {
		data, err := schemaFS.ReadFile("schemas/" + string(k) + ".schema.json")
		if err != nil {
			compileErr = fmt.Errorf("schema %s: %w", k, err)
			return
		}
		if err := c.AddResource(schemaURL(k), bytes.NewReader(data)); err != nil {
			compileErr = fmt.Errorf("schema %s load failed: %w", k, err)
			return
		}
	}
	compiled = make(map[Kind]*jsonschema.Schema, len(kinds))
	for _, k := range kinds {
		s, err := c.Compile(schemaURL(k))
		if err != nil {
			compileErr = fmt.Errorf("schema %s compile failed: %w", k, err)
			return
		}
		compiled[k] = s
	}
}

// Validate checks a YAML or JSON document of the given kind.
// Violations are returned as *model.ConfigError naming the offending field.
func Validate(kind Kind, data []byte) error {
	compileOnce.Do(compileAll)
	if compileErr != nil {
		return compileErr
	}
	s, ok := compiled[kind]
	if !ok {
		return fmt.Errorf("unknown schema kind %q", kind)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return &model.ConfigError{Reason: fmt.Sprintf("parse %s: %v", kind, err)}
	}
	if doc == nil {
		return &model.ConfigError{Reason: fmt.Sprintf("%s is empty", kind)}
	}

	// Round-trip through JSON so numbers and maps have the shapes the validator expects.
	raw, err := json.Marshal(doc)
	if err != nil {
		return &model.ConfigError{Reason: fmt.Sprintf("%s is not representable as JSON: %v", kind, err)}
	}
	var inst any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&inst); err != nil {
		return &model.ConfigError{Reason: fmt.Sprintf("decode %s: %v", kind, err)}
	}

	if err := s.Validate(inst); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			leaf := deepest(ve)
			return &model.ConfigError{
				Field:  FieldPath(leaf.InstanceLocation),
				Reason: leaf.Message,
			}
		}
		return &model.ConfigError{Reason: err.Error()}
	}
	return nil
}

func deepest(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}

// FieldPath converts a JSON pointer such as "/approval_gates/risk_classes/1"
// into "approval_gates.risk_classes[1]". The document root is "(root)".
func FieldPath(pointer string) string {
	pointer = strings.TrimPrefix(pointer, "/")
	if pointer == "" {
		return "(root)"
	}
	var b strings.Builder
	for _, seg := range strings.Split(pointer, "/") {
		seg = strings.ReplaceAll(strings.ReplaceAll(seg, "~1", "/"), "~0", "~")
		if _, err := strconv.Atoi(seg); err == nil {
			fmt.Fprintf(&b, "[%s]", seg)
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg)
	}
	return b.String()
}
