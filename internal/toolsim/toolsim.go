// Package toolsim provides the deterministic, side-effect-free stand-ins that
// replace real tool invocations during a simulated run.
package toolsim

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ppiankov/guardsim/internal/catalog"
	"github.com/ppiankov/guardsim/internal/model"
)

// Behavior is one simulated tool implementation.
type Behavior interface {
	Invoke(ctx context.Context, params map[string]any) (map[string]any, error)
}

// BehaviorFunc adapts a function to Behavior.
type BehaviorFunc func(ctx context.Context, params map[string]any) (map[string]any, error)

// Invoke calls f.
func (f BehaviorFunc) Invoke(ctx context.Context, params map[string]any) (map[string]any, error) {
	return f(ctx, params)
}

// Registry maps simulated_behavior_ref values to behaviors.
type Registry map[string]Behavior

// Refs returns the registered references, sorted.
func (r Registry) Refs() []string {
	refs := make([]string, 0, len(r))
	for k := range r {
		refs = append(refs, k)
	}
	sort.Strings(refs)
	return refs
}

// Bindings maps tool names to their resolved behavior.
type Bindings map[string]Behavior

// Bind resolves every catalog tool to a behavior.
// A tool whose reference is not registered is a configuration error.
func (r Registry) Bind(cat *catalog.Catalog) (Bindings, error) {
	b := make(Bindings, cat.Len())
	for i, t := range cat.Tools() {
		beh, ok := r[t.BehaviorRef]
		if !ok {
			return nil, &model.ConfigError{
				Field:  fmt.Sprintf("[%d].simulated_behavior_ref", i),
				Reason: fmt.Sprintf("tool %s references unknown behavior %q", t.Name, t.BehaviorRef),
			}
		}
		b[t.Name] = beh
	}
	return b, nil
}

// ErrNoBinding is returned by Invoke when a tool has no bound behavior.
var ErrNoBinding = errors.New("no simulated behavior bound")

// Invoke runs the behavior bound to toolName and converts the outcome into a ToolResult.
// Behavior errors become failure results; they are never propagated.
func (b Bindings) Invoke(ctx context.Context, toolName string, params map[string]any) model.ToolResult {
	beh, ok := b[toolName]
	if !ok {
		return model.ToolResult{Status: model.ToolFailure, Error: fmt.Sprintf("%s: %v", toolName, ErrNoBinding)}
	}
	out, err := beh.Invoke(ctx, params)
	if err != nil {
		return model.ToolResult{Status: model.ToolFailure, Error: err.Error()}
	}
	return model.ToolResult{Status: model.ToolSuccess, Output: out}
}
