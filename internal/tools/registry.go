// Package tools defines the tools available to the concierge agent and the
// registry the agent consults to validate and dispatch tool requests.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/ziadkadry99/concierge/internal/llm"
)

// Handler executes a tool with decoded arguments and returns the result text.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Definition describes a single tool. Definitions are immutable once
// registered.
type Definition struct {
	Name        string
	Description string
	// Schema is the JSON Schema object for the arguments.
	Schema   json.RawMessage
	Required []string
	Handler  Handler
}

// MissingArguments returns the required argument names that are absent,
// null or blank in args, in declaration order.
func (d Definition) MissingArguments(args map[string]any) []string {
	return lo.Filter(d.Required, func(name string, _ int) bool {
		v, ok := args[name]
		if !ok || v == nil {
			return true
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			return true
		}
		return false
	})
}

// Registry holds the tools available to the agent. It is built once at
// startup and is safe for concurrent reads.
type Registry struct {
	tools map[string]Definition
}

// NewRegistry builds a registry from the given definitions.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{tools: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("tool definition without a name")
		}
		if d.Handler == nil {
			return nil, fmt.Errorf("tool %s has no handler", d.Name)
		}
		if _, dup := r.tools[d.Name]; dup {
			return nil, fmt.Errorf("tool %s registered twice", d.Name)
		}
		r.tools[d.Name] = d
	}
	return r, nil
}

// Get returns the definition for name.
func (r *Registry) Get(name string) (Definition, bool) {
	d, ok := r.tools[name]
	return d, ok
}

// Has reports whether a tool is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	names := lo.Keys(r.tools)
	slices.Sort(names)
	return names
}

// Schemas returns the model-facing tool schemas in name order.
func (r *Registry) Schemas() []llm.ToolSchema {
	return lo.Map(r.Names(), func(name string, _ int) llm.ToolSchema {
		d := r.tools[name]
		return llm.ToolSchema{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Schema,
		}
	})
}

// Describe renders one line per tool for inclusion in the system prompt.
func (r *Registry) Describe() string {
	lines := lo.Map(r.Names(), func(name string, _ int) string {
		d := r.tools[name]
		line := fmt.Sprintf("- %s: %s", d.Name, d.Description)
		if len(d.Required) > 0 {
			line += fmt.Sprintf(" (required: %s)", strings.Join(d.Required, ", "))
		}
		return line
	})
	return strings.Join(lines, "\n")
}
