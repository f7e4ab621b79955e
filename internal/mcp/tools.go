package mcp

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/samber/lo"

	"github.com/ziadkadry99/concierge/internal/tools"
)

type schemaProperty struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// toolFor translates a registry definition into an MCP tool, carrying over
// each property's type, description and required flag.
func toolFor(def tools.Definition) (mcp.Tool, error) {
	var schema struct {
		Properties map[string]schemaProperty `json:"properties"`
	}
	if len(def.Schema) > 0 {
		if err := json.Unmarshal(def.Schema, &schema); err != nil {
			return mcp.Tool{}, fmt.Errorf("tool %s: parsing schema: %w", def.Name, err)
		}
	}

	opts := []mcp.ToolOption{mcp.WithDescription(def.Description)}

	names := lo.Keys(schema.Properties)
	sort.Strings(names)
	for _, name := range names {
		prop := schema.Properties[name]
		var popts []mcp.PropertyOption
		if prop.Description != "" {
			popts = append(popts, mcp.Description(prop.Description))
		}
		if lo.Contains(def.Required, name) {
			popts = append(popts, mcp.Required())
		}

		switch prop.Type {
		case "number", "integer":
			opts = append(opts, mcp.WithNumber(name, popts...))
		case "boolean":
			opts = append(opts, mcp.WithBoolean(name, popts...))
		default:
			opts = append(opts, mcp.WithString(name, popts...))
		}
	}

	return mcp.NewTool(def.Name, opts...), nil
}
