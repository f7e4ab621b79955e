package tools

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// reflectSchema derives the JSON Schema and required argument names for
// an argument struct from its json and jsonschema tags.
func reflectSchema[T any]() (json.RawMessage, []string) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		Anonymous:                 true,
	}
	var v T
	schema := reflector.Reflect(v)
	schema.Version = ""

	raw, err := json.Marshal(schema)
	if err != nil {
		// Argument structs are static; a failure here is a programming error.
		panic(fmt.Sprintf("reflecting tool schema for %T: %v", v, err))
	}
	return raw, schema.Required
}

// decodeArgs converts a loosely typed argument map into an argument struct.
func decodeArgs[T any](args map[string]any) (T, error) {
	var out T
	raw, err := json.Marshal(args)
	if err != nil {
		return out, fmt.Errorf("encoding arguments: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("invalid arguments: %w", err)
	}
	return out, nil
}
