package resolver

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// templateSchema validates template documents before they reach the asset
// layer. Kept in sync with schemas/template.schema.json.
const templateSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["name", "sizing", "root"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "mesh": {"type": "string"},
    "instancing": {"type": "boolean"},
    "unique_materials": {"type": "boolean"},
    "sizing": {
      "type": "object",
      "required": ["target"],
      "properties": {
        "target": {"type": "number", "minimum": 0},
        "axis": {"enum": ["largest", "height"]}
      }
    },
    "root": {"$ref": "#/$defs/node"}
  },
  "$defs": {
    "node": {
      "type": "object",
      "required": ["name", "dims"],
      "properties": {
        "name": {"type": "string"},
        "dims": {"type": "array", "items": {"type": "number", "minimum": 0}, "minItems": 3, "maxItems": 3},
        "offset": {"type": "array", "items": {"type": "number"}, "minItems": 3, "maxItems": 3},
        "children": {"type": "array", "items": {"$ref": "#/$defs/node"}}
      }
    }
  }
}`

var compiledTemplateSchema = jsonschema.MustCompileString("template.schema.json", templateSchema)

// validateDocument checks raw JSON against the template schema.
func validateDocument(raw []byte) error {
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("template json: %w", err)
	}
	if err := compiledTemplateSchema.Validate(v); err != nil {
		return fmt.Errorf("template schema: %w", err)
	}
	return nil
}
