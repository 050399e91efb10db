package repair

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// RecordSchema is the JSON schema of one chunk extraction response.
const RecordSchema = `{
  "type": "object",
  "required": ["overview", "methods", "complexity"],
  "properties": {
    "overview": {"type": "string"},
    "methods": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "signature", "description"],
        "properties": {
          "name": {"type": "string"},
          "signature": {"type": "string"},
          "description": {"type": "string"}
        }
      }
    },
    "complexity": {"type": "string"},
    "notes": {
      "anyOf": [
        {"type": "null"},
        {"type": "string"},
        {"type": "array", "items": {"type": "string"}}
      ]
    }
  }
}`

// ProjectSchema is the JSON schema of the project synthesis response.
const ProjectSchema = `{
  "type": "object",
  "required": ["readme_summary", "main_features", "usage"],
  "properties": {
    "readme_summary": {"type": "string"},
    "main_features": {"type": "array", "items": {"type": "string"}},
    "usage": {"type": "string"}
  }
}`

// CompileSchema parses and resolves a JSON schema document.
func CompileSchema(text string) (*jsonschema.Resolved, error) {
	var schema jsonschema.Schema
	if err := json.Unmarshal([]byte(text), &schema); err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolving schema: %w", err)
	}
	return resolved, nil
}
