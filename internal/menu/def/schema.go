package def

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "mem://holoui/menu.schema.json"

const menuSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$defs": {
    "vec3": {
      "type": "array",
      "items": {"type": "number"},
      "minItems": 3,
      "maxItems": 3
    },
    "icon": {
      "type": "object",
      "required": ["type"],
      "properties": {
        "type": {"enum": ["item", "text", "image", "animated"]},
        "item": {"type": "string", "minLength": 1},
        "count": {"type": "integer", "minimum": 0},
        "model_data": {"type": "integer"},
        "text": {"type": "string"},
        "path": {"type": "string", "minLength": 1},
        "frames": {"type": "array", "items": {"type": "string", "minLength": 1}},
        "speed": {"type": "integer", "minimum": 1}
      },
      "allOf": [
        {"if": {"properties": {"type": {"const": "item"}}}, "then": {"required": ["item"]}},
        {"if": {"properties": {"type": {"const": "text"}}}, "then": {"required": ["text"]}},
        {"if": {"properties": {"type": {"const": "image"}}}, "then": {"required": ["path"]}},
        {"if": {"properties": {"type": {"const": "animated"}}}, "then": {"anyOf": [{"required": ["frames"]}, {"required": ["path"]}]}}
      ]
    },
    "action": {
      "type": "object",
      "required": ["type"],
      "properties": {
        "type": {"enum": ["command", "sound", "message"]},
        "command": {"type": "string", "minLength": 1},
        "source": {"type": "string"},
        "sound": {"type": "string", "minLength": 1},
        "volume": {"type": "number", "minimum": 0},
        "pitch": {"type": "number", "minimum": 0},
        "text": {"type": "string", "minLength": 1},
        "action_bar": {"type": "boolean"}
      },
      "allOf": [
        {"if": {"properties": {"type": {"const": "command"}}}, "then": {"required": ["command"]}},
        {"if": {"properties": {"type": {"const": "sound"}}}, "then": {"required": ["sound"]}},
        {"if": {"properties": {"type": {"const": "message"}}}, "then": {"required": ["text"]}}
      ]
    },
    "actions": {"type": "array", "items": {"$ref": "#/$defs/action"}},
    "component": {
      "type": "object",
      "required": ["id", "type"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "type": {"enum": ["decoration", "button", "toggle"]},
        "offset": {"$ref": "#/$defs/vec3"},
        "icon": {"$ref": "#/$defs/icon"},
        "highlight_mod": {"type": "number"},
        "actions": {"$ref": "#/$defs/actions"},
        "condition": {"type": "string"},
        "expected": {"type": "string"},
        "true_icon": {"$ref": "#/$defs/icon"},
        "false_icon": {"$ref": "#/$defs/icon"},
        "true_actions": {"$ref": "#/$defs/actions"},
        "false_actions": {"$ref": "#/$defs/actions"}
      },
      "allOf": [
        {"if": {"properties": {"type": {"enum": ["decoration", "button"]}}}, "then": {"required": ["icon"]}},
        {"if": {"properties": {"type": {"const": "toggle"}}}, "then": {"required": ["condition", "expected", "true_icon", "false_icon"]}}
      ]
    }
  },
  "type": "object",
  "required": ["components"],
  "properties": {
    "offset": {"$ref": "#/$defs/vec3"},
    "lock_position": {"type": "boolean"},
    "follow_observer": {"type": "boolean"},
    "close_on_death": {"type": "boolean"},
    "close_on_teleport": {"type": "boolean"},
    "max_distance": {"type": "number", "exclusiveMinimum": 0},
    "components": {"type": "array", "items": {"$ref": "#/$defs/component"}}
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(schemaURL, strings.NewReader(menuSchema)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

// validate checks a YAML-decoded document against the menu schema. The
// document is round-tripped through JSON so numbers and maps have the shapes
// the validator expects.
func validate(doc any) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("menu schema: %w", err)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}
	return nil
}
