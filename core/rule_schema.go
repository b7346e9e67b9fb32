package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// ruleDocumentSchema describes the external rule representation.
const ruleDocumentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "definitions": {
    "node": {
      "type": "object",
      "minProperties": 1,
      "propertyNames": {
        "enum": ["AND", "OR", "NOT", "AttributeTag.name", "EventTag.name", "Tag.name", "Orgc.name", "Orgc.uuid"]
      },
      "properties": {
        "AND": {"$ref": "#/definitions/children"},
        "OR": {"$ref": "#/definitions/children"},
        "NOT": {"$ref": "#/definitions/children"}
      },
      "additionalProperties": {"$ref": "#/definitions/lookup"}
    },
    "children": {
      "anyOf": [
        {"type": "array", "items": {"$ref": "#/definitions/node"}},
        {"$ref": "#/definitions/node"}
      ]
    },
    "lookup": {
      "anyOf": [
        {"type": "string"},
        {"type": "array", "minItems": 1, "items": {"type": "string"}}
      ]
    }
  },
  "anyOf": [
    {"type": "null"},
    {"type": "object", "maxProperties": 0},
    {"$ref": "#/definitions/node"},
    {"type": "array", "items": {"$ref": "#/definitions/node"}}
  ]
}`

var ruleSchemaLoader = gojsonschema.NewStringLoader(ruleDocumentSchema)

// ValidateRuleDocument strictly validates a rule document before it is
// stored: schema check, parse within limits, then ValidateRule. It returns
// the parsed tree, which is nil for an empty document.
func ValidateRuleDocument(data []byte, limits RuleLimits) (RuleNode, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var v interface{}
	if err := yaml.Unmarshal(data, &v); err != nil {
		if jsonErr := json.Unmarshal(data, &v); jsonErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrRuleSyntax, err)
		}
	}

	result, err := gojsonschema.Validate(ruleSchemaLoader, gojsonschema.NewGoLoader(v))
	if err != nil {
		return nil, fmt.Errorf("failed to validate rule against schema: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidRule, strings.Join(msgs, "; "))
	}

	node, err := ParseRule(data, limits)
	if err != nil {
		return nil, err
	}
	if err := ValidateRule(node); err != nil {
		return nil, err
	}
	return node, nil
}
