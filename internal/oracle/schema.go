package oracle

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"cogni/internal/cognition"
	"cogni/internal/value"
)

// decisionSchema constrains provider output to exactly one of the five
// decision shapes. Anything else is rejected before it reaches the
// evaluator.
const decisionSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "oneOf": [
    {
      "type": "object",
      "properties": {
        "decision": {"const": "continue"}
      },
      "required": ["decision"],
      "additionalProperties": false
    },
    {
      "type": "object",
      "properties": {
        "decision": {"const": "override"},
        "value": {}
      },
      "required": ["decision", "value"],
      "additionalProperties": false
    },
    {
      "type": "object",
      "properties": {
        "decision": {"const": "fix"},
        "new_code": {"type": "string"},
        "explanation": {"type": "string"}
      },
      "required": ["decision", "new_code", "explanation"],
      "additionalProperties": false
    },
    {
      "type": "object",
      "properties": {
        "decision": {"const": "backtrack"},
        "checkpoint": {"type": "string"},
        "adjustments": {
          "type": "array",
          "items": {
            "type": "object",
            "properties": {
              "variable": {"type": "string"},
              "value": {}
            },
            "required": ["variable", "value"],
            "additionalProperties": false
          }
        }
      },
      "required": ["decision", "checkpoint"],
      "additionalProperties": false
    },
    {
      "type": "object",
      "properties": {
        "decision": {"const": "halt"},
        "error": {"type": "string"}
      },
      "required": ["decision", "error"],
      "additionalProperties": false
    }
  ]
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
		if err := c.AddResource("decision.json", strings.NewReader(decisionSchema)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile("decision.json")
	})
	return schema, schemaErr
}

type wireAdjustment struct {
	Variable string `json:"variable"`
	Value    any    `json:"value"`
}

type wireDecision struct {
	Decision    string           `json:"decision"`
	Value       any              `json:"value"`
	NewCode     string           `json:"new_code"`
	Explanation string           `json:"explanation"`
	Checkpoint  string           `json:"checkpoint"`
	Adjustments []wireAdjustment `json:"adjustments"`
	Error       string           `json:"error"`
}

// DecodeDecision validates raw provider output against the decision
// schema and converts it into a Decision.
func DecodeDecision(raw json.RawMessage) (cognition.Decision, error) {
	var probe any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return cognition.Decision{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	sch, err := compiledSchema()
	if err != nil {
		return cognition.Decision{}, fmt.Errorf("compile decision schema: %w", err)
	}
	if err := sch.Validate(probe); err != nil {
		return cognition.Decision{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	var w wireDecision
	if err := json.Unmarshal(raw, &w); err != nil {
		return cognition.Decision{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	switch w.Decision {
	case "continue":
		return cognition.Continue(), nil
	case "override":
		v, err := value.FromGo(w.Value)
		if err != nil {
			return cognition.Decision{}, fmt.Errorf("%w: override value: %v", ErrInvalidJSON, err)
		}
		return cognition.Override(v), nil
	case "fix":
		return cognition.Fix(w.NewCode, w.Explanation), nil
	case "backtrack":
		adjs := make([]cognition.Adjustment, 0, len(w.Adjustments))
		for _, a := range w.Adjustments {
			v, err := value.FromGo(a.Value)
			if err != nil {
				return cognition.Decision{}, fmt.Errorf("%w: adjustment %q: %v", ErrInvalidJSON, a.Variable, err)
			}
			adjs = append(adjs, cognition.Adjustment{Variable: a.Variable, Value: v})
		}
		return cognition.Backtrack(w.Checkpoint, adjs), nil
	case "halt":
		return cognition.Halt(w.Error), nil
	default:
		return cognition.Decision{}, fmt.Errorf("%w: unknown decision %q", ErrInvalidJSON, w.Decision)
	}
}
