package oracle

import (
	"fmt"

	"cogni/internal/cognition"
)

// Request is the reified execution state shipped to the provider when
// the evaluator suspends.
type Request struct {
	Trigger      cognition.Trigger            `json:"trigger"`
	Goals        []cognition.Goal             `json:"goals"`
	Invariants   []string                     `json:"invariants"`
	Source       string                       `json:"source"`
	Variables    map[string]any               `json:"variables"`
	Observations []cognition.ObservationEvent `json:"observations"`
	Checkpoints  []string                     `json:"checkpoints"`
	Trace        []cognition.ReasoningEpisode `json:"trace"`
}

const promptTemplate = `You are the deliberation engine for a suspended Cogni program.
The interpreter hit a trigger and handed you its full execution state:
the source code, declared goals and invariants, current variable
bindings, recent observations, available checkpoint names, and the
reasoning trace so far.

Reply with EXACTLY ONE JSON object and nothing else. No prose, no
markdown fences. The object must take one of these five shapes:

  {"decision": "continue"}
      Resume execution unchanged. For technical errors this lets the
      original error propagate.

  {"decision": "override", "value": <json>}
      Resume with <json> as the result of the failing expression.

  {"decision": "fix", "new_code": "<entire program>", "explanation": "<why>"}
      Replace the whole program and restart. new_code must parse, must
      declare exactly the same goals as the current source, and must
      stay within %d lines.

  {"decision": "backtrack", "checkpoint": "<name>", "adjustments": [{"variable": "<name>", "value": <json>}]}
      Restore the named checkpoint, apply the adjustments in order,
      then resume from it. The checkpoint must be one of the listed
      names. adjustments may be empty or omitted.

  {"decision": "halt", "error": "<message>"}
      Stop the program with the given error.

Prefer the least invasive decision that still serves the declared
goals. Use halt when no recovery is sound.`

// BuildPrompt renders the deliberation instructions for the given
// safety limits.
func BuildPrompt(safety cognition.SafetyConfig) string {
	safety = safety.Normalize()
	return fmt.Sprintf(promptTemplate, safety.MaxFixLines)
}
