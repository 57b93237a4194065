package oracle

import (
	"context"
	"encoding/json"
	"sync"
)

// Step is one scripted provider response.
type Step struct {
	Raw json.RawMessage
	Err error
}

// ScriptClient replays a fixed sequence of responses and records every
// request it sees. After the script runs out it keeps answering with a
// continue decision. Used by tests and the null provider mode.
type ScriptClient struct {
	mu      sync.Mutex
	steps   []Step
	i       int
	Prompts []string
	Inputs  []any
}

// NewScript builds a ScriptClient from raw JSON responses.
func NewScript(raw ...string) *ScriptClient {
	s := &ScriptClient{}
	for _, r := range raw {
		s.steps = append(s.steps, Step{Raw: json.RawMessage(r)})
	}
	return s
}

// NewScriptSteps builds a ScriptClient from explicit steps, allowing
// error injection.
func NewScriptSteps(steps ...Step) *ScriptClient {
	return &ScriptClient{steps: steps}
}

func (s *ScriptClient) Name() string { return "script" }
func (s *ScriptClient) Close() error { return nil }

func (s *ScriptClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Prompts = append(s.Prompts, prompt)
	s.Inputs = append(s.Inputs, input)
	if s.i >= len(s.steps) {
		return json.RawMessage(`{"decision":"continue"}`), nil
	}
	st := s.steps[s.i]
	s.i++
	if st.Err != nil {
		return nil, st.Err
	}
	return st.Raw, nil
}

// Calls reports how many requests the client has served.
func (s *ScriptClient) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Prompts)
}
