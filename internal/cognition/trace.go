package cognition

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ReasoningEpisode is the append-only record of one deliberation. Episodes
// feed back into later deliberations as context and survive across
// orchestrator attempts.
type ReasoningEpisode struct {
	ID       string    `json:"id"`
	Attempt  int       `json:"attempt"`
	Trigger  Trigger   `json:"trigger"`
	Decision string    `json:"decision"`
	Note     string    `json:"note,omitempty"`
	At       time.Time `json:"at"`
}

// Trace is the reasoning memory of one run.
type Trace struct {
	RunID    string             `json:"run_id"`
	Episodes []ReasoningEpisode `json:"episodes"`
}

func NewTrace() *Trace {
	return &Trace{RunID: uuid.NewString()}
}

// Record appends an episode, stamping ID and time when unset.
func (t *Trace) Record(ep ReasoningEpisode) {
	if ep.ID == "" {
		ep.ID = uuid.NewString()
	}
	if ep.At.IsZero() {
		ep.At = time.Now().UTC()
	}
	t.Episodes = append(t.Episodes, ep)
}

func (t *Trace) Len() int { return len(t.Episodes) }

// JSON renders the trace for export.
func (t *Trace) JSON() ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}
