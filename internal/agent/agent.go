// Package agent implements the model-backed cognitive runtime. It owns the
// observation buffer, the reasoning trace, and the safety counters, and it
// turns provider output into decisions the evaluator can apply. Provider
// failures never escape: the runtime degrades to continue and the program
// runs on as if cognition were disabled.
package agent

import (
	"context"
	"fmt"
	"log/slog"

	"cogni/internal/cognition"
	"cogni/internal/oracle"
	"cogni/internal/value"
)

// Host is the evaluator-side view the runtime deliberates over. All methods
// reflect the state of the suspended program at the moment of the call.
type Host interface {
	// Source returns the full text of the running program.
	Source() string

	// Goals returns the program's goal declarations.
	Goals() []cognition.Goal

	// Invariants returns the source text of declared invariants.
	Invariants() []string

	// Variables returns the visible bindings, innermost scope winning.
	Variables() map[string]value.Value

	// CheckpointNames lists restorable checkpoints, oldest first.
	CheckpointNames() []string

	// ViolatedGoals evaluates each active goal check against current
	// state and returns the goals whose checks fail. Checks that cannot
	// be evaluated are not violations.
	ViolatedGoals(ctx context.Context) []cognition.Goal
}

// Options configures a Runtime.
type Options struct {
	Client  oracle.Client
	Trace   *cognition.Trace
	Safety  cognition.SafetyConfig
	Attempt int
	Extract cognition.GoalExtractor
	Logger  *slog.Logger
}

// Runtime is the active cognition.Runtime. Deliberation is blocking and
// single-threaded: the program does not advance while a decision is pending.
type Runtime struct {
	host    Host
	client  oracle.Client
	trace   *cognition.Trace
	safety  cognition.SafetyConfig
	attempt int
	extract cognition.GoalExtractor
	log     *slog.Logger
	prompt  string

	buf cognition.Buffer

	backtracks  int // consecutive backtrack decisions
	lastState   string
	sameState   int // consecutive deliberations with an unchanged fingerprint
	fingerprint bool
}

func New(host Host, opts Options) *Runtime {
	if opts.Trace == nil {
		opts.Trace = cognition.NewTrace()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	safety := opts.Safety.Normalize()
	return &Runtime{
		host:    host,
		client:  opts.Client,
		trace:   opts.Trace,
		safety:  safety,
		attempt: opts.Attempt,
		extract: opts.Extract,
		log:     opts.Logger,
		prompt:  oracle.BuildPrompt(safety),
	}
}

// Trace exposes the reasoning memory; the orchestrator threads it across
// attempts and the CLI exports it.
func (r *Runtime) Trace() *cognition.Trace { return r.trace }

func (r *Runtime) Observe(e cognition.ObservationEvent) { r.buf.Append(e) }

func (r *Runtime) IsActive() bool { return r != nil && r.client != nil }

// Deliberate reifies execution state, ships it to the provider, and maps
// the reply onto the decision algebra. Safety limits are enforced here:
// stalled state forces a halt before the provider is consulted, and a run
// of consecutive backtracks beyond the depth limit converts the next one
// into a halt.
func (r *Runtime) Deliberate(ctx context.Context, t cognition.Trigger) cognition.Decision {
	if !r.IsActive() {
		return cognition.Continue()
	}

	if d, halted := r.trackProgress(t); halted {
		return d
	}

	if !oracle.SpendBudget(ctx) {
		return r.record(t, cognition.Continue(), "deliberation budget exhausted")
	}

	req := r.buildRequest(t)
	ctx = oracle.WithStage(ctx, string(t.Kind))
	raw, err := r.client.GenerateJSON(ctx, r.prompt, req)
	if err != nil {
		r.log.Warn("oracle unavailable, continuing", "provider", r.client.Name(), "trigger", t.Kind, "err", err)
		return r.record(t, cognition.Continue(), fmt.Sprintf("provider failure: %v", err))
	}

	d, err := oracle.DecodeDecision(raw)
	if err != nil {
		r.log.Warn("undecodable decision, continuing", "provider", r.client.Name(), "err", err)
		return r.record(t, cognition.Continue(), fmt.Sprintf("malformed decision: %v", err))
	}

	switch d.Kind {
	case cognition.DecisionFix:
		if r.extract != nil {
			if verr := cognition.ValidateFix(d.NewCode, r.host.Goals(), r.safety, r.extract); verr != nil {
				return r.record(t, cognition.Continue(), verr.Error())
			}
		}
		r.backtracks = 0
	case cognition.DecisionBacktrack:
		r.backtracks++
		if r.backtracks > r.safety.MaxBacktrackDepth {
			msg := fmt.Sprintf("backtrack depth %d exceeded", r.safety.MaxBacktrackDepth)
			return r.record(t, cognition.Halt(msg), "forced by safety limit")
		}
	default:
		r.backtracks = 0
	}

	return r.record(t, d, "")
}

// CheckGoals deliberates once per violated goal and returns the decisions
// in goal order. No violations, no provider traffic.
func (r *Runtime) CheckGoals(ctx context.Context) []cognition.Decision {
	if !r.IsActive() {
		return nil
	}
	violated := r.host.ViolatedGoals(ctx)
	if len(violated) == 0 {
		return nil
	}
	out := make([]cognition.Decision, 0, len(violated))
	for _, g := range violated {
		t := cognition.Trigger{
			Kind:    cognition.TriggerGoalMisalignment,
			Goal:    g.Description,
			Message: fmt.Sprintf("goal check failed: %s", g.CheckSrc),
		}
		out = append(out, r.Deliberate(ctx, t))
	}
	return out
}

// trackProgress fingerprints the variable state and forces a halt once the
// fingerprint has repeated across the configured number of deliberations.
func (r *Runtime) trackProgress(t cognition.Trigger) (cognition.Decision, bool) {
	fp, err := cognition.Fingerprint(r.host.Variables())
	if err != nil {
		r.log.Warn("state fingerprint failed", "err", err)
		return cognition.Decision{}, false
	}
	if r.fingerprint && fp == r.lastState {
		r.sameState++
	} else {
		r.sameState = 0
	}
	r.lastState = fp
	r.fingerprint = true
	if r.sameState >= r.safety.MaxDeliberationsWithoutProgress {
		msg := fmt.Sprintf("no progress across %d deliberations", r.sameState+1)
		return r.record(t, cognition.Halt(msg), "forced by safety limit"), true
	}
	return cognition.Decision{}, false
}

func (r *Runtime) buildRequest(t cognition.Trigger) oracle.Request {
	vars := r.host.Variables()
	flat := make(map[string]any, len(vars))
	for k, v := range vars {
		flat[k] = value.ToJSON(v)
	}
	return oracle.Request{
		Trigger:      t,
		Goals:        r.host.Goals(),
		Invariants:   r.host.Invariants(),
		Source:       r.host.Source(),
		Variables:    flat,
		Observations: r.buf.Drain(),
		Checkpoints:  r.host.CheckpointNames(),
		Trace:        r.trace.Episodes,
	}
}

func (r *Runtime) record(t cognition.Trigger, d cognition.Decision, note string) cognition.Decision {
	r.trace.Record(cognition.ReasoningEpisode{
		Attempt:  r.attempt,
		Trigger:  t,
		Decision: d.String(),
		Note:     note,
	})
	r.log.Debug("deliberated", "trigger", t.Kind, "decision", d.String(), "attempt", r.attempt)
	return d
}
