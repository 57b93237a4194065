package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cogni/internal/cognition"
	"cogni/internal/oracle"
	"cogni/internal/tester"
	"cogni/internal/value"
)

type fakeHost struct {
	src      string
	goals    []cognition.Goal
	invs     []string
	vars     map[string]value.Value
	cps      []string
	violated []cognition.Goal
}

func (h *fakeHost) Source() string            { return h.src }
func (h *fakeHost) Goals() []cognition.Goal   { return h.goals }
func (h *fakeHost) Invariants() []string      { return h.invs }
func (h *fakeHost) CheckpointNames() []string { return h.cps }

func (h *fakeHost) Variables() map[string]value.Value { return h.vars }

func (h *fakeHost) ViolatedGoals(context.Context) []cognition.Goal { return h.violated }

// lineGoals treats each "goal: <desc>" line as a declaration and "!" as a
// parse failure, standing in for the real front end.
func lineGoals(src string) ([]cognition.Goal, error) {
	if strings.Contains(src, "!") {
		return nil, errors.New("boom")
	}
	var goals []cognition.Goal
	for _, line := range strings.Split(src, "\n") {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(line), "goal: "); ok {
			goals = append(goals, cognition.Goal{Description: rest})
		}
	}
	return goals, nil
}

func newHost() *fakeHost {
	return &fakeHost{
		src:  "let x = 1",
		vars: map[string]value.Value{"x": value.Num(1)},
		cps:  []string{"start"},
	}
}

func runtimeWith(h Host, client oracle.Client) *Runtime {
	return New(h, Options{Client: client, Extract: lineGoals})
}

func TestDeliberatePassesDecisionThrough(t *testing.T) {
	s := oracle.NewScript(`{"decision":"halt","error":"done"}`)
	r := runtimeWith(newHost(), s)
	d := r.Deliberate(context.Background(), cognition.Trigger{Kind: cognition.TriggerExplicitReason, Question: "why"})
	tester.Eq(t, d.Kind, cognition.DecisionHalt)
	tester.Eq(t, d.Err, "done")
	tester.Eq(t, r.Trace().Len(), 1)
	tester.Eq(t, r.Trace().Episodes[0].Decision, "halt(done)")
}

func TestDeliberateFailOpenOnProviderError(t *testing.T) {
	s := oracle.NewScriptSteps(oracle.Step{Err: errors.New("network down")})
	r := runtimeWith(newHost(), s)
	d := r.Deliberate(context.Background(), cognition.Trigger{Kind: cognition.TriggerTechnicalError, Message: "division by zero"})
	tester.Eq(t, d.Kind, cognition.DecisionContinue)
	tester.Eq(t, r.Trace().Len(), 1)
	tester.True(t, strings.Contains(r.Trace().Episodes[0].Note, "provider failure"), "trace notes the failure")
}

func TestDeliberateFailOpenOnMalformedDecision(t *testing.T) {
	s := oracle.NewScript(`{"decision":"improvise"}`)
	r := runtimeWith(newHost(), s)
	d := r.Deliberate(context.Background(), cognition.Trigger{Kind: cognition.TriggerExpectFailed})
	tester.Eq(t, d.Kind, cognition.DecisionContinue)
	tester.True(t, strings.Contains(r.Trace().Episodes[0].Note, "malformed decision"), "trace notes the reject")
}

func TestDeliberateRejectsBadFix(t *testing.T) {
	h := newHost()
	h.goals = []cognition.Goal{{Description: "stay small"}}
	// Proposed code drops the declared goal.
	s := oracle.NewScript(`{"decision":"fix","new_code":"let x = 2","explanation":"tweak"}`)
	r := runtimeWith(h, s)
	d := r.Deliberate(context.Background(), cognition.Trigger{Kind: cognition.TriggerTechnicalError})
	tester.Eq(t, d.Kind, cognition.DecisionContinue)
	tester.True(t, strings.Contains(r.Trace().Episodes[0].Note, "fix rejected"), "rejection reason recorded")
}

func TestDeliberateAcceptsValidFix(t *testing.T) {
	h := newHost()
	h.goals = []cognition.Goal{{Description: "stay small"}}
	s := oracle.NewScript(`{"decision":"fix","new_code":"goal: stay small\nlet x = 2","explanation":"tweak"}`)
	r := runtimeWith(h, s)
	d := r.Deliberate(context.Background(), cognition.Trigger{Kind: cognition.TriggerTechnicalError})
	tester.Eq(t, d.Kind, cognition.DecisionFix)
	tester.Eq(t, d.NewCode, "goal: stay small\nlet x = 2")
}

func TestBacktrackDepthForcesHalt(t *testing.T) {
	h := newHost()
	raws := make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		raws = append(raws, `{"decision":"backtrack","checkpoint":"start"}`)
	}
	s := oracle.NewScript(raws...)
	r := runtimeWith(h, s)

	ctx := context.Background()
	var last cognition.Decision
	for i := 0; i < 6; i++ {
		// Mutate state so the progress guard stays quiet.
		h.vars["x"] = value.Num(float64(i))
		last = r.Deliberate(ctx, cognition.Trigger{Kind: cognition.TriggerExpectFailed})
		if i < 5 {
			tester.Eq(t, last.Kind, cognition.DecisionBacktrack)
		}
	}
	tester.Eq(t, last.Kind, cognition.DecisionHalt)
	tester.True(t, strings.Contains(last.Err, "backtrack depth"), "halt names the limit")
	tester.Eq(t, s.Calls(), 6, "sixth decision still consults the provider")
}

func TestBacktrackCounterResetsOnOtherDecision(t *testing.T) {
	h := newHost()
	s := oracle.NewScript(
		`{"decision":"backtrack","checkpoint":"start"}`,
		`{"decision":"backtrack","checkpoint":"start"}`,
		`{"decision":"continue"}`,
		`{"decision":"backtrack","checkpoint":"start"}`,
	)
	r := runtimeWith(h, s)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		h.vars["x"] = value.Num(float64(i))
		d := r.Deliberate(ctx, cognition.Trigger{Kind: cognition.TriggerExpectFailed})
		tester.True(t, d.Kind != cognition.DecisionHalt, "no forced halt with interleaved continues")
	}
}

func TestNoProgressForcesHalt(t *testing.T) {
	h := newHost() // vars never change
	s := oracle.NewScript()
	r := runtimeWith(h, s)
	ctx := context.Background()

	var d cognition.Decision
	for i := 0; i < 4; i++ {
		d = r.Deliberate(ctx, cognition.Trigger{Kind: cognition.TriggerExplicitReason, Question: "stuck?"})
	}
	tester.Eq(t, d.Kind, cognition.DecisionHalt)
	tester.True(t, strings.Contains(d.Err, "no progress"), "halt names the stall")
	tester.Eq(t, s.Calls(), 3, "the stalled deliberation skips the provider")
}

func TestProgressResetsOnStateChange(t *testing.T) {
	h := newHost()
	s := oracle.NewScript()
	r := runtimeWith(h, s)
	ctx := context.Background()
	for i := 0; i < 6; i++ {
		h.vars["x"] = value.Num(float64(i))
		d := r.Deliberate(ctx, cognition.Trigger{Kind: cognition.TriggerExplicitReason})
		tester.Eq(t, d.Kind, cognition.DecisionContinue)
	}
	tester.Eq(t, s.Calls(), 6)
}

func TestBudgetExhaustionSkipsProvider(t *testing.T) {
	h := newHost()
	s := oracle.NewScript()
	r := runtimeWith(h, s)
	ctx := oracle.WithBudget(context.Background(), 1)

	h.vars["x"] = value.Num(1)
	d := r.Deliberate(ctx, cognition.Trigger{Kind: cognition.TriggerExplicitReason})
	tester.Eq(t, d.Kind, cognition.DecisionContinue)
	tester.Eq(t, s.Calls(), 1)

	h.vars["x"] = value.Num(2)
	d = r.Deliberate(ctx, cognition.Trigger{Kind: cognition.TriggerExplicitReason})
	tester.Eq(t, d.Kind, cognition.DecisionContinue)
	tester.Eq(t, s.Calls(), 1, "exhausted budget never reaches the provider")
	tester.True(t, strings.Contains(r.Trace().Episodes[1].Note, "budget"), "trace notes the skip")
}

func TestObservationsDrainIntoRequest(t *testing.T) {
	h := newHost()
	s := oracle.NewScript()
	r := runtimeWith(h, s)

	r.Observe(cognition.ValueChanged(1, "x", value.Num(1), value.Num(2)))
	r.Observe(cognition.CheckpointCreated(2, "start"))

	ctx := context.Background()
	r.Deliberate(ctx, cognition.Trigger{Kind: cognition.TriggerExplicitReason})
	req := s.Inputs[0].(oracle.Request)
	tester.Eq(t, len(req.Observations), 2)
	tester.Eq(t, req.Observations[0].Var, "x")
	tester.Eq(t, req.Source, "let x = 1")
	tester.Eq(t, req.Checkpoints, []string{"start"})

	h.vars["x"] = value.Num(3)
	r.Deliberate(ctx, cognition.Trigger{Kind: cognition.TriggerExplicitReason})
	req = s.Inputs[1].(oracle.Request)
	tester.Eq(t, len(req.Observations), 0, "buffer drained by the first deliberation")
}

func TestCheckGoalsDeliberatesPerViolation(t *testing.T) {
	h := newHost()
	h.violated = []cognition.Goal{
		{Description: "keep totals positive", CheckSrc: "total > 0"},
		{Description: "stay under budget", CheckSrc: "spent < limit"},
	}
	s := oracle.NewScript(
		`{"decision":"override","value":5}`,
		`{"decision":"continue"}`,
	)
	r := runtimeWith(h, s)
	ds := r.CheckGoals(context.Background())
	tester.Eq(t, len(ds), 2)
	tester.Eq(t, ds[0].Kind, cognition.DecisionOverride)
	tester.Eq(t, ds[1].Kind, cognition.DecisionContinue)

	ep := r.Trace().Episodes[0]
	tester.Eq(t, ep.Trigger.Kind, cognition.TriggerGoalMisalignment)
	tester.Eq(t, ep.Trigger.Goal, "keep totals positive")
}

func TestCheckGoalsQuietWhenAligned(t *testing.T) {
	h := newHost()
	s := oracle.NewScript()
	r := runtimeWith(h, s)
	ds := r.CheckGoals(context.Background())
	tester.Eq(t, len(ds), 0)
	tester.Eq(t, s.Calls(), 0)
}

func TestAttemptNumberStampsEpisodes(t *testing.T) {
	h := newHost()
	s := oracle.NewScript()
	r := New(h, Options{Client: s, Extract: lineGoals, Attempt: 2})
	r.Deliberate(context.Background(), cognition.Trigger{Kind: cognition.TriggerExplicitReason})
	tester.Eq(t, r.Trace().Episodes[0].Attempt, 2)
}

func TestInactiveWithoutClient(t *testing.T) {
	r := New(newHost(), Options{})
	tester.False(t, r.IsActive(), "no client means inactive")
	d := r.Deliberate(context.Background(), cognition.Trigger{Kind: cognition.TriggerTechnicalError})
	tester.Eq(t, d.Kind, cognition.DecisionContinue)
	tester.Eq(t, r.Trace().Len(), 0, "inactive runtime records nothing")
}
