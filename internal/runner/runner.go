// Package runner is the orchestrator: it drives a source program through
// cognitive execution, applying accepted fixes and re-running until the
// program completes or the retry budget is gone. Only the first attempt
// carries an agent-backed runtime; every re-run of repaired source executes
// under the null runtime, so a fix must stand on its own.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cogni/internal/agent"
	"cogni/internal/checkpoint"
	"cogni/internal/cognition"
	"cogni/internal/interp"
	"cogni/internal/oracle"
	"cogni/internal/value"
)

// Options configures one cognitive run.
type Options struct {
	// Client backs the first attempt's runtime. Nil runs every attempt
	// with the null runtime.
	Client oracle.Client

	// MaxRetries is the number of re-runs allowed after the first attempt.
	// Negative means zero.
	MaxRetries int

	Safety cognition.SafetyConfig

	// Budget caps deliberations across the whole run. Zero or negative
	// means unlimited.
	Budget int64

	// Checkpoints caps the checkpoint store per attempt. Zero means
	// unbounded.
	Checkpoints int

	// Capabilities are extra builtins granted to the program.
	Capabilities map[string]*value.Builtin

	Stdout io.Writer
	Logger *slog.Logger

	// Trace carries reasoning across attempts. Created when nil.
	Trace *cognition.Trace
}

// Result is the outcome of a completed run.
type Result struct {
	Value        value.Value
	FixesApplied int
	AttemptsUsed int
	Trace        *cognition.Trace
}

// RunCognitive executes source to completion. Parse failures of the
// original source are fatal and never retried; runtime failures consume
// retries; an accepted fix swaps the source and consumes a retry.
func RunCognitive(ctx context.Context, source string, opts Options) (Result, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Trace == nil {
		opts.Trace = cognition.NewTrace()
	}
	safety := opts.Safety.Normalize()
	if opts.Budget > 0 {
		ctx = oracle.WithBudget(ctx, opts.Budget)
	}

	var (
		attempt  int
		calls    int
		fixes    int
		rejected int
		lastErr  error
	)
	for {
		prog, err := interp.Load(source)
		if err != nil {
			if calls == 0 {
				return Result{Trace: opts.Trace}, err
			}
			// Validated fixes re-parse cleanly; reaching this is a bug.
			return Result{FixesApplied: fixes, AttemptsUsed: calls, Trace: opts.Trace},
				fmt.Errorf("replacement source failed to parse: %w", err)
		}

		calls++
		v, err := evaluate(ctx, prog, attempt, safety, opts)
		if err == nil {
			return Result{Value: v, FixesApplied: fixes, AttemptsUsed: calls, Trace: opts.Trace}, nil
		}

		var fix *interp.PendingFix
		if errors.As(err, &fix) {
			if verr := cognition.ValidateFix(fix.NewCode, prog.Goals, safety, interp.ExtractGoals); verr != nil {
				// The evaluator validated this fix before unwinding, so a
				// rejection here means the validation inputs diverged.
				// Re-run the same source, but bound how often.
				opts.Logger.Warn("accepted fix failed re-validation", "err", verr)
				rejected++
				if rejected > opts.MaxRetries {
					return Result{FixesApplied: fixes, AttemptsUsed: calls, Trace: opts.Trace}, verr
				}
				continue
			}
			opts.Logger.Info("applying fix", "explanation", fix.Explanation,
				"lines", cognition.FixLineCount(fix.NewCode))
			source = fix.NewCode
			fixes++
			attempt++
			if attempt > opts.MaxRetries {
				if lastErr == nil {
					lastErr = fmt.Errorf("retry budget exhausted after %d applied fixes", fixes)
				}
				return Result{FixesApplied: fixes, AttemptsUsed: calls, Trace: opts.Trace}, lastErr
			}
			continue
		}

		lastErr = err
		if attempt >= opts.MaxRetries {
			return Result{FixesApplied: fixes, AttemptsUsed: calls, Trace: opts.Trace}, err
		}
		attempt++
	}
}

// evaluate runs one attempt from a fresh environment and checkpoint store.
// Attempt zero gets the agent-backed runtime when a client is configured.
func evaluate(ctx context.Context, prog *interp.Program, attempt int, safety cognition.SafetyConfig, opts Options) (value.Value, error) {
	store, err := checkpoint.NewStore(opts.Checkpoints)
	if err != nil {
		return value.Nil, err
	}
	ev := interp.New(prog, interp.Options{
		Store:    store,
		Safety:   safety,
		Stdout:   opts.Stdout,
		Builtins: opts.Capabilities,
		Logger:   opts.Logger,
	})
	if attempt == 0 && opts.Client != nil {
		ev.SetRuntime(agent.New(ev, agent.Options{
			Client:  opts.Client,
			Trace:   opts.Trace,
			Safety:  safety,
			Attempt: attempt,
			Extract: interp.ExtractGoals,
			Logger:  opts.Logger,
		}))
	}
	return ev.Run(ctx)
}
