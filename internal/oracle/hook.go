package oracle

import (
	"context"
	"encoding/json"
)

// PromptHook observes provider traffic. Both callbacks are optional.
type PromptHook struct {
	Before func(stage, provider, prompt string, input any)
	After  func(stage, provider string, resp json.RawMessage, err error)
}

type hookKey struct{}
type stageKey struct{}

// WithHook attaches a PromptHook to ctx.
func WithHook(ctx context.Context, h *PromptHook) context.Context {
	return context.WithValue(ctx, hookKey{}, h)
}

// HookFrom returns the attached hook, or nil.
func HookFrom(ctx context.Context) *PromptHook {
	h, _ := ctx.Value(hookKey{}).(*PromptHook)
	return h
}

// WithStage labels subsequent provider calls, e.g. "deliberate".
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey{}, stage)
}

// StageFrom returns the current stage label, or "".
func StageFrom(ctx context.Context) string {
	s, _ := ctx.Value(stageKey{}).(string)
	return s
}

func hookBefore(ctx context.Context, provider, prompt string, input any) {
	if h := HookFrom(ctx); h != nil && h.Before != nil {
		h.Before(StageFrom(ctx), provider, prompt, input)
	}
}

func hookAfter(ctx context.Context, provider string, resp json.RawMessage, err error) {
	if h := HookFrom(ctx); h != nil && h.After != nil {
		h.After(StageFrom(ctx), provider, resp, err)
	}
}
