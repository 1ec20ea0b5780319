package llm

import "context"

// CallHook observes each completion. Implementations must not panic.
type CallHook interface {
	Before(ctx context.Context, stage string, req CompletionRequest)
	After(ctx context.Context, stage string, out *Completion, err error)
}

type ctxKeyHook struct{}
type ctxKeyStage struct{}

// WithHook attaches a CallHook to ctx. WithHooks picks it up.
func WithHook(ctx context.Context, hook CallHook) context.Context {
	return context.WithValue(ctx, ctxKeyHook{}, hook)
}

// HookFrom returns the hook stored in the context.
func HookFrom(ctx context.Context) CallHook {
	if h, ok := ctx.Value(ctxKeyHook{}).(CallHook); ok {
		return h
	}
	return nil
}

func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, ctxKeyStage{}, stage)
}

// StageFrom returns the stage tag stored in the context.
func StageFrom(ctx context.Context) string {
	if s, ok := ctx.Value(ctxKeyStage{}).(string); ok && s != "" {
		return s
	}
	return "unknown"
}
