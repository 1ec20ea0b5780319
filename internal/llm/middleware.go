package llm

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/fortify/timeout"
	"golang.org/x/time/rate"
)

// Middleware decorates a Client to inject cross-cutting concerns
// (rate limiting, resilience, logging, hooks).
type Middleware func(Client) Client

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner Client, mws ...Middleware) Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// -------- Rate Limiting --------

// RateLimit throttles completions to rps with the given burst.
// If rps <= 0, the middleware is a no-op.
func RateLimit(rps float64, burst int) Middleware {
	return func(next Client) Client {
		if rps <= 0 {
			return next
		}
		if burst < 1 {
			burst = 1
		}
		return &rateLimited{next: next, rl: rate.NewLimiter(rate.Limit(rps), burst)}
	}
}

type rateLimited struct {
	next Client
	rl   *rate.Limiter
}

func (c *rateLimited) Name() string { return c.next.Name() }
func (c *rateLimited) Close() error { return c.next.Close() }
func (c *rateLimited) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}
	return c.next.Complete(ctx, req)
}

// -------- Timeout & Retry --------

// Resilient bounds each completion by perCall and retries failed calls up to
// retries extra times with exponential backoff. With both zero it is a no-op.
func Resilient(perCall time.Duration, retries int) Middleware {
	return func(next Client) Client {
		if perCall <= 0 && retries <= 0 {
			return next
		}
		return &resilient{next: next, perCall: perCall, attempts: retries + 1}
	}
}

type resilient struct {
	next     Client
	perCall  time.Duration
	attempts int
}

func (r *resilient) Name() string { return r.next.Name() }
func (r *resilient) Close() error { return r.next.Close() }

func (r *resilient) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	call := func(ctx context.Context) (*Completion, error) {
		return r.next.Complete(ctx, req)
	}
	if r.perCall > 0 {
		t := timeout.New[*Completion](timeout.Config{DefaultTimeout: r.perCall})
		inner := call
		call = func(ctx context.Context) (*Completion, error) {
			return t.Execute(ctx, r.perCall, inner)
		}
	}
	if r.attempts <= 1 {
		return call(ctx)
	}
	rt := retry.New[*Completion](retry.Config{
		MaxAttempts:   r.attempts,
		InitialDelay:  300 * time.Millisecond,
		BackoffPolicy: retry.BackoffExponential,
	})
	// A permanent error ends the retry loop as a "success" and is reported
	// after Do returns.
	var permanent error
	out, err := rt.Do(ctx, func(ctx context.Context) (*Completion, error) {
		res, err := call(ctx)
		var pErr *PermanentError
		if errors.As(err, &pErr) {
			permanent = err
			return nil, nil
		}
		return res, err
	})
	if permanent != nil {
		return nil, permanent
	}
	return out, err
}

// -------- Logging & Hooks --------

// WithLogging logs prompt size, completion size and errors. Provide a custom
// logger or nil to use log.Default().
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next Client) Client {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next Client
	log  *log.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }
func (l *logging) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	started := time.Now()
	l.log.Printf("LLM request (%s, %s): %d bytes", l.next.Name(), StageFrom(ctx), len(req.Prompt))
	out, err := l.next.Complete(ctx, req)
	if err != nil {
		l.log.Printf("LLM error (%s, %s) after %s: %v", l.next.Name(), StageFrom(ctx), time.Since(started).Round(time.Millisecond), err)
		return out, err
	}
	if out != nil {
		l.log.Printf("LLM response (%s, %s): %d bytes in %s", l.next.Name(), StageFrom(ctx), len(out.Text), time.Since(started).Round(time.Millisecond))
	}
	return out, err
}

// WithHooks calls HookFrom(ctx).Before/After around Complete.
// If no hook is present in the context, it is a no-op.
func WithHooks() Middleware {
	return func(next Client) Client {
		return &hooked{next: next}
	}
}

type hooked struct{ next Client }

func (h *hooked) Name() string { return h.next.Name() }
func (h *hooked) Close() error { return h.next.Close() }
func (h *hooked) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	hook := HookFrom(ctx)
	if hook != nil {
		hook.Before(ctx, StageFrom(ctx), req)
	}
	out, err := h.next.Complete(ctx, req)
	if hook != nil {
		hook.After(ctx, StageFrom(ctx), out, err)
	}
	return out, err
}
