// Package llm is the model invocation layer: a provider-neutral Client, the
// middlewares that decorate it, and Invoke, which turns any provider failure
// into an InvocationError.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrInvocationFailed is matched by every error Invoke returns.
var ErrInvocationFailed = errors.New("llm: invocation failed")

// ErrEmptyCompletion is returned when the provider answers without any text.
var ErrEmptyCompletion = errors.New("llm: empty completion")

type CompletionRequest struct {
	Model       string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

type Completion struct {
	Text  string
	Model string
	Usage Usage
}

// Client sends a single user-role prompt to a chat model and returns the
// first completion's text. Implementations never retry.
type Client interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
	Close() error
}

// InvocationError carries the provider name and the underlying cause.
type InvocationError struct {
	Provider string
	Err      error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("llm: %s invocation failed: %v", e.Provider, e.Err)
}

func (e *InvocationError) Unwrap() []error { return []error{ErrInvocationFailed, e.Err} }

// PermanentError marks a provider failure that retrying cannot fix, such as
// a prompt longer than the model's context window.
type PermanentError struct{ Err error }

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Invoke performs one completion and returns the raw text. Empty or
// whitespace-only completions are failures.
func Invoke(ctx context.Context, c Client, req CompletionRequest) (string, error) {
	out, err := c.Complete(ctx, req)
	if err != nil {
		return "", &InvocationError{Provider: c.Name(), Err: err}
	}
	if out == nil || strings.TrimSpace(out.Text) == "" {
		return "", &InvocationError{Provider: c.Name(), Err: ErrEmptyCompletion}
	}
	return out.Text, nil
}
