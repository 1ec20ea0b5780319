package llm

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	calls atomic.Int32
	fn    func(n int) (*Completion, error)
}

func (s *stubClient) Name() string { return "stub" }
func (s *stubClient) Close() error { return nil }
func (s *stubClient) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	n := int(s.calls.Add(1))
	return s.fn(n)
}

func text(s string) func(int) (*Completion, error) {
	return func(int) (*Completion, error) { return &Completion{Text: s}, nil }
}

func TestInvoke_WrapsErrors(t *testing.T) {
	cause := errors.New("connection refused")
	c := &stubClient{fn: func(int) (*Completion, error) { return nil, cause }}
	_, err := Invoke(context.Background(), c, CompletionRequest{Prompt: "p"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvocationFailed)
	assert.ErrorIs(t, err, cause)
	var ie *InvocationError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "stub", ie.Provider)
}

func TestInvoke_EmptyTextFails(t *testing.T) {
	for _, s := range []string{"", "  \n\t"} {
		c := &stubClient{fn: text(s)}
		_, err := Invoke(context.Background(), c, CompletionRequest{})
		assert.ErrorIs(t, err, ErrEmptyCompletion)
		assert.ErrorIs(t, err, ErrInvocationFailed)
	}
	c := &stubClient{fn: func(int) (*Completion, error) { return nil, nil }}
	_, err := Invoke(context.Background(), c, CompletionRequest{})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestInvoke_ReturnsRawText(t *testing.T) {
	c := &stubClient{fn: text("```json\n{}\n```")}
	got, err := Invoke(context.Background(), c, CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "```json\n{}\n```", got)
	assert.EqualValues(t, 1, c.calls.Load())
}

func TestWrap_Order(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next Client) Client {
			return &hookedOrder{next: next, name: name, order: &order}
		}
	}
	c := Wrap(&stubClient{fn: text("x")}, mw("a"), mw("b"))
	_, err := c.Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, order)
}

type hookedOrder struct {
	next  Client
	name  string
	order *[]string
}

func (h *hookedOrder) Name() string { return h.next.Name() }
func (h *hookedOrder) Close() error { return h.next.Close() }
func (h *hookedOrder) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	*h.order = append(*h.order, h.name)
	return h.next.Complete(ctx, req)
}

func TestResilient_NoopByDefault(t *testing.T) {
	inner := &stubClient{fn: text("x")}
	assert.Same(t, Client(inner), Resilient(0, 0)(inner))
	assert.Same(t, Client(inner), RateLimit(0, 0)(inner))
}

func TestResilient_RetriesTransientErrors(t *testing.T) {
	inner := &stubClient{fn: func(n int) (*Completion, error) {
		if n < 2 {
			return nil, errors.New("503")
		}
		return &Completion{Text: "ok"}, nil
	}}
	out, err := Resilient(0, 2)(inner).Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Text)
	assert.EqualValues(t, 2, inner.calls.Load())
}

func TestResilient_StopsOnPermanentError(t *testing.T) {
	inner := &stubClient{fn: func(int) (*Completion, error) {
		return nil, &PermanentError{Err: errors.New("context_length_exceeded")}
	}}
	_, err := Resilient(0, 3)(inner).Complete(context.Background(), CompletionRequest{})
	var pErr *PermanentError
	require.ErrorAs(t, err, &pErr)
	assert.EqualValues(t, 1, inner.calls.Load())
}

func TestWithLogging(t *testing.T) {
	var buf bytes.Buffer
	c := WithLogging(log.New(&buf, "", 0))(&stubClient{fn: text("hello")})
	_, err := c.Complete(WithStage(context.Background(), "invoking"), CompletionRequest{Prompt: "abcd"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "LLM request (stub, invoking): 4 bytes")
	assert.Contains(t, buf.String(), "LLM response (stub, invoking): 5 bytes")
}

type recordingHook struct {
	before, after int
	lastErr       error
}

func (h *recordingHook) Before(context.Context, string, CompletionRequest) { h.before++ }
func (h *recordingHook) After(_ context.Context, _ string, _ *Completion, err error) {
	h.after++
	h.lastErr = err
}

func TestWithHooks(t *testing.T) {
	h := &recordingHook{}
	boom := errors.New("boom")
	c := WithHooks()(&stubClient{fn: func(int) (*Completion, error) { return nil, boom }})

	_, _ = c.Complete(context.Background(), CompletionRequest{})
	assert.Equal(t, 0, h.before)

	_, _ = c.Complete(WithHook(context.Background(), h), CompletionRequest{})
	assert.Equal(t, 1, h.before)
	assert.Equal(t, 1, h.after)
	assert.Equal(t, boom, h.lastErr)
}

func TestRateLimit_RespectsContext(t *testing.T) {
	c := RateLimit(0.001, 1)(&stubClient{fn: text("x")})
	_, err := c.Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Complete(ctx, CompletionRequest{})
	assert.Error(t, err)
}

func TestStageFrom_Default(t *testing.T) {
	assert.Equal(t, "unknown", StageFrom(context.Background()))
	assert.Equal(t, "x", StageFrom(WithStage(context.Background(), "x")))
}
