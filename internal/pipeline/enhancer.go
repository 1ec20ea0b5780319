// Package pipeline runs the enhance operation: requirements, prompt, model
// invocation, JSON recovery and normalization, with the fallback result on
// any failure. Enhance never returns an error.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"specforge/internal/catalog"
	"specforge/internal/diagnostics"
	"specforge/internal/enhancement"
	"specforge/internal/llm"
	"specforge/internal/prompt"
	"specforge/internal/schema"
	"specforge/internal/telemetry"
	"specforge/internal/util/jsonutil"
)

// Request is the inbound enhance call. Options may be partial; missing
// flags take their defaults.
type Request struct {
	Specification      string                       `json:"specification"`
	ClarifierResponses enhancement.ClarifierResponses `json:"clarifierResponses,omitempty"`
	Options            enhancement.PartialOptions   `json:"enhancementOptions,omitempty"`

	// RequestID correlates logs and diagnostics; empty means a new uuid.
	RequestID string `json:"-"`
}

// ModelConfig is the fixed model configuration sent with every request.
type ModelConfig struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Model:       catalog.DefaultModel,
		Temperature: catalog.DefaultTemperature,
		MaxTokens:   catalog.DefaultMaxTokens,
	}
}

// DefaultRecordTimeout bounds the diagnostics write that runs before a
// result is returned.
const DefaultRecordTimeout = 2 * time.Second

type Enhancer struct {
	client        llm.Client
	model         ModelConfig
	sink          diagnostics.Sink
	recordTimeout time.Duration
	metrics       *telemetry.Metrics
	logger        *log.Logger
	newID         func() string
}

type Option func(*Enhancer)

func WithModelConfig(c ModelConfig) Option {
	return func(e *Enhancer) {
		if c.Model != "" {
			e.model.Model = c.Model
		}
		if c.Temperature >= 0 {
			e.model.Temperature = c.Temperature
		}
		if c.MaxTokens > 0 {
			e.model.MaxTokens = c.MaxTokens
		}
	}
}

func WithSink(s diagnostics.Sink) Option {
	return func(e *Enhancer) {
		if s != nil {
			e.sink = s
		}
	}
}

// WithRecordTimeout overrides DefaultRecordTimeout when d is positive.
func WithRecordTimeout(d time.Duration) Option {
	return func(e *Enhancer) {
		if d > 0 {
			e.recordTimeout = d
		}
	}
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Enhancer) { e.metrics = m }
}

// WithLogger sets the logger; nil means log.Default().
func WithLogger(l *log.Logger) Option {
	return func(e *Enhancer) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithIDGenerator replaces the uuid request id source.
func WithIDGenerator(fn func() string) Option {
	return func(e *Enhancer) {
		if fn != nil {
			e.newID = fn
		}
	}
}

func New(client llm.Client, opts ...Option) *Enhancer {
	e := &Enhancer{
		client:        client,
		model:         DefaultModelConfig(),
		sink:          diagnostics.Discard{},
		recordTimeout: DefaultRecordTimeout,
		logger:        log.Default(),
		newID:         uuid.NewString,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Enhance returns a schema-valid result for every input.
func (e *Enhancer) Enhance(ctx context.Context, req Request) enhancement.Result {
	return e.EnhanceWithObserver(ctx, req, nil)
}

// EnhanceWithObserver is Enhance that also reports each stage transition.
func (e *Enhancer) EnhanceWithObserver(ctx context.Context, req Request, obs Observer) (res enhancement.Result) {
	id := strings.TrimSpace(req.RequestID)
	if id == "" {
		id = e.newID()
	}
	started := time.Now()

	ctx, span := telemetry.Tracer().Start(ctx, "enhance", oteltrace.WithAttributes(
		attribute.String("request_id", id),
		attribute.Int("specification_bytes", len(req.Specification)),
	))
	defer span.End()

	rec := diagnostics.Record{
		RequestID: id,
		At:        started.UTC(),
		Model:     e.model.Model,
	}
	if e.client != nil {
		rec.Provider = e.client.Name()
	}

	tr, err := newTracker(id, obs)
	if err != nil {
		e.logger.Printf("enhance: %s stage tracking disabled: %v", id, err)
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Printf("enhance: %s recovered panic, using fallback: %v", id, r)
			res = enhancement.Fallback(req.Specification)
			rec.Outcome = diagnostics.OutcomeFallback
			rec.Reason = diagnostics.ReasonPanic
			rec.Error = fmt.Sprint(r)
			span.SetStatus(codes.Error, "panic")
			e.safeSend(tr, evFail, "panic")
		}
		rec.DurationMS = time.Since(started).Milliseconds()
		span.SetAttributes(attribute.String("outcome", rec.Outcome), attribute.String("reason", rec.Reason))
		e.metrics.Outcome(ctx, rec.Outcome, rec.Reason)
		e.record(ctx, rec)
	}()

	res = e.run(ctx, req, tr, &rec)
	return res
}

func (e *Enhancer) run(ctx context.Context, req Request, tr *tracker, rec *diagnostics.Record) enhancement.Result {
	fallback := func(reason, detail string) enhancement.Result {
		rec.Outcome = diagnostics.OutcomeFallback
		rec.Reason = reason
		tr.send(evFail, detail)
		return enhancement.Fallback(req.Specification)
	}

	tr.send(evCompose, "")
	opts := enhancement.MergeOptions(req.Options)
	text := prompt.Compose(req.Specification, req.ClarifierResponses, enhancement.BuildRequirements(opts))

	tr.send(evInvoke, "")
	if e.client == nil {
		rec.Error = "no model client configured"
		e.logger.Printf("enhance: %s no model client configured, using fallback", rec.RequestID)
		return fallback(diagnostics.ReasonInvocationFailed, rec.Error)
	}
	hook := &telemetry.LLMHook{Metrics: e.metrics}
	ictx := llm.WithStage(llm.WithHook(ctx, hook), StageInvoking)
	raw, err := llm.Invoke(ictx, e.client, llm.CompletionRequest{
		Model:       e.model.Model,
		Prompt:      text,
		Temperature: e.model.Temperature,
		MaxTokens:   e.model.MaxTokens,
	})
	if err != nil {
		rec.Error = err.Error()
		e.logger.Printf("enhance: %s invocation failed, using fallback: %v", rec.RequestID, err)
		return fallback(diagnostics.ReasonInvocationFailed, "model invocation failed")
	}

	tr.send(evRecover, "")
	rec.RawLength = len(raw)
	rec.RawHead = diagnostics.Head(raw)
	e.logger.Printf("enhance: %s raw response (%d chars) head: %q", rec.RequestID, len(raw), rec.RawHead)
	recovered := jsonutil.Recover(raw)
	rec.CleanedLength = len(recovered.AttemptedText)
	e.logger.Printf("enhance: %s cleaned response length %d (raw %d)", rec.RequestID, rec.CleanedLength, rec.RawLength)
	if !recovered.OK {
		rec.Error = recovered.Err.Error()
		rec.AttemptedText = diagnostics.Excerpt(recovered.AttemptedText)
		e.logger.Printf("enhance: %s JSON recovery failed: %v; first 1000: %q; last 500: %q",
			rec.RequestID, recovered.Err, headOf(recovered.AttemptedText, 1000), tailOf(recovered.AttemptedText, 500))
		return fallback(diagnostics.ReasonUnrecoverableJSON, "model response was not parseable JSON")
	}

	tr.send(evValidate, "")
	out := schema.FromRecovery(recovered, req.Specification)
	rec.Outcome = diagnostics.OutcomeCompleted
	if !out.IsValid {
		rec.Reason = diagnostics.ReasonNormalized
		rec.Issues = out.Issues
		e.logger.Printf("enhance: %s validation issues: %v", rec.RequestID, out.Issues)
	}
	tr.send(evComplete, "")
	return out.Data
}

// record writes rec with its own deadline: the caller may already be gone,
// and a stalled sink must not hold the result back.
func (e *Enhancer) record(ctx context.Context, rec diagnostics.Record) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.recordTimeout)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- e.sink.Record(rctx, rec) }()
	select {
	case err := <-done:
		if err != nil {
			e.logger.Printf("diagnostics: %s record failed: %v", rec.RequestID, err)
		}
	case <-rctx.Done():
		e.logger.Printf("diagnostics: %s record abandoned after %s", rec.RequestID, e.recordTimeout)
	}
}

// safeSend notifies the tracker from the panic path; a panicking observer
// must not escape Enhance.
func (e *Enhancer) safeSend(tr *tracker, event, detail string) {
	if tr == nil || tr.terminal() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Printf("enhance: observer panicked: %v", r)
		}
	}()
	tr.send(event, detail)
}

func headOf(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func tailOf(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
