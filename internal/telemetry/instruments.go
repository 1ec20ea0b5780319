package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"

	"specforge/internal/llm"
)

const instrumentation = "specforge/pipeline"

// Tracer returns the pipeline tracer from the global provider.
func Tracer() oteltrace.Tracer { return otel.Tracer(instrumentation) }

// Metrics holds the pipeline counters. A zero Metrics records nothing.
type Metrics struct {
	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

// NewMetrics registers the counters on the global meter provider.
func NewMetrics() (*Metrics, error) {
	return NewMetricsFrom(otel.GetMeterProvider())
}

// NewMetricsFrom registers the counters on mp.
func NewMetricsFrom(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(instrumentation)
	requests, err := meter.Int64Counter("enhance.requests",
		metric.WithDescription("Enhancement requests by outcome and reason"))
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram("enhance.llm.duration",
		metric.WithDescription("Model invocation latency"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	return &Metrics{requests: requests, latency: latency}, nil
}

// Outcome counts one finished request.
func (m *Metrics) Outcome(ctx context.Context, outcome, reason string) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("reason", reason),
	))
}

// LLMHook adds span events around each completion and records its latency.
type LLMHook struct {
	Metrics *Metrics
	started time.Time
}

var _ llm.CallHook = (*LLMHook)(nil)

func (h *LLMHook) Before(ctx context.Context, stage string, req llm.CompletionRequest) {
	h.started = time.Now()
	oteltrace.SpanFromContext(ctx).AddEvent("llm.request", oteltrace.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("model", req.Model),
		attribute.Int("prompt_bytes", len(req.Prompt)),
	))
}

func (h *LLMHook) After(ctx context.Context, stage string, out *llm.Completion, err error) {
	span := oteltrace.SpanFromContext(ctx)
	elapsed := float64(time.Since(h.started).Microseconds()) / 1000
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "llm invocation failed")
	} else if out != nil {
		span.AddEvent("llm.response", oteltrace.WithAttributes(
			attribute.String("stage", stage),
			attribute.Int("completion_bytes", len(out.Text)),
			attribute.Int("prompt_tokens", out.Usage.PromptTokens),
			attribute.Int("completion_tokens", out.Usage.CompletionTokens),
		))
	}
	if h.Metrics != nil && h.Metrics.latency != nil {
		h.Metrics.latency.Record(ctx, elapsed, metric.WithAttributes(attribute.Bool("error", err != nil)))
	}
}
