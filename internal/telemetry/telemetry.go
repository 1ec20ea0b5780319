// Package telemetry wires OpenTelemetry tracing and the counters the
// enhancement pipeline reports.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
)

// Init installs the global tracer and meter providers. With stdout false
// both are installed without exporters so spans and counters stay local;
// extra readers (a ManualReader in tests or a debug route) still see every
// measurement. The returned func flushes and shuts both providers down.
func Init(_ context.Context, stdout bool, readers ...sdkmetric.Reader) (func(context.Context) error, error) {
	var topts []trace.TracerProviderOption
	var mopts []sdkmetric.Option
	if stdout {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		topts = append(topts, trace.WithBatcher(exporter))

		mexporter, err := stdoutmetric.New(stdoutmetric.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout metric exporter: %w", err)
		}
		mopts = append(mopts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(mexporter)))
	}
	for _, r := range readers {
		mopts = append(mopts, sdkmetric.WithReader(r))
	}

	tp := trace.NewTracerProvider(topts...)
	mp := sdkmetric.NewMeterProvider(mopts...)
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}
