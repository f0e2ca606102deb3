package http

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/gaborage/ridekit/http"

	metricAttempts        = "ridekit.client.attempts"
	metricAttemptDuration = "ridekit.client.attempt.duration"
)

type telemetry struct {
	tracer   trace.Tracer
	attempts metric.Int64Counter
	duration metric.Float64Histogram
}

func newTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) *telemetry {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	meter := mp.Meter(instrumentationName)
	attempts, err := meter.Int64Counter(metricAttempts,
		metric.WithDescription("Outbound API attempts by outcome type"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		otel.Handle(err)
	}
	duration, err := meter.Float64Histogram(metricAttemptDuration,
		metric.WithDescription("Duration of a single outbound API attempt"),
		metric.WithUnit("s"),
	)
	if err != nil {
		otel.Handle(err)
	}

	return &telemetry{
		tracer:   tp.Tracer(instrumentationName),
		attempts: attempts,
		duration: duration,
	}
}

func (t *telemetry) start(ctx context.Context, method, path string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "ridekit.attempt "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
}

// finish records the attempt. errType is "" on success.
func (t *telemetry) finish(ctx context.Context, span trace.Span, method string, statusCode int, errType ErrorType, elapsed time.Duration, err error) {
	outcome := "success"
	if errType != "" {
		outcome = string(errType)
	}
	attrs := []attribute.KeyValue{
		attribute.String("http.request.method", method),
		attribute.String("ridekit.outcome", outcome),
	}
	if statusCode != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", statusCode))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	span.SetAttributes(attribute.String("ridekit.outcome", outcome))
	span.End()

	if t.attempts != nil {
		t.attempts.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if t.duration != nil {
		t.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
	}
}
