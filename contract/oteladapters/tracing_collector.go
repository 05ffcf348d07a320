package oteladapters

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/endpoint-contracts-go/contract"
)

// TracingCollector implements contract.TracingCollector using the OpenTelemetry tracing API.
// Each checker invocation becomes one span; the context returned by StartSpan carries it
// into the conditions, snapshot captures and the wrapped handler.
type TracingCollector struct {
	tracer trace.Tracer
}

// NewTracingCollector creates a new OpenTelemetry tracing collector.
// The tracer should be created from your OpenTelemetry TracerProvider.
// A nil tracer yields no spans.
func NewTracingCollector(tracer trace.Tracer) *TracingCollector {
	return &TracingCollector{tracer: tracer}
}

// StartSpan creates a new OpenTelemetry span with the given name and attributes.
func (t *TracingCollector) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, contract.SpanContext) {
	if t.tracer == nil {
		return ctx, &OTelSpanContext{span: trace.SpanFromContext(ctx), noop: true}
	}

	spanCtx, span := t.tracer.Start(ctx, name, trace.WithAttributes(toAttributes(attrs)...))

	return spanCtx, &OTelSpanContext{span: span}
}

// FinishSpan completes an OpenTelemetry span with the given status and additional attributes.
// Span contexts not created by this collector are ignored.
func (t *TracingCollector) FinishSpan(spanCtx contract.SpanContext, status string, attrs map[string]string) {
	otelSpanCtx, ok := spanCtx.(*OTelSpanContext)
	if !ok || otelSpanCtx.noop {
		return
	}

	otelSpanCtx.span.SetAttributes(toAttributes(attrs)...)
	otelSpanCtx.setSpanStatus(status)
	otelSpanCtx.span.End()
}

var _ contract.TracingCollector = (*TracingCollector)(nil)

// OTelSpanContext implements contract.SpanContext by wrapping an OpenTelemetry span.
type OTelSpanContext struct {
	span trace.Span
	noop bool
}

// SetStatus sets the OpenTelemetry span status based on the provided status string.
func (s *OTelSpanContext) SetStatus(status string) {
	if s.noop {
		return
	}

	s.setSpanStatus(status)
}

// AddAttribute adds an attribute to the OpenTelemetry span.
func (s *OTelSpanContext) AddAttribute(key, value string) {
	if s.noop {
		return
	}

	s.span.SetAttributes(attribute.String(key, value))
}

// setSpanStatus maps the checker status strings to OpenTelemetry status codes.
// A violated contract is an expected client outcome, so only faults and cancellations are errors.
func (s *OTelSpanContext) setSpanStatus(status string) {
	switch status {
	case "ok", "success":
		s.span.SetStatus(codes.Ok, "")
	case "violated":
		s.span.SetStatus(codes.Ok, "")
		s.span.SetAttributes(attribute.Bool("contract.violated", true))
	case "error", "failed":
		s.span.SetStatus(codes.Error, "Handler or condition failed")
	case "canceled", "cancelled":
		s.span.SetStatus(codes.Error, "Check canceled")
	default:
		s.span.SetAttributes(attribute.String("status", status))
	}
}

var _ contract.SpanContext = (*OTelSpanContext)(nil)
