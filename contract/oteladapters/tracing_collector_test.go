package oteladapters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/endpoint-contracts-go/contract/oteladapters"
)

func givenTracingCollector() (*oteladapters.TracingCollector, *tracetest.InMemoryExporter) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	return oteladapters.NewTracingCollector(provider.Tracer("test")), exporter
}

func Test_TracingCollector_StartAndFinishSpan(t *testing.T) {
	// arrange
	collector, exporter := givenTracingCollector()

	// act
	ctx, spanCtx := collector.StartSpan(context.Background(), "contract.check", map[string]string{"contract.endpoint": "books_in_category"})
	spanCtx.AddAttribute("contract.phase", "invoke")
	collector.FinishSpan(spanCtx, "success", map[string]string{"contract.duration_ms": "1.000"})

	// assert
	assert.True(t, trace.SpanContextFromContext(ctx).IsValid())

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "contract.check", spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assertSpanHasAttribute(t, spans[0], "contract.endpoint", "books_in_category")
	assertSpanHasAttribute(t, spans[0], "contract.phase", "invoke")
	assertSpanHasAttribute(t, spans[0], "contract.duration_ms", "1.000")
}

func Test_TracingCollector_StatusMapping(t *testing.T) {
	tests := []struct {
		status       string
		expectedCode codes.Code
	}{
		{status: "success", expectedCode: codes.Ok},
		{status: "violated", expectedCode: codes.Ok},
		{status: "error", expectedCode: codes.Error},
		{status: "canceled", expectedCode: codes.Error},
		{status: "something_else", expectedCode: codes.Unset},
	}

	for _, tc := range tests {
		t.Run(tc.status, func(t *testing.T) {
			collector, exporter := givenTracingCollector()

			_, spanCtx := collector.StartSpan(context.Background(), "contract.check", nil)
			collector.FinishSpan(spanCtx, tc.status, nil)

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, tc.expectedCode, spans[0].Status.Code)
		})
	}
}

func Test_TracingCollector_ViolatedSpanIsMarked(t *testing.T) {
	collector, exporter := givenTracingCollector()

	_, spanCtx := collector.StartSpan(context.Background(), "contract.check", nil)
	collector.FinishSpan(spanCtx, "violated", nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assertSpanHasAttribute(t, spans[0], "contract.violated", "true")
}

func Test_TracingCollector_ContextPropagation(t *testing.T) {
	// arrange
	collector, exporter := givenTracingCollector()

	// act
	parentCtx, parent := collector.StartSpan(context.Background(), "http.request", nil)
	_, child := collector.StartSpan(parentCtx, "contract.check", nil)
	collector.FinishSpan(child, "success", nil)
	collector.FinishSpan(parent, "success", nil)

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[1].SpanContext.TraceID(), spans[0].SpanContext.TraceID())
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
}

func Test_TracingCollector_NilTracerIsNoop(t *testing.T) {
	collector := oteladapters.NewTracingCollector(nil)

	assert.NotPanics(t, func() {
		ctx, spanCtx := collector.StartSpan(context.Background(), "contract.check", nil)
		assert.NotNil(t, ctx)
		spanCtx.AddAttribute("key", "value")
		spanCtx.SetStatus("success")
		collector.FinishSpan(spanCtx, "success", nil)
	})
}

func Test_TracingCollector_IgnoresForeignSpanContext(t *testing.T) {
	collector, exporter := givenTracingCollector()

	assert.NotPanics(t, func() {
		collector.FinishSpan(&foreignSpanContext{}, "success", nil)
	})
	assert.Empty(t, exporter.GetSpans())
}

type foreignSpanContext struct{}

func (*foreignSpanContext) SetStatus(string)            {}
func (*foreignSpanContext) AddAttribute(string, string) {}

func assertSpanHasAttribute(t *testing.T, span tracetest.SpanStub, key, expectedValue string) {
	t.Helper()

	for _, attr := range span.Attributes {
		if string(attr.Key) == key {
			assert.Equal(t, expectedValue, attr.Value.Emit())
			return
		}
	}

	t.Errorf("span attribute %s not found", key)
}
