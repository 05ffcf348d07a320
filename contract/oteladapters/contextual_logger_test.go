package oteladapters_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/log/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/AntonStoeckl/endpoint-contracts-go/contract/oteladapters"
)

func Test_SlogBridgeLoggerWithHandler_AllLevels(t *testing.T) {
	// arrange
	var buf bytes.Buffer
	logger := oteladapters.NewSlogBridgeLoggerWithHandler(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := context.Background()

	// act
	logger.DebugContext(ctx, "composed checker created", "endpoint", "upsert_book")
	logger.InfoContext(ctx, "contract violated", "status_code", 404)
	logger.WarnContext(ctx, "warn message")
	logger.ErrorContext(ctx, "handler or condition failed", "error", "boom")

	// assert
	output := buf.String()
	assert.Contains(t, output, `"msg":"composed checker created"`)
	assert.Contains(t, output, `"endpoint":"upsert_book"`)
	assert.Contains(t, output, `"status_code":404`)
	assert.Contains(t, output, `"level":"WARN"`)
	assert.Contains(t, output, `"error":"boom"`)
}

func Test_SlogBridgeLogger_WithActiveSpan(t *testing.T) {
	provider := sdktrace.NewTracerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()

	ctx, span := provider.Tracer("test").Start(context.Background(), "contract.check")
	defer span.End()

	logger := oteladapters.NewSlogBridgeLogger("test")

	assert.NotPanics(t, func() {
		logger.DebugContext(ctx, "debug message", "key", "value")
		logger.InfoContext(ctx, "info message", "key", "value")
		logger.WarnContext(ctx, "warn message", "key", "value")
		logger.ErrorContext(ctx, "error message", "key", "value")
	})
}

func Test_OTelLogger_ArgumentHandling(t *testing.T) {
	logger := oteladapters.NewOTelLogger(noop.NewLoggerProvider().Logger("test"))
	ctx := context.Background()

	assert.NotPanics(t, func() {
		logger.DebugContext(ctx, "debug message", "endpoint", "books_in_category")
		logger.InfoContext(ctx, "info message", "status_code", 404, "duration_ms", 1.5, "enforced", true)
		logger.WarnContext(ctx, "warn message", "count", int64(2))
		logger.ErrorContext(ctx, "error message", "key1", "value1", "dangling")
		logger.InfoContext(ctx, "odd key", 42, "value")
	})
}
