package logctx

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

// captureHandler records every record it handles.
type captureHandler struct {
	records []slog.Record
	attrs   []slog.Attr
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.records = append(h.records, r)

	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.attrs = append(h.attrs, attrs...)

	return h
}

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

func recordAttrs(r slog.Record) map[string]string {
	attrs := make(map[string]string)

	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.String()

		return true
	})

	return attrs
}

func spanContext(t *testing.T) trace.SpanContext {
	t.Helper()

	traceID, err := trace.TraceIDFromHex("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	spanID, err := trace.SpanIDFromHex("0123456789abcdef")
	require.NoError(t, err)

	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
}

func TestNewTraceHandler_NilPanics(t *testing.T) {
	assert.Panics(t, func() { NewTraceHandler(nil) })
}

func TestTraceHandler_InjectsTraceFields(t *testing.T) {
	inner := &captureHandler{}
	logger := slog.New(NewTraceHandler(inner))

	ctx := trace.ContextWithSpanContext(context.Background(), spanContext(t))
	logger.InfoContext(ctx, "inside span")

	require.Len(t, inner.records, 1)

	attrs := recordAttrs(inner.records[0])
	assert.Equal(t, "0123456789abcdef0123456789abcdef", attrs["trace_id"])
	assert.Equal(t, "0123456789abcdef", attrs["span_id"])
}

func TestTraceHandler_NoSpanLeavesRecordUntouched(t *testing.T) {
	inner := &captureHandler{}
	logger := slog.New(NewTraceHandler(inner))

	logger.InfoContext(context.Background(), "outside span", "key", "value")

	require.Len(t, inner.records, 1)

	attrs := recordAttrs(inner.records[0])
	assert.NotContains(t, attrs, "trace_id")
	assert.NotContains(t, attrs, "span_id")
	assert.Equal(t, "value", attrs["key"])
}

func TestTraceHandler_WithAttrsKeepsDecoration(t *testing.T) {
	inner := &captureHandler{}

	h := NewTraceHandler(inner).WithAttrs([]slog.Attr{slog.String("component", "downloader")})

	// The decorated handler still wraps: trace fields keep flowing.
	logger := slog.New(h)
	ctx := trace.ContextWithSpanContext(context.Background(), spanContext(t))
	logger.InfoContext(ctx, "still wrapped")

	require.Len(t, inner.records, 1)
	assert.Contains(t, recordAttrs(inner.records[0]), "trace_id")
	assert.Equal(t, "component", inner.attrs[0].Key)
}

func TestLoggerFromContext(t *testing.T) {
	assert.Same(t, slog.Default(), LoggerFromContext(context.Background()))

	logger := slog.New(&captureHandler{})
	ctx := WithLogger(context.Background(), logger)

	assert.Same(t, logger, LoggerFromContext(ctx))
}
