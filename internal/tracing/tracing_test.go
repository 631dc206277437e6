package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"resume-parser-go/internal/config"
)

func newRecorder(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	rec := tracetest.NewSpanRecorder()
	tp := newProvider(config.TracingConfig{ServiceName: "test", SampleRatio: 1}, sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return rec, tp
}

func TestRecordError(t *testing.T) {
	rec, tp := newRecorder(t)

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	RecordError(span, errors.New("boom"), ErrorTypeTranscription)
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsString()
	}
	assert.Equal(t, "transcription", attrs["error.type"])
	assert.Equal(t, "boom", attrs["error.message"])
}

func TestRecordErrorNilSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordError(nil, errors.New("x"), ErrorTypeLLM)
	})
	rec, tp := newRecorder(t)
	_, span := tp.Tracer("test").Start(context.Background(), "op")
	RecordError(span, nil, ErrorTypeLLM)
	span.End()
	assert.Equal(t, codes.Unset, rec.Ended()[0].Status().Code)
}

func TestRecordDegraded(t *testing.T) {
	rec, tp := newRecorder(t)
	_, span := tp.Tracer("test").Start(context.Background(), "op")
	RecordDegraded(span, "detect", "invalid json")
	span.End()

	events := rec.Ended()[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "degraded", events[0].Name)
	assert.Equal(t, codes.Unset, rec.Ended()[0].Status().Code)
}

func TestInitTracerDisabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), config.TracingConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestTruncateAndMask(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "ab...yz", TruncateString("abcdefghijklmnopqrstuvwxyz", 7))
	assert.Equal(t, "张*", MaskPII("张三"))
	assert.Equal(t, "王*明", MaskPII("王小明"))
	assert.Equal(t, "13*******78", MaskPII("13812345678"))
	assert.Equal(t, "13*******78", SafeAttributeValue("mobile", "13812345678", 50))
	assert.Equal(t, "plain", SafeAttributeValue("stage", "plain", 50))
	assert.Equal(t, "j***@example.com", SafeAttributeValue("candidate_email", "jane@example.com", 50))
	assert.Equal(t, "Jane Doe j***@x.io Go", SafeResumeContent("Jane Doe\n jane@x.io  Go"))
}
