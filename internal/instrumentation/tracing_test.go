package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func withSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func TestSpanAttributeBuilder(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithTool("find_common_availability").
		WithAccount("").
		WithAccount("work").
		WithBackend(BackendGraph, OperationGetSchedule).
		WithParticipants(3).
		WithDays(5).
		WithSelection("").
		WithReadOnly(true).
		Build()

	got := make(map[string]any)
	for _, a := range attrs {
		got[string(a.Key)] = a.Value.AsInterface()
	}
	want := map[string]any{
		SpanAttrTool:         "find_common_availability",
		SpanAttrAccount:      "work",
		SpanAttrBackend:      BackendGraph,
		SpanAttrOperation:    OperationGetSchedule,
		SpanAttrParticipants: int64(3),
		SpanAttrDays:         int64(5),
		SpanAttrReadOnly:     true,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d attributes, got %d: %v", len(want), len(got), got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("attribute %s = %v, want %v", k, got[k], v)
		}
	}
}

func TestStartBackendSpan(t *testing.T) {
	rec := withSpanRecorder(t)

	ctx, span := StartBackendSpan(context.Background(), BackendGraph, OperationBook)
	if GetTraceID(ctx) == "" || GetSpanID(ctx) == "" {
		t.Error("expected trace and span ids in context")
	}
	EndSpan(span, errors.New("boom"))

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected one ended span, got %d", len(ended))
	}
	s := ended[0]
	if s.Name() != "graph.book" {
		t.Errorf("span name = %q, want graph.book", s.Name())
	}
	if s.SpanKind() != trace.SpanKindClient {
		t.Errorf("span kind = %v, want client", s.SpanKind())
	}
	if s.Status().Code != codes.Error {
		t.Errorf("status = %v, want error", s.Status().Code)
	}
}

func TestStartToolSpan(t *testing.T) {
	rec := withSpanRecorder(t)

	_, span := StartToolSpan(context.Background(), "search_users")
	EndSpan(span, nil)

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected one ended span, got %d", len(ended))
	}
	if ended[0].Name() != "tool.search_users" {
		t.Errorf("span name = %q", ended[0].Name())
	}
	if ended[0].Status().Code != codes.Ok {
		t.Errorf("status = %v, want ok", ended[0].Status().Code)
	}
}

func TestTraceIDsWithoutSpan(t *testing.T) {
	if id := GetTraceID(context.Background()); id != "" {
		t.Errorf("expected empty trace id, got %q", id)
	}
	if id := GetSpanID(context.Background()); id != "" {
		t.Errorf("expected empty span id, got %q", id)
	}
}

func TestSetSpanError_Nil(t *testing.T) {
	rec := withSpanRecorder(t)
	_, span := StartSpan(context.Background(), "noop")
	SetSpanError(span, nil)
	span.End()

	if code := rec.Ended()[0].Status().Code; code != codes.Unset {
		t.Errorf("status = %v, want unset", code)
	}
}
