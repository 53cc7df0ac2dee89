package tracekit

import (
	"context"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

func TestRootSpanGetsFreshIdentity(t *testing.T) {
	provider := newTestProvider()
	tracer := provider.Tracer("test")

	_, a := tracer.StartSpan(context.Background(), "root-a")
	_, b := tracer.StartSpan(context.Background(), "root-b")

	if len(a.TraceID()) != 32 {
		t.Errorf("expected 128-bit hex trace ID, got %q", a.TraceID())
	}
	if len(a.SpanID()) != 16 {
		t.Errorf("expected 64-bit hex span ID, got %q", a.SpanID())
	}
	if a.TraceID() == b.TraceID() {
		t.Error("two root spans should not share a trace ID")
	}
	if a.SpanID() == b.SpanID() {
		t.Error("two spans should not share a span ID")
	}
	if parent := a.Snapshot().ParentID; parent != "" {
		t.Errorf("root span should have no parent, got %q", parent)
	}
}

func TestChildInheritsTraceFromContext(t *testing.T) {
	provider := newTestProvider()
	tracer := provider.Tracer("test")

	ctx, parent := tracer.StartSpan(context.Background(), "parent")
	_, child := tracer.StartSpan(ctx, "child")

	if child.TraceID() != parent.TraceID() {
		t.Errorf("child trace ID %q != parent trace ID %q", child.TraceID(), parent.TraceID())
	}
	if got := child.Snapshot().ParentID; got != parent.SpanID() {
		t.Errorf("child parent ID %q != parent span ID %q", got, parent.SpanID())
	}
	if child.SpanID() == parent.SpanID() {
		t.Error("child must have its own span ID")
	}
}

func TestExplicitParentBeatsContext(t *testing.T) {
	provider := newTestProvider()
	tracer := provider.Tracer("test")

	ctx, ctxParent := tracer.StartSpan(context.Background(), "context-parent")
	_, optParent := tracer.StartSpan(context.Background(), "option-parent")

	_, child := tracer.StartSpan(ctx, "child", WithParent(optParent))

	if child.TraceID() != optParent.TraceID() {
		t.Errorf("expected option parent's trace, got %q", child.TraceID())
	}
	if got := child.Snapshot().ParentID; got != optParent.SpanID() {
		t.Errorf("expected option parent %q, got %q", optParent.SpanID(), got)
	}
	if child.TraceID() == ctxParent.TraceID() {
		t.Error("child should not join the context parent's trace")
	}
}

func TestStartSpanOptions(t *testing.T) {
	clock := clockz.NewFakeClock()
	provider := NewTracerProvider(WithClock(clock))
	tracer := provider.Tracer("test")

	explicit := clock.Now().Add(-time.Minute)
	link := Link{TraceID: "11112222333344445555666677778888", SpanID: "aaaabbbbccccdddd"}

	_, span := tracer.StartSpan(context.Background(), "op",
		WithKind(KindClient),
		WithStartTime(explicit),
		WithAttributes(String("seed", "one"), String("seed", "two"), Int("n", 1)),
		WithLinks(link),
	)

	snap := span.Snapshot()
	if snap.Kind != KindClient {
		t.Errorf("expected client kind, got %v", snap.Kind)
	}
	if !snap.StartTime.Equal(explicit) {
		t.Errorf("expected explicit start time %v, got %v", explicit, snap.StartTime)
	}
	if len(snap.Attributes) != 2 {
		t.Fatalf("expected deduplicated seed attributes, got %v", snap.Attributes)
	}
	if snap.Attributes[0].Value.AsString() != "two" {
		t.Errorf("expected last seed write to win, got %q", snap.Attributes[0].Value.AsString())
	}
	if len(snap.Links) != 1 || snap.Links[0].SpanID != link.SpanID {
		t.Errorf("expected link preserved, got %v", snap.Links)
	}
}

func TestStartSpanNilContext(t *testing.T) {
	provider := newTestProvider()
	tracer := provider.Tracer("test")

	//nolint:staticcheck // Deliberately exercising nil context handling.
	ctx, span := tracer.StartSpan(nil, "op")
	if ctx == nil {
		t.Fatal("expected non-nil context")
	}
	if SpanFromContext(ctx) != span {
		t.Error("returned context should carry the new span")
	}
	span.End()
}

func TestNoopTracerProducesInertSpans(t *testing.T) {
	tracer := NewNoopTracer()

	ctx, span := tracer.StartSpan(context.Background(), "op")
	if span == nil {
		t.Fatal("no-op tracer must never return a nil span")
	}
	if span.IsRecording() {
		t.Error("inert span should not be recording")
	}
	if span.TraceID() != "" || span.SpanID() != "" {
		t.Errorf("inert span should have empty IDs, got %q/%q", span.TraceID(), span.SpanID())
	}

	// All operations are harmless no-ops.
	span.SetAttributes(String("k", "v"))
	span.SetStatus(StatusError, "ignored")
	span.AddEvent("ignored")
	span.End()
	span.End()

	// A child under an inert parent starts a fresh root on a real provider.
	provider := newTestProvider()
	_, child := provider.Tracer("test").StartSpan(ctx, "child")
	if child.Snapshot().ParentID != "" {
		t.Error("child of inert span should be a root span")
	}
	if child.TraceID() == "" {
		t.Error("child of inert span should get a fresh trace ID")
	}
}

func TestTracerAfterProviderShutdownIsInert(t *testing.T) {
	provider := newTestProvider()
	tracer := provider.Tracer("test")

	if err := provider.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	_, span := tracer.StartSpan(context.Background(), "late")
	if span.IsRecording() {
		t.Error("spans started after shutdown should be inert")
	}
}

func TestContextCarrierIsImmutable(t *testing.T) {
	provider := newTestProvider()
	tracer := provider.Tracer("test")

	base := context.Background()
	if SpanFromContext(base) != nil {
		t.Error("empty context should carry no span")
	}

	ctx1, span1 := tracer.StartSpan(base, "one")
	ctx2, span2 := tracer.StartSpan(ctx1, "two")

	if SpanFromContext(base) != nil {
		t.Error("deriving contexts must not mutate the base context")
	}
	if SpanFromContext(ctx1) != span1 {
		t.Error("ctx1 should still carry span1 after deriving ctx2")
	}
	if SpanFromContext(ctx2) != span2 {
		t.Error("ctx2 should carry span2")
	}
}

func TestSpanFromContextNil(t *testing.T) {
	//nolint:staticcheck // Deliberately exercising nil context handling.
	if SpanFromContext(nil) != nil {
		t.Error("nil context should yield no span")
	}
}

func TestContextWithSpanNilParent(t *testing.T) {
	provider := newTestProvider()
	_, span := provider.Tracer("test").StartSpan(context.Background(), "op")

	//nolint:staticcheck // Deliberately exercising nil context handling.
	ctx := ContextWithSpan(nil, span)
	if SpanFromContext(ctx) != span {
		t.Error("expected span recoverable from derived context")
	}
}
