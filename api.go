// Package tracekit provides a minimal, self-contained tracing core.
//
// tracekit focuses on span creation, context propagation, and batched
// export without the surface area of a full telemetry SDK. It's designed
// for systems that need basic distributed tracing with predictable
// performance and resource usage.
//
// Core Components:
//   - TracerProvider: Owns the processor pipeline and hands out Tracers.
//   - Tracer: Creates spans and links them via context.Context.
//   - ActiveSpan: Thread-safe handle for an open span.
//   - Span: Immutable snapshot of a finished span.
//   - SpanProcessor: Hook invoked on span start and end (simple or batching).
//   - Exporter: Terminal sink that serializes finished spans.
//
// Basic Usage:
//
//	exporter := tracekit.NewWriterExporter(os.Stdout)
//	provider := tracekit.NewTracerProvider(
//		tracekit.WithSpanProcessor(tracekit.NewBatchProcessor(exporter)),
//	)
//	provider.Register()
//	defer provider.Shutdown(context.Background())
//
//	tracer := tracekit.Tracer("my-service")
//
//	ctx, span := tracer.StartSpan(ctx, "operation-name")
//	defer span.End()
//
//	span.SetAttributes(tracekit.String("user.id", "123"))
//
//	// Pass ctx to child operations; child spans inherit the trace.
//	_, child := tracer.StartSpan(ctx, "child-operation")
//	child.End()
//
// Thread Safety:
//
// TracerProvider, Tracer, and processors are safe for concurrent use by
// multiple goroutines. ActiveSpan operations are safe for concurrent use.
// Span snapshots are plain values and are never handed to the pipeline
// while still mutable.
//
// Context Propagation:
//
// Spans are linked via context.Context. A child span inherits its parent's
// TraceID and records the parent's SpanID as ParentID. A context without a
// span is valid and starts a new root trace.
//
// Missing Provider:
//
// Instrumentation call sites that find no registered provider get a no-op
// Tracer producing inert spans - never nil, never a crash.
package tracekit

// SpanKind describes the relationship between a span and its trace.
type SpanKind int

const (
	// KindInternal is the default kind for spans internal to an application.
	KindInternal SpanKind = iota
	// KindServer marks a span covering the server side of an RPC or request.
	KindServer
	// KindClient marks a span covering the client side of an RPC or request.
	KindClient
	// KindProducer marks a span for an async message send.
	KindProducer
	// KindConsumer marks a span for an async message receive.
	KindConsumer
)

// String returns the lowercase name of the kind, "internal" for unknown values.
func (k SpanKind) String() string {
	switch k {
	case KindServer:
		return "server"
	case KindClient:
		return "client"
	case KindProducer:
		return "producer"
	case KindConsumer:
		return "consumer"
	default:
		return "internal"
	}
}

// StatusCode is the outcome recorded on a span.
type StatusCode int

const (
	// StatusUnset is the default status of a span.
	StatusUnset StatusCode = iota
	// StatusOk marks the span's operation as successful.
	StatusOk
	// StatusError marks the span's operation as failed.
	StatusError
)

// String returns the canonical name of the code.
func (c StatusCode) String() string {
	switch c {
	case StatusOk:
		return "Ok"
	case StatusError:
		return "Error"
	default:
		return "Unset"
	}
}

// Status is a span outcome with an optional message.
type Status struct {
	Code    StatusCode
	Message string
}
