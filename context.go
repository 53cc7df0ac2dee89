package tracekit

import "context"

// spanKeyType is a private type for context keys to avoid collisions.
type spanKeyType struct{}

var spanKey spanKeyType

// ContextWithSpan returns a copy of parent with span installed as the
// current active span. The parent context is unchanged; deriving contexts
// is how the "current span" nests and unwinds.
func ContextWithSpan(parent context.Context, span *ActiveSpan) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithValue(parent, spanKey, span)
}

// SpanFromContext extracts the current active span from a context.
// Returns nil if no span is present; a context without a span is valid
// and means "no current span".
func SpanFromContext(ctx context.Context) *ActiveSpan {
	if ctx == nil {
		return nil
	}
	if span, ok := ctx.Value(spanKey).(*ActiveSpan); ok {
		return span
	}
	return nil
}
