package tracekit

import (
	"context"
	"time"
)

// Tracer creates spans on behalf of one instrumentation scope. Tracers are
// cheap value handles: they hold no span state and are safe for concurrent
// use. Obtain one from TracerProvider.Tracer or the package-level Tracer.
type Tracer struct {
	name     string
	version  string
	provider *TracerProvider
}

// TracerOption configures a Tracer.
type TracerOption func(*Tracer)

// WithInstrumentationVersion records the version of the instrumented
// library on the tracer's scope.
func WithInstrumentationVersion(version string) TracerOption {
	return func(t *Tracer) {
		t.version = version
	}
}

// spanConfig collects StartSpan options.
type spanConfig struct {
	attrs     []Attribute
	links     []Link
	parent    *ActiveSpan
	startTime time.Time
	kind      SpanKind
}

// SpanStartOption configures a span at creation.
type SpanStartOption func(*spanConfig)

// WithAttributes seeds the span with initial attributes.
func WithAttributes(attrs ...Attribute) SpanStartOption {
	return func(c *spanConfig) {
		c.attrs = append(c.attrs, attrs...)
	}
}

// WithStartTime overrides the span's start timestamp.
func WithStartTime(t time.Time) SpanStartOption {
	return func(c *spanConfig) {
		c.startTime = t
	}
}

// WithKind sets the span kind; the default is KindInternal.
func WithKind(kind SpanKind) SpanStartOption {
	return func(c *spanConfig) {
		c.kind = kind
	}
}

// WithLinks records references to other spans on the new span.
func WithLinks(links ...Link) SpanStartOption {
	return func(c *spanConfig) {
		c.links = append(c.links, links...)
	}
}

// WithParent makes the new span a child of parent regardless of what the
// context carries. Takes precedence over the context's active span.
func WithParent(parent *ActiveSpan) SpanStartOption {
	return func(c *spanConfig) {
		c.parent = parent
	}
}

// StartSpan creates a new span and returns a context carrying it alongside
// the span handle. Parent resolution order: WithParent option, then the
// active span in ctx, then none - a new root trace with a fresh trace ID.
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...SpanStartOption) (context.Context, *ActiveSpan) {
	if ctx == nil {
		ctx = context.Background()
	}
	if t.provider == nil || t.provider.stopped.Load() {
		return ctx, &ActiveSpan{noop: true}
	}

	var cfg spanConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	startTime := cfg.startTime
	if startTime.IsZero() {
		startTime = t.provider.now()
	}

	var seeded []Attribute
	for _, attr := range cfg.attrs {
		seeded = upsertAttribute(seeded, attr)
	}

	span := &Span{
		SpanID:     t.provider.spanID(),
		Name:       name,
		Kind:       cfg.kind,
		StartTime:  startTime,
		Attributes: seeded,
		Links:      cfg.links,
	}

	parent := cfg.parent
	if parent == nil {
		parent = SpanFromContext(ctx)
	}
	if parent != nil && !parent.noop {
		span.TraceID = parent.TraceID()
		span.ParentID = parent.SpanID()
	} else {
		span.TraceID = t.provider.traceID()
	}

	active := &ActiveSpan{
		span:     span,
		provider: t.provider,
	}

	t.provider.spanStarted(ctx, active)

	return ContextWithSpan(ctx, active), active
}
