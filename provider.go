package tracekit

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
)

// TracerProvider binds Tracers to a span processor pipeline. It owns the
// pipeline, the clock, the internal logger, and the identifier pools.
// Safe for concurrent use by multiple goroutines.
type TracerProvider struct {
	processors   []SpanProcessor
	clock        clockz.Clock
	logger       *zap.Logger
	traceIDPool  *idPool
	spanIDPool   *idPool
	processorsMu sync.RWMutex
	idPoolOnce   sync.Once
	stopped      atomic.Bool
	shutdownOnce sync.Once
}

// ProviderOption configures a TracerProvider.
type ProviderOption func(*TracerProvider)

// WithSpanProcessor appends a processor to the pipeline at construction.
func WithSpanProcessor(processor SpanProcessor) ProviderOption {
	return func(p *TracerProvider) {
		if processor != nil {
			p.processors = append(p.processors, processor)
		}
	}
}

// WithClock replaces the clock used for span timestamps.
// Enables clock injection for deterministic testing.
func WithClock(clock clockz.Clock) ProviderOption {
	return func(p *TracerProvider) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithLogger sets the logger for internal failure reporting (processor
// panics, export drops). The span API itself never logs.
func WithLogger(logger *zap.Logger) ProviderOption {
	return func(p *TracerProvider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewTracerProvider creates a provider. With no processors configured,
// spans are created and linked normally but finish into nothing.
func NewTracerProvider(opts ...ProviderOption) *TracerProvider {
	p := &TracerProvider{
		clock:  clockz.RealClock,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddSpanProcessor appends a processor to the pipeline. Permitted at any
// time, including after spans have been exported: a processor added late
// sees only spans that start or end afterwards.
func (p *TracerProvider) AddSpanProcessor(processor SpanProcessor) {
	if processor == nil {
		return
	}
	p.processorsMu.Lock()
	defer p.processorsMu.Unlock()
	p.processors = append(p.processors, processor)
}

// Tracer returns a tracer scoped to the named instrumentation.
func (p *TracerProvider) Tracer(name string, opts ...TracerOption) *Tracer {
	t := &Tracer{name: name, provider: p}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ForceFlush flushes every processor in registration order.
func (p *TracerProvider) ForceFlush(ctx context.Context) error {
	p.processorsMu.RLock()
	processors := make([]SpanProcessor, len(p.processors))
	copy(processors, p.processors)
	p.processorsMu.RUnlock()

	var errs []error
	for _, processor := range processors {
		if err := processor.ForceFlush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Shutdown flushes and shuts down every processor in registration order,
// then releases the identifier pools. Tracers from this provider produce
// inert spans afterwards. Idempotent.
func (p *TracerProvider) Shutdown(ctx context.Context) error {
	var err error
	p.shutdownOnce.Do(func() {
		p.stopped.Store(true)

		p.processorsMu.RLock()
		processors := make([]SpanProcessor, len(p.processors))
		copy(processors, p.processors)
		p.processorsMu.RUnlock()

		var errs []error
		for _, processor := range processors {
			if e := processor.Shutdown(ctx); e != nil {
				errs = append(errs, e)
			}
		}
		err = errors.Join(errs...)

		if p.traceIDPool != nil {
			p.traceIDPool.close()
		}
		if p.spanIDPool != nil {
			p.spanIDPool.close()
		}
	})
	return err
}

// Register publishes this provider as the process-wide default used by the
// package-level Tracer function. The last registration wins; a previously
// registered provider is NOT shut down automatically - its owner remains
// responsible for calling Shutdown on it.
func (p *TracerProvider) Register() {
	globalProvider.Store(p)
}

// now returns the provider clock's current time.
func (p *TracerProvider) now() time.Time {
	return p.clock.Now()
}

// ensureIDPools initializes the identifier pools on first use.
func (p *TracerProvider) ensureIDPools() {
	p.idPoolOnce.Do(func() {
		// Pool size based on number of CPUs for contention balance.
		poolSize := runtime.NumCPU() * 100
		p.traceIDPool = newIDPool(poolSize, newTraceID)
		p.spanIDPool = newIDPool(poolSize, newSpanID)
	})
}

// traceID allocates a fresh 128-bit trace identifier.
func (p *TracerProvider) traceID() string {
	p.ensureIDPools()
	return p.traceIDPool.get()
}

// spanID allocates a fresh 64-bit span identifier.
func (p *TracerProvider) spanID() string {
	p.ensureIDPools()
	return p.spanIDPool.get()
}

// spanStarted notifies the pipeline that a span was created. Processor
// panics are recovered and reported, never raised to the caller.
func (p *TracerProvider) spanStarted(parent context.Context, span *ActiveSpan) {
	p.processorsMu.RLock()
	if len(p.processors) == 0 {
		p.processorsMu.RUnlock()
		return
	}
	processors := make([]SpanProcessor, len(p.processors))
	copy(processors, p.processors)
	p.processorsMu.RUnlock()

	for _, processor := range processors {
		p.safeOnStart(processor, parent, span)
	}
}

// spanEnded notifies the pipeline that a span finished. Every processor
// receives the snapshot even if an earlier one panics.
func (p *TracerProvider) spanEnded(span Span) {
	if p.stopped.Load() {
		return
	}

	p.processorsMu.RLock()
	if len(p.processors) == 0 {
		p.processorsMu.RUnlock()
		return
	}
	processors := make([]SpanProcessor, len(p.processors))
	copy(processors, p.processors)
	p.processorsMu.RUnlock()

	for _, processor := range processors {
		p.safeOnEnd(processor, span)
	}
}

func (p *TracerProvider) safeOnStart(processor SpanProcessor, parent context.Context, span *ActiveSpan) {
	defer func() {
		if r := recover(); r != nil {
			reportFailure(p.logger, "on_start", r)
		}
	}()
	processor.OnStart(parent, span)
}

func (p *TracerProvider) safeOnEnd(processor SpanProcessor, span Span) {
	defer func() {
		if r := recover(); r != nil {
			reportFailure(p.logger, "on_end", r)
		}
	}()
	processor.OnEnd(span)
}

// globalProvider is the process-wide default provider slot. Written at
// startup via Register, read by every package-level Tracer call.
var globalProvider atomic.Pointer[TracerProvider]

// Default returns the registered process-wide provider, or nil if none
// has been registered.
func Default() *TracerProvider {
	return globalProvider.Load()
}

// Tracer returns a tracer from the registered default provider. With no
// provider registered it returns a no-op tracer producing inert spans.
func Tracer(name string, opts ...TracerOption) *Tracer {
	if p := globalProvider.Load(); p != nil {
		return p.Tracer(name, opts...)
	}
	t := &Tracer{name: name}
	for _, opt := range opts {
		opt(t)
	}
	return t
}
