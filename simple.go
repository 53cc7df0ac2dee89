package tracekit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// SimpleProcessor exports each span synchronously as it ends. Every End
// call pays the export cost, so it is meant for tests, tooling, and
// development sinks; production pipelines should use BatchProcessor.
// A mutex guarantees a single in-flight export.
type SimpleProcessor struct {
	exporter      Exporter
	logger        *zap.Logger
	exportTimeout time.Duration
	retryAttempts uint64
	retryDelay    time.Duration
	mu            sync.Mutex
	stopped       atomic.Bool
	dropped       atomic.Uint64
}

// SimpleOption configures a SimpleProcessor.
type SimpleOption func(*SimpleProcessor)

// WithSimpleExportTimeout bounds each export call.
func WithSimpleExportTimeout(d time.Duration) SimpleOption {
	return func(p *SimpleProcessor) {
		p.exportTimeout = d
	}
}

// WithSimpleLogger sets the logger for export failure reporting.
func WithSimpleLogger(logger *zap.Logger) SimpleOption {
	return func(p *SimpleProcessor) {
		p.logger = logger
	}
}

// NewSimpleProcessor creates a synchronous processor owning exporter.
func NewSimpleProcessor(exporter Exporter, opts ...SimpleOption) *SimpleProcessor {
	p := &SimpleProcessor{
		exporter:      exporter,
		logger:        zap.NewNop(),
		exportTimeout: defaultExportTimeout,
		retryAttempts: defaultRetryAttempts,
		retryDelay:    defaultRetryBaseDelay,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// OnStart is a no-op.
func (p *SimpleProcessor) OnStart(context.Context, *ActiveSpan) {}

// OnEnd exports the finished span immediately.
func (p *SimpleProcessor) OnEnd(span Span) {
	if p.stopped.Load() {
		p.dropped.Add(1)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), p.exportTimeout)
	defer cancel()

	if err := exportWithRetry(ctx, p.exporter, []Span{span}, p.retryAttempts, p.retryDelay); err != nil {
		p.dropped.Add(1)
		p.logger.Error("span export failed",
			zap.String("span", span.Name),
			zap.Error(err),
		)
	}
}

// ForceFlush is a no-op; spans are never buffered.
func (p *SimpleProcessor) ForceFlush(context.Context) error {
	return nil
}

// Shutdown stops the processor and shuts down the exporter. Idempotent.
func (p *SimpleProcessor) Shutdown(ctx context.Context) error {
	if p.stopped.Swap(true) {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exporter.Shutdown(ctx)
}

// DroppedSpans returns the number of spans dropped after export failures.
func (p *SimpleProcessor) DroppedSpans() uint64 {
	return p.dropped.Load()
}
