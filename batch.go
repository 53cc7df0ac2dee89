package tracekit

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
)

const (
	defaultMaxQueueSize       = 2048
	defaultMaxExportBatchSize = 512
	defaultBatchTimeout       = 5 * time.Second
)

// BatchProcessor queues finished spans and exports them in batches, either
// when the batch is full or when the batch timeout elapses. The queue is
// bounded: under backpressure spans are dropped and counted rather than
// blocking span-producing code. Safe for concurrent use.
type BatchProcessor struct {
	exporter           Exporter
	logger             *zap.Logger
	clock              clockz.Clock
	queue              chan Span
	flushCh            chan chan error
	stopCh             chan struct{}
	done               chan struct{}
	batch              []Span
	maxExportBatchSize int
	batchTimeout       time.Duration
	exportTimeout      time.Duration
	retryAttempts      uint64
	retryDelay         time.Duration
	stopped            atomic.Bool
	dropped            atomic.Uint64
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithMaxQueueSize bounds the number of finished spans waiting to be
// batched. Spans arriving at a full queue are dropped and counted.
func WithMaxQueueSize(n int) BatchOption {
	return func(p *BatchProcessor) {
		if n > 0 {
			p.queue = make(chan Span, n)
		}
	}
}

// WithMaxExportBatchSize caps how many spans one export call carries.
func WithMaxExportBatchSize(n int) BatchOption {
	return func(p *BatchProcessor) {
		if n > 0 {
			p.maxExportBatchSize = n
		}
	}
}

// WithBatchTimeout sets how long a non-empty batch may wait before export.
func WithBatchTimeout(d time.Duration) BatchOption {
	return func(p *BatchProcessor) {
		if d > 0 {
			p.batchTimeout = d
		}
	}
}

// WithExportTimeout bounds each export call, including retries. The bound
// is enforced here, not by the exporter, so a misbehaving exporter cannot
// stall the pipeline indefinitely.
func WithExportTimeout(d time.Duration) BatchOption {
	return func(p *BatchProcessor) {
		if d > 0 {
			p.exportTimeout = d
		}
	}
}

// WithBatchLogger sets the logger for drop and export failure reporting.
func WithBatchLogger(logger *zap.Logger) BatchOption {
	return func(p *BatchProcessor) {
		p.logger = logger
	}
}

// WithBatchClock replaces the clock driving the batch timeout.
// Enables clock injection for deterministic testing.
func WithBatchClock(clock clockz.Clock) BatchOption {
	return func(p *BatchProcessor) {
		p.clock = clock
	}
}

// NewBatchProcessor creates a batching processor owning exporter and starts
// its background loop.
func NewBatchProcessor(exporter Exporter, opts ...BatchOption) *BatchProcessor {
	p := &BatchProcessor{
		exporter:           exporter,
		logger:             zap.NewNop(),
		clock:              clockz.RealClock,
		queue:              make(chan Span, defaultMaxQueueSize),
		flushCh:            make(chan chan error),
		stopCh:             make(chan struct{}),
		done:               make(chan struct{}),
		maxExportBatchSize: defaultMaxExportBatchSize,
		batchTimeout:       defaultBatchTimeout,
		exportTimeout:      defaultExportTimeout,
		retryAttempts:      defaultRetryAttempts,
		retryDelay:         defaultRetryBaseDelay,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.batch = make([]Span, 0, p.maxExportBatchSize)
	go p.loop()
	return p
}

// OnStart is a no-op.
func (p *BatchProcessor) OnStart(context.Context, *ActiveSpan) {}

// OnEnd queues the finished span for batching. Never blocks: if the queue
// is full the span is dropped and counted.
func (p *BatchProcessor) OnEnd(span Span) {
	if p.stopped.Load() {
		p.dropped.Add(1)
		return
	}
	select {
	case p.queue <- span:
	default:
		p.dropped.Add(1)
	}
}

// loop drains the queue into batches and exports on size or timeout.
func (p *BatchProcessor) loop() {
	defer close(p.done)

	timeout := p.clock.After(p.batchTimeout)
	for {
		select {
		case span := <-p.queue:
			p.batch = append(p.batch, span)
			if len(p.batch) >= p.maxExportBatchSize {
				p.exportBatch()
				timeout = p.clock.After(p.batchTimeout)
			}
		case <-timeout:
			p.exportBatch()
			timeout = p.clock.After(p.batchTimeout)
		case ack := <-p.flushCh:
			p.drainQueue()
			ack <- p.exportBatch()
			timeout = p.clock.After(p.batchTimeout)
		case <-p.stopCh:
			p.drainQueue()
			p.exportBatch()
			return
		}
	}
}

// drainQueue moves everything currently queued into the batch, exporting
// full batches along the way. Runs on the loop goroutine only.
func (p *BatchProcessor) drainQueue() {
	for {
		select {
		case span := <-p.queue:
			p.batch = append(p.batch, span)
			if len(p.batch) >= p.maxExportBatchSize {
				p.exportBatch()
			}
		default:
			return
		}
	}
}

// exportBatch delivers the pending batch. Runs on the loop goroutine only.
func (p *BatchProcessor) exportBatch() error {
	if len(p.batch) == 0 {
		return nil
	}

	batch := p.batch
	p.batch = make([]Span, 0, p.maxExportBatchSize)

	ctx, cancel := context.WithTimeout(context.Background(), p.exportTimeout)
	defer cancel()

	if err := exportWithRetry(ctx, p.exporter, batch, p.retryAttempts, p.retryDelay); err != nil {
		p.dropped.Add(uint64(len(batch)))
		p.logger.Error("span batch export failed",
			zap.Int("batch_size", len(batch)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// ForceFlush drains the queue and exports the pending batch, waiting for
// completion or ctx expiry.
func (p *BatchProcessor) ForceFlush(ctx context.Context) error {
	if p.stopped.Load() {
		return nil
	}

	ack := make(chan error, 1)
	select {
	case p.flushCh <- ack:
	case <-p.stopCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-ack:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops the loop, drains queued spans within ctx's grace period,
// and shuts down the exporter. Spans still unexported when the grace period
// expires are dropped and reported. Idempotent.
func (p *BatchProcessor) Shutdown(ctx context.Context) error {
	if p.stopped.Swap(true) {
		return nil
	}

	close(p.stopCh)

	var drainErr error
	select {
	case <-p.done:
	case <-ctx.Done():
		drainErr = ctx.Err()
		p.logger.Warn("batch processor shutdown grace period expired, pending spans dropped")
	}

	return errors.Join(drainErr, p.exporter.Shutdown(ctx))
}

// DroppedSpans returns the number of spans dropped due to backpressure,
// export failures, or shutdown.
func (p *BatchProcessor) DroppedSpans() uint64 {
	return p.dropped.Load()
}
