package tracekit

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// SpanProcessor is a pipeline hook notified when spans start and end.
//
// OnStart is invoked synchronously when a span is created and may enrich
// it through the handle; it must not block. OnEnd receives an immutable
// snapshot of the finished span. A processor that panics or errors never
// affects other processors or the instrumented application; the provider
// recovers and reports the failure.
type SpanProcessor interface {
	OnStart(parent context.Context, span *ActiveSpan)
	OnEnd(span Span)
	ForceFlush(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

const (
	defaultExportTimeout  = 30 * time.Second
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 500 * time.Millisecond
)

// exportWithRetry delivers a batch, retrying failures marked retryable with
// exponential backoff up to maxAttempts total attempts. Permanent failures
// and retry exhaustion return the last error; the caller decides what to
// drop and report.
func exportWithRetry(ctx context.Context, exp Exporter, batch []Span, maxAttempts uint64, baseDelay time.Duration) error {
	operation := func() error {
		err := exp.ExportSpans(ctx, batch)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	if maxAttempts == 0 {
		maxAttempts = 1
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = baseDelay

	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, maxAttempts-1), ctx))
}

// reportFailure logs a recovered processor panic or internal error without
// letting it reach span-producing code.
func reportFailure(logger *zap.Logger, stage string, recovered any) {
	logger.Error("span processor failure",
		zap.String("stage", stage),
		zap.Any("panic", recovered),
	)
}
