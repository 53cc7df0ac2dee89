package tracekit

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/bytedance/sonic"
)

// WriterExporter serializes finished spans to an io.Writer, one JSON
// object per span per line. Suitable for console output and log files.
// Safe for concurrent use.
type WriterExporter struct {
	mu      sync.Mutex
	w       io.Writer
	stopped bool
}

// NewWriterExporter creates an exporter writing to w.
func NewWriterExporter(w io.Writer) *WriterExporter {
	return &WriterExporter{w: w}
}

// ExportSpans writes each span in the batch as a JSON line. Write errors
// are retryable; encoding errors are permanent.
func (e *WriterExporter) ExportSpans(ctx context.Context, batch []Span) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return ErrExporterShutdown
	}

	for i := range batch {
		buf, err := sonic.Marshal(toWire(&batch[i]))
		if err != nil {
			return fmt.Errorf("encode span %q: %w", batch[i].Name, err)
		}
		buf = append(buf, '\n')
		if _, err := e.w.Write(buf); err != nil {
			return RetryableError(fmt.Errorf("write span batch: %w", err))
		}
	}
	return nil
}

// Shutdown marks the exporter as stopped. Idempotent. The underlying
// writer is not closed; the caller owns it.
func (e *WriterExporter) Shutdown(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
	return nil
}
