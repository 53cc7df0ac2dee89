package tracekit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/bytedance/sonic"
)

// HTTPExporter pushes span batches to a collector endpoint as a JSON array
// per POST request. Responses with status 429 or 5xx are reported as
// retryable; other non-2xx responses are permanent failures and the batch
// is dropped by the owning processor. Safe for concurrent use.
type HTTPExporter struct {
	endpoint string
	client   *http.Client
	headers  map[string]string
	stopped  atomic.Bool
}

// HTTPOption configures an HTTPExporter.
type HTTPOption func(*HTTPExporter)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(e *HTTPExporter) {
		e.client = client
	}
}

// WithHTTPHeaders adds headers to every export request.
func WithHTTPHeaders(headers map[string]string) HTTPOption {
	return func(e *HTTPExporter) {
		for k, v := range headers {
			e.headers[k] = v
		}
	}
}

// NewHTTPExporter creates an exporter POSTing batches to endpoint.
// Export deadlines are enforced by the owning processor through the
// context, not by the exporter.
func NewHTTPExporter(endpoint string, opts ...HTTPOption) *HTTPExporter {
	e := &HTTPExporter{
		endpoint: endpoint,
		client:   &http.Client{},
		headers:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExportSpans POSTs the batch as JSON.
func (e *HTTPExporter) ExportSpans(ctx context.Context, batch []Span) error {
	if e.stopped.Load() {
		return ErrExporterShutdown
	}
	if len(batch) == 0 {
		return nil
	}

	wire := make([]exportSpan, len(batch))
	for i := range batch {
		wire[i] = toWire(&batch[i])
	}
	body, err := sonic.Marshal(wire)
	if err != nil {
		return fmt.Errorf("encode span batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build export request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range e.headers {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		// Transport errors are worth retrying.
		return RetryableError(fmt.Errorf("post span batch: %w", err))
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return RetryableError(fmt.Errorf("collector rejected batch: %s", resp.Status))
	default:
		return fmt.Errorf("collector rejected batch: %s", resp.Status)
	}
}

// Shutdown releases idle connections. Idempotent; subsequent ExportSpans
// calls return ErrExporterShutdown.
func (e *HTTPExporter) Shutdown(context.Context) error {
	if e.stopped.Swap(true) {
		return nil
	}
	e.client.CloseIdleConnections()
	return nil
}
