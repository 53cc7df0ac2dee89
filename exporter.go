package tracekit

import (
	"context"
	"errors"
)

// ErrExporterShutdown is returned by ExportSpans after Shutdown.
var ErrExporterShutdown = errors.New("tracekit: exporter is shut down")

// Exporter is the terminal sink for finished spans.
//
// ExportSpans must not mutate the batch. Unless an exporter documents
// otherwise, the owning processor guarantees a single in-flight export at
// a time. Export failures that are worth retrying must be wrapped with
// RetryableError; anything else is treated as permanent and the batch is
// dropped.
//
// Shutdown flushes buffered data and releases underlying resources.
// Calling Shutdown twice is a no-op; ExportSpans after Shutdown returns
// ErrExporterShutdown.
type Exporter interface {
	ExportSpans(ctx context.Context, batch []Span) error
	Shutdown(ctx context.Context) error
}

// retryableError marks an export failure as transient.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }

func (e *retryableError) Unwrap() error { return e.err }

// RetryableError wraps err so the owning processor retries the export with
// backoff. Wrapping nil returns nil.
func RetryableError(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// IsRetryable reports whether an export error was marked retryable.
func IsRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// exportSpan is the wire representation of a finished span: one record per
// span, timestamps as epoch nanoseconds, durations as nanoseconds.
type exportSpan struct {
	TraceID    string         `json:"traceId"`
	SpanID     string         `json:"spanId"`
	ParentID   string         `json:"parentId,omitempty"`
	Name       string         `json:"name"`
	Kind       string         `json:"kind"`
	StartTime  int64          `json:"startTime"`
	Duration   int64          `json:"duration"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Status     exportStatus   `json:"status"`
	Events     []exportEvent  `json:"events,omitempty"`
	Links      []exportLink   `json:"links,omitempty"`
}

type exportStatus struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type exportEvent struct {
	Name       string         `json:"name"`
	Timestamp  int64          `json:"timestamp"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

type exportLink struct {
	TraceID    string         `json:"traceId"`
	SpanID     string         `json:"spanId"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

func attributesToWire(attrs []Attribute) map[string]any {
	if len(attrs) == 0 {
		return nil
	}
	m := make(map[string]any, len(attrs))
	for _, attr := range attrs {
		m[attr.Key] = attr.Value.AsInterface()
	}
	return m
}

// toWire converts a finished span to its wire representation.
func toWire(s *Span) exportSpan {
	out := exportSpan{
		TraceID:    s.TraceID,
		SpanID:     s.SpanID,
		ParentID:   s.ParentID,
		Name:       s.Name,
		Kind:       s.Kind.String(),
		StartTime:  s.StartTime.UnixNano(),
		Duration:   s.Duration.Nanoseconds(),
		Attributes: attributesToWire(s.Attributes),
		Status: exportStatus{
			Code:    s.Status.Code.String(),
			Message: s.Status.Message,
		},
	}
	for _, ev := range s.Events {
		out.Events = append(out.Events, exportEvent{
			Name:       ev.Name,
			Timestamp:  ev.Time.UnixNano(),
			Attributes: attributesToWire(ev.Attributes),
		})
	}
	for _, link := range s.Links {
		out.Links = append(out.Links, exportLink{
			TraceID:    link.TraceID,
			SpanID:     link.SpanID,
			Attributes: attributesToWire(link.Attributes),
		})
	}
	return out
}
