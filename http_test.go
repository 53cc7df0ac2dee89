package tracekit

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPExporterPostsBatch(t *testing.T) {
	var body atomic.Value
	var contentType atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body.Store(string(raw))
		contentType.Store(r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	exporter := NewHTTPExporter(server.URL, WithHTTPHeaders(map[string]string{
		"X-Api-Key": "secret",
	}))

	batch := []Span{
		{TraceID: "aaaa", SpanID: "bbbb", Name: "op", StartTime: time.Unix(0, 1)},
	}
	if err := exporter.ExportSpans(context.Background(), batch); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	got, _ := body.Load().(string)
	if !strings.HasPrefix(got, "[") || !strings.Contains(got, `"name":"op"`) {
		t.Errorf("expected JSON array with the span, got %q", got)
	}
	if ct, _ := contentType.Load().(string); ct != "application/json" {
		t.Errorf("expected application/json content type, got %q", ct)
	}
}

func TestHTTPExporterSendsCustomHeaders(t *testing.T) {
	var header atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header.Store(r.Header.Get("X-Api-Key"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	exporter := NewHTTPExporter(server.URL, WithHTTPHeaders(map[string]string{
		"X-Api-Key": "secret",
	}))
	if err := exporter.ExportSpans(context.Background(), []Span{{Name: "op"}}); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if got, _ := header.Load().(string); got != "secret" {
		t.Errorf("expected custom header forwarded, got %q", got)
	}
}

func TestHTTPExporterRetryableStatuses(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))

		exporter := NewHTTPExporter(server.URL)
		err := exporter.ExportSpans(context.Background(), []Span{{Name: "op"}})
		if err == nil {
			t.Errorf("status %d: expected failure", status)
		} else if !IsRetryable(err) {
			t.Errorf("status %d: expected retryable failure, got %v", status, err)
		}
		server.Close()
	}
}

func TestHTTPExporterPermanentStatuses(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))

		exporter := NewHTTPExporter(server.URL)
		err := exporter.ExportSpans(context.Background(), []Span{{Name: "op"}})
		if err == nil {
			t.Errorf("status %d: expected failure", status)
		} else if IsRetryable(err) {
			t.Errorf("status %d: expected permanent failure, got retryable %v", status, err)
		}
		server.Close()
	}
}

func TestHTTPExporterTransportErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	server.Close() // Refuse connections.

	exporter := NewHTTPExporter(server.URL)
	err := exporter.ExportSpans(context.Background(), []Span{{Name: "op"}})
	if err == nil {
		t.Fatal("expected transport failure")
	}
	if !IsRetryable(err) {
		t.Errorf("transport failures should be retryable, got %v", err)
	}
}

func TestHTTPExporterEmptyBatchIsNoOp(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	exporter := NewHTTPExporter(server.URL)
	if err := exporter.ExportSpans(context.Background(), nil); err != nil {
		t.Fatalf("empty export failed: %v", err)
	}
	if calls.Load() != 0 {
		t.Error("empty batch should not hit the collector")
	}
}

func TestHTTPExporterShutdown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	exporter := NewHTTPExporter(server.URL)
	if err := exporter.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if err := exporter.Shutdown(context.Background()); err != nil {
		t.Fatalf("second shutdown failed: %v", err)
	}

	err := exporter.ExportSpans(context.Background(), []Span{{Name: "late"}})
	if !errors.Is(err, ErrExporterShutdown) {
		t.Errorf("expected ErrExporterShutdown, got %v", err)
	}
}

func TestHTTPExporterThroughBatchProcessor(t *testing.T) {
	var attempts atomic.Int64
	var lastBody atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		lastBody.Store(string(raw))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	processor := NewBatchProcessor(NewHTTPExporter(server.URL), WithBatchTimeout(time.Hour))
	processor.retryDelay = time.Millisecond

	processor.OnEnd(Span{TraceID: "t1", SpanID: "s1", Name: "op"})
	if err := processor.ForceFlush(context.Background()); err != nil {
		t.Fatalf("flush failed despite retry: %v", err)
	}
	if err := processor.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	if attempts.Load() != 2 {
		t.Errorf("expected one retry after 503, got %d attempts", attempts.Load())
	}
	body, _ := lastBody.Load().(string)
	if !strings.Contains(body, `"spanId":"s1"`) {
		t.Errorf("expected span delivered on retry, got %q", body)
	}
}
