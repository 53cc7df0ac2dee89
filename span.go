package tracekit

import (
	"sync"
	"time"
)

// Event is a timestamped annotation on a span.
type Event struct {
	Name       string
	Time       time.Time
	Attributes []Attribute
}

// Link is a reference from one span to another, possibly in a different trace.
type Link struct {
	TraceID    string
	SpanID     string
	Attributes []Attribute
}

// Span is the record of a single unit of work in a distributed trace.
// The pipeline only ever sees finished snapshots; a Span handed to a
// processor or exporter is immutable by contract.
type Span struct {
	TraceID    string
	SpanID     string
	ParentID   string
	Name       string
	Kind       SpanKind
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Attributes []Attribute
	Status     Status
	Events     []Event
	Links      []Link
}

// clone returns an independent copy of the span with its own slices.
func (s *Span) clone() Span {
	cp := *s
	if s.Attributes != nil {
		cp.Attributes = make([]Attribute, len(s.Attributes))
		copy(cp.Attributes, s.Attributes)
	}
	if s.Events != nil {
		cp.Events = make([]Event, len(s.Events))
		copy(cp.Events, s.Events)
	}
	if s.Links != nil {
		cp.Links = make([]Link, len(s.Links))
		copy(cp.Links, s.Links)
	}
	return cp
}

// ActiveSpan wraps a Span with thread-safe mutation and lifecycle management.
// Safe for concurrent use by multiple goroutines.
//
// All mutators are no-ops once the span has ended. End is idempotent: the
// first call fixes the end timestamp and notifies the pipeline exactly once.
type ActiveSpan struct {
	span     *Span
	provider *TracerProvider
	mu       sync.Mutex
	noop     bool
}

// ended reports whether the span has been closed. Callers must hold a.mu.
func (a *ActiveSpan) ended() bool {
	return !a.span.EndTime.IsZero()
}

// IsRecording reports whether the span is open and backed by a provider.
// Inert spans from a no-op tracer never record.
func (a *ActiveSpan) IsRecording() bool {
	if a.noop {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.ended()
}

// TraceID returns the span's trace identifier, "" for inert spans.
func (a *ActiveSpan) TraceID() string {
	if a.noop {
		return ""
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.span.TraceID
}

// SpanID returns the span's identifier, "" for inert spans.
func (a *ActiveSpan) SpanID() string {
	if a.noop {
		return ""
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.span.SpanID
}

// SetName renames the span. No-op after End.
func (a *ActiveSpan) SetName(name string) {
	if a.noop {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ended() {
		return
	}
	a.span.Name = name
}

// SetAttributes sets attributes on the span. Keys stay unique and keep
// first-set order; a repeated key overwrites the previous value (last
// write wins). No-op after End.
func (a *ActiveSpan) SetAttributes(attrs ...Attribute) {
	if a.noop {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ended() {
		return
	}
	for _, attr := range attrs {
		a.span.Attributes = upsertAttribute(a.span.Attributes, attr)
	}
}

func upsertAttribute(attrs []Attribute, attr Attribute) []Attribute {
	for i := range attrs {
		if attrs[i].Key == attr.Key {
			attrs[i].Value = attr.Value
			return attrs
		}
	}
	return append(attrs, attr)
}

// SetStatus sets the span status. Transitions are monotonic: Unset never
// overwrites Ok or Error, and Error is sticky against a later Ok. Setting
// the same code again keeps the latest message. No-op after End.
func (a *ActiveSpan) SetStatus(code StatusCode, message string) {
	if a.noop {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ended() {
		return
	}
	if code == StatusUnset {
		return
	}
	if a.span.Status.Code == StatusError && code == StatusOk {
		return
	}
	a.span.Status = Status{Code: code, Message: message}
}

// AddEvent appends a timestamped event to the span using the provider's
// clock. No-op after End.
func (a *ActiveSpan) AddEvent(name string, attrs ...Attribute) {
	if a.noop {
		return
	}
	a.addEvent(name, a.provider.now(), attrs)
}

// AddEventAt appends an event with an explicit timestamp. No-op after End.
func (a *ActiveSpan) AddEventAt(t time.Time, name string, attrs ...Attribute) {
	if a.noop {
		return
	}
	a.addEvent(name, t, attrs)
}

func (a *ActiveSpan) addEvent(name string, t time.Time, attrs []Attribute) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ended() {
		return
	}
	a.span.Events = append(a.span.Events, Event{Name: name, Time: t, Attributes: attrs})
}

// RecordError appends an exception event carrying the error message.
// It does not change the span status; call SetStatus(StatusError, ...) to
// mark the span failed. No-op for nil errors and after End.
func (a *ActiveSpan) RecordError(err error) {
	if a.noop || err == nil {
		return
	}
	a.addEvent("exception", a.provider.now(), []Attribute{
		String("exception.message", err.Error()),
	})
}

// End closes the span at the provider clock's current time and hands a
// snapshot to the processor pipeline. Safe to call multiple times; only
// the first call takes effect.
func (a *ActiveSpan) End() {
	if a.noop {
		return
	}
	a.EndAt(a.provider.now())
}

// EndAt closes the span at the given timestamp. Safe to call multiple
// times; only the first call takes effect.
func (a *ActiveSpan) EndAt(t time.Time) {
	if a.noop {
		return
	}

	a.mu.Lock()
	if a.ended() {
		a.mu.Unlock()
		return
	}
	a.span.EndTime = t
	a.span.Duration = t.Sub(a.span.StartTime)
	snapshot := a.span.clone()
	a.mu.Unlock()

	a.provider.spanEnded(snapshot)
}

// Snapshot returns an independent copy of the span's current state.
func (a *ActiveSpan) Snapshot() Span {
	if a.noop {
		return Span{}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.span.clone()
}
