// Package tracer is a small tracing facade used around outbound calls.
//
// Callers depend on Tracer and Span only; OTelTracer adapts OpenTelemetry and
// NoopTracer is used in tests and when tracing is disabled.
package tracer

import (
	"context"
	"time"
)

// Span is an active trace span. End must be called exactly once.
type Span interface {
	// End completes the span and marks it failed when err is non-nil.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a span; the returned context carries it to child calls.
	//
	//   ctx, span := t.Start(ctx, tracer.SpanRegistryLookup, tracer.String(tracer.AttrDOTNumber, dot))
	//   defer func() { span.End(err) }()
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute is a key-value pair attached to a span.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration records value in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanRegistryLookup = "registry.lookup"
	SpanInviteEscalate = "invite.escalate"
	SpanInviteEvaluate = "invite.evaluate"
	SpanInviteSend     = "invite.send"
)

// Attribute keys.
const (
	AttrDOTNumber     = "carrier.dot_number"
	AttrOutcome       = "decision.outcome"
	AttrReason        = "decision.reason"
	AttrWaitDays      = "decision.wait_days"
	AttrCategory      = "error.category"
	AttrHTTPStatus    = "http.status_code"
	AttrCorrelationID = "invite.correlation_id"
	AttrSendResult    = "invite.result"
)

// Event names.
const (
	EventRateLimited = "rate_limiter.waited"
	EventCircuitOpen = "circuit.rejected"
)
