// Package tracer provides a lightweight tracing abstraction for the credential packages.
//
// Services depend on the Tracer interface rather than on OpenTelemetry APIs.
//
// Implementations:
//   - NoopTracer: For tests (zero overhead)
//   - OTelTracer: OpenTelemetry adapter for production
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span, recording any error that occurred.
	// End must be called exactly once, typically via defer.
	End(err error)

	SetAttributes(attrs ...Attribute)

	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a new span with the given name and attributes.
	//
	// Example:
	//   ctx, span := tracer.Start(ctx, tracer.SpanVerify,
	//       tracer.String(tracer.AttrCredentialID, credentialID.String()),
	//   )
	//   defer span.End(nil)
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
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

func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanEnumerate  = "credential.enumerate"
	SpanListIssued = "credential.list_issued"
	SpanVerify     = "credential.verify"
	SpanIssue      = "credential.issue"
	SpanRevoke     = "credential.revoke"
)

// Attribute keys.
const (
	AttrOwner        = "owner"
	AttrIssuer       = "issuer"
	AttrCredentialID = "credential_id"
	AttrCount        = "count"
	AttrSkipped      = "skipped"
	AttrVerdict      = "verdict"
	AttrStage        = "stage"
	AttrTxHash       = "tx_hash"
	AttrSnapshot     = "snapshot"
)

// Event names.
const (
	EventPinned    = "document.pinned"
	EventSubmitted = "write.submitted"
	EventConfirmed = "write.confirmed"
)
