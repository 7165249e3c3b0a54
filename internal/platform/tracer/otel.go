package tracer

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dErrors "credledger/pkg/domain-errors"
)

// InstrumentationName identifies credential spans in the tracer provider.
const InstrumentationName = "credledger/credential"

// OTelTracer adapts an OpenTelemetry tracer to Tracer.
//
// Issue and revoke spans are client spans because they submit a transaction
// and wait on the ledger; every other span is internal. A failed span carries
// the domain error code as its status description, so raw ledger messages
// (which may name addresses) stay in the recorded error event only.
type OTelTracer struct {
	provider trace.TracerProvider
	tracer   trace.Tracer
}

type OTelOption func(*OTelTracer)

// WithTracerProvider sets the provider spans are created from.
// Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(o *OTelTracer) {
		o.provider = tp
	}
}

func NewOTel(opts ...OTelOption) *OTelTracer {
	t := &OTelTracer{}
	for _, opt := range opts {
		opt(t)
	}
	if t.provider == nil {
		t.provider = otel.GetTracerProvider()
	}
	t.tracer = t.provider.Tracer(InstrumentationName)
	return t
}

func (t *OTelTracer) Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name,
		trace.WithSpanKind(spanKind(name)),
		trace.WithAttributes(toOTelAttributes(attrs)...),
	)
	return ctx, &otelSpan{span: span}
}

func spanKind(name string) trace.SpanKind {
	switch name {
	case SpanIssue, SpanRevoke:
		return trace.SpanKindClient
	default:
		return trace.SpanKindInternal
	}
}

type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) End(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}

func (s *otelSpan) SetAttributes(attrs ...Attribute) {
	s.span.SetAttributes(toOTelAttributes(attrs)...)
}

func (s *otelSpan) AddEvent(name string, attrs ...Attribute) {
	s.span.AddEvent(name, trace.WithAttributes(toOTelAttributes(attrs)...))
}

// toOTelAttributes drops values of unsupported types.
func toOTelAttributes(attrs []Attribute) []attribute.KeyValue {
	if len(attrs) == 0 {
		return nil
	}
	result := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		if kv, ok := toKeyValue(a); ok {
			result = append(result, kv)
		}
	}
	return result
}

func toKeyValue(a Attribute) (attribute.KeyValue, bool) {
	switch v := a.Value.(type) {
	case string:
		return attribute.String(a.Key, v), true
	case bool:
		return attribute.Bool(a.Key, v), true
	case int64:
		return attribute.Int64(a.Key, v), true
	case int:
		return attribute.Int(a.Key, v), true
	case float64:
		return attribute.Float64(a.Key, v), true
	case fmt.Stringer:
		return attribute.Stringer(a.Key, v), true
	}
	return attribute.KeyValue{}, false
}

var (
	_ Tracer = (*OTelTracer)(nil)
	_ Span   = (*otelSpan)(nil)
)
