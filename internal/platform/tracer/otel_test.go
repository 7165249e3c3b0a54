package tracer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	id "credledger/pkg/domain"
)

func TestSpanKind(t *testing.T) {
	assert.Equal(t, trace.SpanKindClient, spanKind(SpanIssue))
	assert.Equal(t, trace.SpanKindClient, spanKind(SpanRevoke))
	assert.Equal(t, trace.SpanKindInternal, spanKind(SpanVerify))
	assert.Equal(t, trace.SpanKindInternal, spanKind(SpanEnumerate))
}

func TestToOTelAttributes(t *testing.T) {
	got := toOTelAttributes([]Attribute{
		String(AttrCredentialID, "7"),
		Int(AttrCount, 3),
		{Key: AttrIssuer, Value: id.Address("0xAbC")},
		{Key: "unsupported", Value: []byte("x")},
	})

	assert.Equal(t, []attribute.KeyValue{
		attribute.String(AttrCredentialID, "7"),
		attribute.Int(AttrCount, 3),
		attribute.String(AttrIssuer, "0xAbC"),
	}, got)
	assert.Nil(t, toOTelAttributes(nil))
}
