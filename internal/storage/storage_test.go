package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "credledger/pkg/domain-errors"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

func TestDocumentPolicy(t *testing.T) {
	policy := DefaultDocumentPolicy()

	t.Run("accepts a pdf and sets the sniffed type", func(t *testing.T) {
		doc, err := policy.Check(Document{Name: "diploma.pdf", Data: samplePDF, ContentType: "text/plain"})
		require.NoError(t, err)
		assert.Equal(t, TypePDF, doc.ContentType)
	})

	t.Run("rejects empty document", func(t *testing.T) {
		_, err := policy.Check(Document{Name: "empty.pdf"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects non pdf content regardless of name", func(t *testing.T) {
		_, err := policy.Check(Document{Name: "diploma.pdf", Data: []byte("just some text")})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		assert.Contains(t, err.Error(), "text/plain")
	})

	t.Run("rejects oversized document", func(t *testing.T) {
		small := DocumentPolicy{MaxSizeBytes: 16, AllowedTypes: []string{TypePDF}}
		_, err := small.Check(Document{Data: samplePDF})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("empty allow list accepts any type", func(t *testing.T) {
		open := DocumentPolicy{MaxSizeBytes: 1024}
		doc, err := open.Check(Document{Data: []byte("plain text")})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(doc.ContentType, "text/plain"))
	})
}

func TestMemoryStorePinIsContentAddressed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore("ipfs")

	first, err := store.Pin(ctx, Document{Data: samplePDF, ContentType: TypePDF})
	require.NoError(t, err)
	second, err := store.Pin(ctx, Document{Data: samplePDF, ContentType: TypePDF})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "ipfs://"+ContentKey(samplePDF), first.String())
	assert.Equal(t, 1, store.Len())

	data, contentType, err := store.Get(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, samplePDF, data)
	assert.Equal(t, TypePDF, contentType)

	_, _, err = store.Get(ctx, NewPointer("ipfs", "missing"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGatewayURL(t *testing.T) {
	tests := []struct {
		name    string
		gateway string
		pointer string
		want    string
	}{
		{"rewrites scheme pointer", "https://ipfs.io/ipfs/", "ipfs://abc", "https://ipfs.io/ipfs/abc"},
		{"http link unchanged", "https://ipfs.io/ipfs", "https://example.org/doc.pdf", "https://example.org/doc.pdf"},
		{"no gateway configured", "", "ipfs://abc", "ipfs://abc"},
		{"not a pointer", "https://ipfs.io/ipfs", "abc", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GatewayURL(tt.gateway, tt.pointer))
		})
	}
}

func TestNewPointerDefaultsScheme(t *testing.T) {
	assert.Equal(t, Pointer("ipfs://k"), NewPointer("", "k"))
	assert.Equal(t, "k", NewPointer("s3", "k").Key())
}

func TestMinIOConfigValidate(t *testing.T) {
	var missing *MinIOConfig
	assert.Error(t, missing.Validate())
	assert.Error(t, (&MinIOConfig{Endpoint: "localhost:9000"}).Validate())
	assert.NoError(t, (&MinIOConfig{Endpoint: "localhost:9000", Bucket: "credentials"}).Validate())

	_, err := NewMinIOStore(context.Background(), &MinIOConfig{}, "ipfs")
	assert.Error(t, err)
}
