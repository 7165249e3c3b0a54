package storage

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"

	dErrors "credledger/pkg/domain-errors"
)

const (
	// DefaultMaxDocumentSize matches the upload form limit of 10 MiB.
	DefaultMaxDocumentSize int64 = 10 << 20

	TypePDF = "application/pdf"
)

// DocumentPolicy bounds what may be pinned for a credential.
type DocumentPolicy struct {
	MaxSizeBytes int64
	AllowedTypes []string
}

// DefaultDocumentPolicy accepts PDFs up to 10 MiB.
func DefaultDocumentPolicy() DocumentPolicy {
	return DocumentPolicy{
		MaxSizeBytes: DefaultMaxDocumentSize,
		AllowedTypes: []string{TypePDF},
	}
}

// Check validates doc and returns it with ContentType set from the sniffed bytes.
// The declared type of an upload is never trusted.
func (p DocumentPolicy) Check(doc Document) (Document, error) {
	if len(doc.Data) == 0 {
		return doc, dErrors.New(dErrors.CodeInvalidInput, "document is required")
	}
	if p.MaxSizeBytes > 0 && int64(len(doc.Data)) > p.MaxSizeBytes {
		return doc, dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("document exceeds maximum size of %d bytes", p.MaxSizeBytes))
	}

	detected := mimetype.Detect(doc.Data)
	if len(p.AllowedTypes) > 0 && !allowed(detected, p.AllowedTypes) {
		return doc, dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("document type %s is not allowed", detected.String()))
	}

	doc.ContentType = detected.String()
	return doc, nil
}

func allowed(detected *mimetype.MIME, types []string) bool {
	for m := detected; m != nil; m = m.Parent() {
		for _, t := range types {
			if m.Is(t) {
				return true
			}
		}
	}
	return false
}
