package testutil

import (
	"credledger/internal/credential/models"
	"credledger/internal/ledger/memory"
	"credledger/internal/storage"
	id "credledger/pkg/domain"
)

// TestAddresses provides fixed ledger addresses for tests.
// Mixed case on purpose: comparisons must be case-insensitive.
var TestAddresses = struct {
	IssuerA id.Address
	IssuerB id.Address
	Admin   id.Address
	Student id.Address
	Other   id.Address
}{
	IssuerA: id.Address("0xAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAa"),
	IssuerB: id.Address("0xBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBb"),
	Admin:   id.Address("0xCcCcCcCcCcCcCcCcCcCcCcCcCcCcCcCcCcCcCcCc"),
	Student: id.Address("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"),
	Other:   id.Address("0x1111111111111111111111111111111111111111"),
}

const (
	IssuerAName = "State University"
	IssuerBName = "Tech Institute"
)

// SamplePDF is the smallest document the default document policy accepts.
var SamplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

// NewLedger returns an in-process ledger with IssuerA and IssuerB registered.
func NewLedger(opts ...memory.Option) *memory.Ledger {
	l := memory.New(opts...)
	l.RegisterIssuer(TestAddresses.IssuerA, IssuerAName)
	l.RegisterIssuer(TestAddresses.IssuerB, IssuerBName)
	return l
}

// IssueRequestBuilder provides a fluent interface for building issuance requests.
type IssueRequestBuilder struct {
	req models.IssueRequest
}

// NewIssueRequestBuilder starts from a valid request for TestAddresses.Student.
func NewIssueRequestBuilder() *IssueRequestBuilder {
	return &IssueRequestBuilder{
		req: models.IssueRequest{
			Student:  TestAddresses.Student.String(),
			Title:    "BSc CS",
			Document: storage.Document{Name: "diploma.pdf", Data: SamplePDF},
		},
	}
}

func (b *IssueRequestBuilder) WithStudent(student id.Address) *IssueRequestBuilder {
	b.req.Student = student.String()
	return b
}

func (b *IssueRequestBuilder) WithTitle(title string) *IssueRequestBuilder {
	b.req.Title = title
	return b
}

func (b *IssueRequestBuilder) WithDocument(name string, data []byte) *IssueRequestBuilder {
	b.req.Document = storage.Document{Name: name, Data: data}
	return b
}

func (b *IssueRequestBuilder) Build() models.IssueRequest {
	return b.req
}
