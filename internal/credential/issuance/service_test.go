package issuance

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks IssuerDirectory,ContentStore,AuditPublisher

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"credledger/internal/credential/issuance/mocks"
	"credledger/internal/credential/metrics"
	"credledger/internal/credential/models"
	"credledger/internal/ledger"
	"credledger/internal/ledger/memory"
	ledgermocks "credledger/internal/ledger/mocks"
	"credledger/internal/storage"
	id "credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
	"credledger/pkg/platform/audit"
	"credledger/pkg/platform/audit/publisher"
)

const (
	issuerA  = id.Address("0xAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAa")
	outsider = id.Address("0x9999999999999999999999999999999999999999")
	studentS = id.Address("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj << /Type /Catalog >> endobj\ntrailer << /Root 1 0 R >>\n%%EOF\n")

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func validRequest() models.IssueRequest {
	return models.IssueRequest{
		Student:  studentS.String(),
		Title:    "BSc Computer Science",
		Document: storage.Document{Name: "diploma.pdf", Data: samplePDF},
	}
}

// IssuanceSuite drives the coordinator against mocked ports.
type IssuanceSuite struct {
	suite.Suite
	ctx       context.Context
	ctrl      *gomock.Controller
	directory *mocks.MockIssuerDirectory
	store     *mocks.MockContentStore
	auditor   *mocks.MockAuditPublisher
	session   *ledgermocks.MockSession
	handle    *ledgermocks.MockWriteHandle
	metrics   *metrics.Metrics
	coord     *Coordinator
}

func TestIssuanceSuite(t *testing.T) {
	suite.Run(t, new(IssuanceSuite))
}

func (s *IssuanceSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.directory = mocks.NewMockIssuerDirectory(s.ctrl)
	s.store = mocks.NewMockContentStore(s.ctrl)
	s.auditor = mocks.NewMockAuditPublisher(s.ctrl)
	s.session = ledgermocks.NewMockSession(s.ctrl)
	s.handle = ledgermocks.NewMockWriteHandle(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.coord = New(s.directory, s.store,
		WithAuditor(s.auditor),
		WithMetrics(s.metrics),
		WithConfirmationTimeout(time.Second),
	)
	s.session.EXPECT().Address().Return(issuerA).AnyTimes()
}

func (s *IssuanceSuite) expectIssuer() {
	s.directory.EXPECT().IsIssuer(gomock.Any(), issuerA).Return(true, nil)
}

func (s *IssuanceSuite) expectPinned() storage.Pointer {
	pointer := storage.NewPointer("", storage.ContentKey(samplePDF))
	s.store.EXPECT().Pin(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, doc storage.Document) (storage.Pointer, error) {
			s.Equal(storage.TypePDF, doc.ContentType)
			return pointer, nil
		})
	return pointer
}

func (s *IssuanceSuite) expectSubmitted() {
	s.session.EXPECT().Issue(gomock.Any(), gomock.Any()).Return(s.handle, nil)
	s.handle.EXPECT().TxHash().Return("0xabc").AnyTimes()
}

func (s *IssuanceSuite) expectAudit(action audit.AuditEvent) {
	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e audit.Event) error {
			s.Equal(string(action), e.Action)
			s.Equal(issuerA, e.Actor)
			return nil
		})
}

func (s *IssuanceSuite) TestSuccess() {
	s.expectIssuer()
	pointer := s.expectPinned()
	s.session.EXPECT().Issue(gomock.Any(), ledger.MintRequest{
		Student:         studentS,
		DocumentPointer: pointer.String(),
		Title:           "BSc Computer Science",
	}).Return(s.handle, nil)
	s.handle.EXPECT().TxHash().Return("0xabc").AnyTimes()
	s.handle.EXPECT().Wait(gomock.Any()).Return(&ledger.Receipt{
		TxHash: "0xabc",
		Events: []ledger.IssuanceEvent{{Issuer: issuerA, ID: "7", Student: studentS}},
	}, nil)
	s.expectAudit(audit.EventCredentialIssued)

	result, err := s.coord.Issue(s.ctx, s.session, validRequest())

	s.Require().NoError(err)
	s.Equal(id.CredentialID("7"), result.CredentialID)
	s.Equal(pointer, result.DocumentPointer)
	s.Equal(studentS, result.Student)
	s.Equal("0xabc", result.TxHash)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.WritesTotal.WithLabelValues(operation, metrics.OutcomeConfirmed)))
}

func (s *IssuanceSuite) TestRequiresSession() {
	_, err := s.coord.Issue(s.ctx, nil, validRequest())

	s.True(dErrors.HasCode(err, dErrors.CodeNotConnected))
}

func (s *IssuanceSuite) TestNonIssuerIsDenied() {
	s.directory.EXPECT().IsIssuer(gomock.Any(), issuerA).Return(false, nil)
	s.store.EXPECT().Pin(gomock.Any(), gomock.Any()).Times(0)
	s.expectAudit(audit.EventIssueDenied)

	_, err := s.coord.Issue(s.ctx, s.session, validRequest())

	s.True(dErrors.HasCode(err, dErrors.CodeNotAuthorized))
}

func (s *IssuanceSuite) TestUnreadableCapability() {
	tests := []struct {
		name   string
		err    error
		code   dErrors.Code
		action audit.AuditEvent
	}{
		{"transient read is unavailable, not a denial", ledger.NewError(ledger.ErrorUnavailable, "isIssuer", "rpc down", nil), dErrors.CodeLedgerUnavailable, audit.EventIssueFailed},
		{"timeout is unavailable", ledger.NewError(ledger.ErrorTimeout, "isIssuer", "deadline exceeded", nil), dErrors.CodeLedgerUnavailable, audit.EventIssueFailed},
		{"not found is a denial", ledger.NewError(ledger.ErrorNotFound, "isIssuer", "no such account", nil), dErrors.CodeNotAuthorized, audit.EventIssueDenied},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.directory.EXPECT().IsIssuer(gomock.Any(), issuerA).Return(false, tt.err)
			s.store.EXPECT().Pin(gomock.Any(), gomock.Any()).Times(0)
			s.expectAudit(tt.action)

			_, err := s.coord.Issue(s.ctx, s.session, validRequest())

			s.True(dErrors.HasCode(err, tt.code), "got %v", dErrors.CodeOf(err))
		})
	}
}

func (s *IssuanceSuite) TestInvalidInput() {
	tests := []struct {
		name   string
		mutate func(*models.IssueRequest)
	}{
		{"empty student", func(r *models.IssueRequest) { r.Student = "" }},
		{"malformed student", func(r *models.IssueRequest) { r.Student = "0x1234" }},
		{"empty title", func(r *models.IssueRequest) { r.Title = "   " }},
		{"title too long", func(r *models.IssueRequest) { r.Title = strings.Repeat("x", models.MaxTitleLength+1) }},
		{"missing document", func(r *models.IssueRequest) { r.Document = storage.Document{} }},
		{"not a pdf", func(r *models.IssueRequest) { r.Document.Data = []byte("plain text, not a document") }},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.expectIssuer()
			s.store.EXPECT().Pin(gomock.Any(), gomock.Any()).Times(0)
			req := validRequest()
			tt.mutate(&req)

			_, err := s.coord.Issue(s.ctx, s.session, req)

			s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput), "got %v", err)
		})
	}
}

func (s *IssuanceSuite) TestOversizedDocument() {
	coord := New(s.directory, s.store, WithDocumentPolicy(storage.DocumentPolicy{
		MaxSizeBytes: 16,
		AllowedTypes: []string{storage.TypePDF},
	}))
	s.expectIssuer()

	_, err := coord.Issue(s.ctx, s.session, validRequest())

	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	s.Contains(err.Error(), "maximum size")
}

func (s *IssuanceSuite) TestUploadFailure() {
	s.expectIssuer()
	s.store.EXPECT().Pin(gomock.Any(), gomock.Any()).Return(storage.Pointer(""), errors.New("gateway unreachable"))
	s.session.EXPECT().Issue(gomock.Any(), gomock.Any()).Times(0)
	s.expectAudit(audit.EventIssueFailed)

	_, err := s.coord.Issue(s.ctx, s.session, validRequest())

	s.True(dErrors.HasCode(err, dErrors.CodeUploadFailed))
}

func (s *IssuanceSuite) TestSubmitRejected() {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"ledger reason is kept verbatim", ledger.NewError(ledger.ErrorUnauthorized, "safeMint", "caller is not an issuer", nil), "caller is not an issuer"},
		{"no reason falls back", errors.New("connection reset"), "issue failed"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.expectIssuer()
			s.expectPinned()
			s.session.EXPECT().Issue(gomock.Any(), gomock.Any()).Return(nil, tt.err)
			s.expectAudit(audit.EventIssueFailed)

			_, err := s.coord.Issue(s.ctx, s.session, validRequest())

			s.True(dErrors.HasCode(err, dErrors.CodeWriteRejected))
			s.Equal(tt.message, err.Error())
		})
	}
}

func (s *IssuanceSuite) TestRevertedReceipt() {
	s.expectIssuer()
	s.expectPinned()
	s.expectSubmitted()
	s.handle.EXPECT().Wait(gomock.Any()).Return(&ledger.Receipt{TxHash: "0xabc", Reverted: true}, nil)
	s.expectAudit(audit.EventIssueFailed)

	_, err := s.coord.Issue(s.ctx, s.session, validRequest())

	s.True(dErrors.HasCode(err, dErrors.CodeWriteRejected))
	s.Equal("issue failed", err.Error())
}

func (s *IssuanceSuite) TestReceiptWithoutEvent() {
	s.expectIssuer()
	s.expectPinned()
	s.expectSubmitted()
	s.handle.EXPECT().Wait(gomock.Any()).Return(&ledger.Receipt{TxHash: "0xabc"}, nil)
	s.expectAudit(audit.EventIssueFailed)

	_, err := s.coord.Issue(s.ctx, s.session, validRequest())

	s.True(dErrors.HasCode(err, dErrors.CodeWriteRejected))
	s.Equal("issuance event missing from receipt", err.Error())
}

func (s *IssuanceSuite) TestConfirmationTimeout() {
	coord := New(s.directory, s.store, WithAuditor(s.auditor), WithConfirmationTimeout(10*time.Millisecond))
	s.expectIssuer()
	s.expectPinned()
	s.expectSubmitted()
	s.handle.EXPECT().Wait(gomock.Any()).DoAndReturn(func(ctx context.Context) (*ledger.Receipt, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	s.expectAudit(audit.EventConfirmationTimedOut)

	_, err := coord.Issue(s.ctx, s.session, validRequest())

	s.True(dErrors.HasCode(err, dErrors.CodeConfirmationTimedOut))
	s.ErrorIs(err, context.DeadlineExceeded)
}

func (s *IssuanceSuite) TestAuditFailureDoesNotFailIssue() {
	s.expectIssuer()
	s.expectPinned()
	s.expectSubmitted()
	s.handle.EXPECT().Wait(gomock.Any()).Return(&ledger.Receipt{
		TxHash: "0xabc",
		Events: []ledger.IssuanceEvent{{Issuer: issuerA, ID: "7", Student: studentS}},
	}, nil)
	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("audit store down"))

	_, err := s.coord.Issue(s.ctx, s.session, validRequest())

	s.NoError(err)
}

// TestAgainstMemoryLedger runs issuance end to end on the in-process ledger.
func TestAgainstMemoryLedger(t *testing.T) {
	ctx := context.Background()
	l := memory.New()
	l.RegisterIssuer(issuerA, "State University")
	store := storage.NewMemoryStore("")
	auditStore := audit.NewInMemoryStore()
	coord := New(l, store, WithAuditor(publisher.NewPublisher(auditStore)))

	session, err := l.Session(issuerA)
	require.NoError(t, err)
	result, err := coord.Issue(ctx, session, validRequest())
	require.NoError(t, err)
	assert.Equal(t, id.CredentialID("1"), result.CredentialID)
	assert.True(t, strings.HasPrefix(result.DocumentPointer.String(), storage.DefaultScheme+"://"))
	assert.Equal(t, 1, store.Len())

	title, err := l.TitleOf(ctx, result.CredentialID)
	require.NoError(t, err)
	assert.Equal(t, "BSc Computer Science", title)
	pointer, err := l.DocumentPointerOf(ctx, result.CredentialID)
	require.NoError(t, err)
	assert.Equal(t, result.DocumentPointer.String(), pointer)

	events, err := auditStore.ListByActor(ctx, issuerA)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventCredentialIssued), events[0].Action)
	assert.Equal(t, "1", events[0].Subject)

	outsiderSession, err := l.Session(outsider)
	require.NoError(t, err)
	_, err = coord.Issue(ctx, outsiderSession, validRequest())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotAuthorized))
}
