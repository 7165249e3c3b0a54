package commands

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"credledger/internal/credential/aggregator"
	"credledger/internal/credential/handler"
	"credledger/internal/credential/issuance"
	"credledger/internal/credential/issuerledger"
	"credledger/internal/credential/revocation"
	"credledger/internal/credential/verification"
	jwttoken "credledger/internal/jwt_token"
	"credledger/internal/storage"
	id "credledger/pkg/domain"
	"credledger/pkg/platform/audit"
	"credledger/pkg/platform/audit/publisher"
	"credledger/pkg/platform/middleware/auth"
	"credledger/pkg/testutil"
)

var (
	issuerA  = testutil.TestAddresses.IssuerA
	studentS = testutil.TestAddresses.Student
)

type CommandsSuite struct {
	suite.Suite
	ctx    context.Context
	server *httptest.Server
	tokens *jwttoken.JWTService
	doc    string
}

func TestCommandsSuite(t *testing.T) {
	suite.Run(t, new(CommandsSuite))
}

func (s *CommandsSuite) SetupTest() {
	s.ctx = context.Background()
	chain := testutil.NewLedger()
	issued := issuerledger.New(chain)
	view := issuerledger.NewView(issued)
	auditor := publisher.NewPublisher(audit.NewInMemoryStore())

	logger := slog.New(slog.DiscardHandler)
	s.tokens = jwttoken.NewJWTService("credctl-test-key", "credledger", "credledger-api", time.Hour)
	r := chi.NewRouter()
	handler.New(handler.Services{
		Enumerator:   aggregator.New(chain),
		IssuedLister: issued,
		IssuedView:   view,
		Verifier:     verification.New(chain),
		Issuer:       issuance.New(chain, storage.NewMemoryStore(""), issuance.WithAuditor(auditor)),
		Revoker:      revocation.New(chain, view, revocation.WithAuditor(auditor)),
		Sessions:     chain,
		AuditTrail:   auditor,
	}, logger, handler.WithGateway("https://gw.example/ipfs")).
		Register(r, auth.RequireSession(jwttoken.NewJWTServiceAdapter(s.tokens), logger))
	s.server = httptest.NewServer(r)

	s.doc = filepath.Join(s.T().TempDir(), "diploma.pdf")
	s.Require().NoError(os.WriteFile(s.doc, testutil.SamplePDF, 0o600))
}

func (s *CommandsSuite) TearDownTest() {
	s.server.Close()
}

func (s *CommandsSuite) client(caller id.Address) *Client {
	token := ""
	if caller != "" {
		var err error
		token, _, err = s.tokens.GenerateSessionToken(s.ctx, caller, true)
		s.Require().NoError(err)
	}
	return NewClient(s.server.URL+"/", token, nil)
}

func (s *CommandsSuite) TestIssueListVerifyRevoke() {
	var out bytes.Buffer
	s.Require().NoError(RunIssue(s.ctx, s.client(issuerA), studentS.String(), "BSc CS", s.doc, "text", &out))
	s.Contains(out.String(), "Issued credential 1")

	out.Reset()
	s.Require().NoError(RunCredentials(s.ctx, s.client(""), studentS.String(), "text", &out))
	s.Contains(out.String(), "BSc CS")
	s.Contains(out.String(), testutil.IssuerAName)

	out.Reset()
	s.Require().NoError(RunIssued(s.ctx, s.client(""), issuerA.String(), "", FormatJSON, &out))
	s.Contains(out.String(), `"title": "BSc CS"`)

	out.Reset()
	s.Require().NoError(RunVerify(s.ctx, s.client(""), "1", studentS.String(), issuerA.String(), "text", &out))
	s.Contains(out.String(), "VALID")

	out.Reset()
	s.Require().NoError(RunRevoke(s.ctx, s.client(issuerA), "1", "text", &out))
	s.Contains(out.String(), "Revoked credential 1")

	out.Reset()
	s.Require().NoError(RunVerify(s.ctx, s.client(""), "1", "", "", "text", &out))
	s.Contains(out.String(), "INVALID_OR_REVOKED")
	s.Contains(out.String(), "not_found")

	out.Reset()
	s.Require().NoError(RunHistory(s.ctx, s.client(issuerA), "1", "text", &out))
	s.Contains(out.String(), "credential_issued")
	s.Contains(out.String(), "credential_revoked")
}

func (s *CommandsSuite) TestHistoryNeedsSession() {
	err := RunHistory(s.ctx, s.client(""), "1", "text", &bytes.Buffer{})

	var apiErr *APIError
	s.Require().True(errors.As(err, &apiErr))
	s.Equal(http.StatusUnauthorized, apiErr.Status)
}

func (s *CommandsSuite) TestAPIErrorsAreDecoded() {
	err := RunRevoke(s.ctx, s.client(""), "1", "text", &bytes.Buffer{})

	var apiErr *APIError
	s.Require().True(errors.As(err, &apiErr))
	s.Equal(http.StatusUnauthorized, apiErr.Status)
	s.Equal("not_connected", apiErr.Code)
}

func (s *CommandsSuite) TestIssueMissingFile() {
	err := RunIssue(s.ctx, s.client(issuerA), studentS.String(), "BSc", filepath.Join(s.T().TempDir(), "missing.pdf"), "text", &bytes.Buffer{})

	s.ErrorContains(err, "open document")
}
