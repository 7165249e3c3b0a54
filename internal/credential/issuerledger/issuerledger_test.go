package issuerledger

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"

	"credledger/internal/credential/models"
	"credledger/internal/credential/query"
	"credledger/internal/ledger"
	"credledger/internal/ledger/memory"
	id "credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
)

const (
	issuerA  = id.Address("0xAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAa")
	issuerB  = id.Address("0xBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBb")
	studentS = id.Address("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	studentT = id.Address("0x7777777777777777777777777777777777777777")
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type IssuerLedgerSuite struct {
	suite.Suite
	ctx    context.Context
	ledger *memory.Ledger
}

func TestIssuerLedgerSuite(t *testing.T) {
	suite.Run(t, new(IssuerLedgerSuite))
}

func (s *IssuerLedgerSuite) SetupTest() {
	s.ctx = context.Background()
	s.ledger = memory.New()
	s.ledger.RegisterIssuer(issuerA, "State University")
	s.ledger.RegisterIssuer(issuerB, "Tech Institute")
}

func (s *IssuerLedgerSuite) issue(issuer, student id.Address, title string) id.CredentialID {
	session, err := s.ledger.Session(issuer)
	s.Require().NoError(err)
	h, err := session.Issue(s.ctx, ledger.MintRequest{Student: student, DocumentPointer: "ipfs://" + title, Title: title})
	s.Require().NoError(err)
	receipt, err := h.Wait(s.ctx)
	s.Require().NoError(err)
	return receipt.Events[0].ID
}

func (s *IssuerLedgerSuite) revoke(issuer id.Address, credentialID id.CredentialID) {
	session, err := s.ledger.Session(issuer)
	s.Require().NoError(err)
	h, err := session.Revoke(s.ctx, credentialID)
	s.Require().NoError(err)
	_, err = h.Wait(s.ctx)
	s.Require().NoError(err)
}

func rowIDs(rows []models.Row) []id.CredentialID {
	out := make([]id.CredentialID, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}

func (s *IssuerLedgerSuite) TestListsOnlyIssuersLiveCredentialsNewestFirst() {
	first := s.issue(issuerA, studentS, "BSc")
	s.issue(issuerB, studentS, "Other issuer")
	second := s.issue(issuerA, studentT, "MSc")
	revoked := s.issue(issuerA, studentS, "PhD")
	s.revoke(issuerA, revoked)

	rows, err := New(s.ledger).ListIssued(s.ctx, issuerA, nil)

	s.Require().NoError(err)
	s.Equal([]id.CredentialID{second, first}, rowIDs(rows))
	s.Equal(models.Row{ID: second, Student: studentT, Title: "MSc"}, rows[0])
}

func (s *IssuerLedgerSuite) TestIssuerMatchIsCaseInsensitive() {
	s.issue(issuerA, studentS, "BSc")

	rows, err := New(s.ledger).ListIssued(s.ctx, id.Address(strings.ToLower(issuerA.String())), nil)

	s.Require().NoError(err)
	s.Len(rows, 1)
}

func (s *IssuerLedgerSuite) TestStudentFilter() {
	forS := s.issue(issuerA, studentS, "BSc")
	s.issue(issuerA, studentT, "MSc")
	filter := id.Address(strings.ToUpper("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"))
	filter = "0x" + filter[2:]

	rows, err := New(s.ledger).ListIssued(s.ctx, issuerA, &filter)

	s.Require().NoError(err)
	s.Equal([]id.CredentialID{forS}, rowIDs(rows))
}

func (s *IssuerLedgerSuite) TestUnreadableMetadataIsTreatedAsRevoked() {
	kept := s.issue(issuerA, studentS, "BSc")
	flaky := s.issue(issuerA, studentT, "MSc")
	s.ledger.SetReadFault(func(op, key string) error {
		if op == "ownerOf" && key == flaky.String() {
			return ledger.NewError(ledger.ErrorUnavailable, op, "rpc down", nil)
		}
		return nil
	})

	rows, err := New(s.ledger).ListIssued(s.ctx, issuerA, nil)

	s.Require().NoError(err)
	s.Equal([]id.CredentialID{kept}, rowIDs(rows))
}

func (s *IssuerLedgerSuite) TestEventLogFailureYieldsEmptyList() {
	s.issue(issuerA, studentS, "BSc")
	s.ledger.SetReadFault(func(op, _ string) error {
		if op == "queryFilter" {
			return ledger.NewError(ledger.ErrorUnavailable, op, "rpc down", nil)
		}
		return nil
	})

	rows, err := New(s.ledger).ListIssued(s.ctx, issuerA, nil)

	s.Require().NoError(err)
	s.NotNil(rows)
	s.Empty(rows)
}

func (s *IssuerLedgerSuite) TestRejectsMalformedIssuer() {
	_, err := New(s.ledger).ListIssued(s.ctx, "0x12", nil)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *IssuerLedgerSuite) TestViewRefreshReusesFilterAndDropsRevoked() {
	forS := s.issue(issuerA, studentS, "BSc")
	second := s.issue(issuerA, studentS, "MSc")
	s.issue(issuerA, studentT, "Other student")
	view := NewView(New(s.ledger))
	filter := studentS

	rows, err := view.Load(s.ctx, issuerA, issuerA, &filter)
	s.Require().NoError(err)
	s.Equal([]id.CredentialID{second, forS}, rowIDs(rows))

	s.revoke(issuerA, second)
	s.Require().NoError(view.Refresh(s.ctx, issuerA))

	current, usedFilter, ok := view.Rows(issuerA, issuerA)
	s.Require().True(ok)
	s.Equal([]id.CredentialID{forS}, rowIDs(current))
	s.Require().NotNil(usedFilter)
	s.True(usedFilter.Equal(studentS))
}

func (s *IssuerLedgerSuite) TestViewRefreshCoversEveryViewerOfIssuer() {
	kept := s.issue(issuerA, studentS, "BSc")
	dropped := s.issue(issuerA, studentT, "MSc")
	view := NewView(New(s.ledger))
	filter := studentT

	_, err := view.Load(s.ctx, issuerA, issuerA, nil)
	s.Require().NoError(err)
	_, err = view.Load(s.ctx, studentT, issuerA, &filter)
	s.Require().NoError(err)

	s.revoke(issuerA, dropped)
	s.Require().NoError(view.Refresh(s.ctx, issuerA))

	own, _, ok := view.Rows(issuerA, issuerA)
	s.Require().True(ok)
	s.Equal([]id.CredentialID{kept}, rowIDs(own))
	theirs, _, ok := view.Rows(studentT, issuerA)
	s.Require().True(ok)
	s.Empty(theirs)
}

func (s *IssuerLedgerSuite) TestViewRowsBeforeFirstLoad() {
	view := NewView(New(s.ledger))
	_, _, ok := view.Rows(issuerA, issuerA)
	s.False(ok)
}

func (s *IssuerLedgerSuite) TestViewRowsAreScopedToViewer() {
	s.issue(issuerA, studentS, "BSc")
	view := NewView(New(s.ledger))

	_, err := view.Load(s.ctx, issuerA, issuerA, nil)
	s.Require().NoError(err)

	_, _, ok := view.Rows(issuerB, issuerA)
	s.False(ok)
}

func (s *IssuerLedgerSuite) TestViewRefreshSkipsIssuerNobodyLoaded() {
	lister := &countingLister{}
	view := NewView(lister)

	s.Require().NoError(view.Refresh(s.ctx, issuerB))
	s.Zero(lister.calls.Load())
}

// blockingLister holds the first call until released, so a second call can overtake it.
type blockingLister struct {
	started chan struct{}
	calls   int
}

func (b *blockingLister) ListIssued(ctx context.Context, _ id.Address, _ *id.Address) ([]models.Row, error) {
	b.calls++
	if b.calls == 1 {
		close(b.started)
		<-ctx.Done()
		return []models.Row{{ID: "stale"}}, nil
	}
	return []models.Row{{ID: "fresh"}}, nil
}

func (s *IssuerLedgerSuite) TestViewLastLoadWins() {
	lister := &blockingLister{started: make(chan struct{})}
	view := NewView(lister)
	staleErr := make(chan error, 1)

	go func() {
		_, err := view.Load(s.ctx, issuerA, issuerA, nil)
		staleErr <- err
	}()
	<-lister.started

	rows, err := view.Load(s.ctx, issuerA, issuerA, nil)
	s.Require().NoError(err)
	s.Equal([]id.CredentialID{"fresh"}, rowIDs(rows))
	s.ErrorIs(<-staleErr, query.ErrSuperseded)

	current, _, _ := view.Rows(issuerA, issuerA)
	s.Equal([]id.CredentialID{"fresh"}, rowIDs(current))
}

// gatedLister holds every call until gate closes, or only the first when firstOnly is set.
type gatedLister struct {
	gate      chan struct{}
	entered   chan struct{}
	firstOnly bool
	calls     atomic.Int32
}

func newGatedLister(firstOnly bool) *gatedLister {
	return &gatedLister{gate: make(chan struct{}), entered: make(chan struct{}, 4), firstOnly: firstOnly}
}

func (g *gatedLister) ListIssued(ctx context.Context, _ id.Address, _ *id.Address) ([]models.Row, error) {
	n := g.calls.Add(1)
	if g.firstOnly && n > 1 {
		return []models.Row{{ID: "fresh"}}, nil
	}
	g.entered <- struct{}{}
	select {
	case <-g.gate:
		return []models.Row{{ID: "held"}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *IssuerLedgerSuite) TestViewersOfSameIssuerDoNotSupersedeEachOther() {
	lister := newGatedLister(false)
	view := NewView(lister)
	errs := make(chan error, 2)

	for _, viewer := range []id.Address{studentS, studentT} {
		go func() {
			_, err := view.Load(s.ctx, viewer, issuerA, nil)
			errs <- err
		}()
	}
	<-lister.entered
	<-lister.entered
	close(lister.gate)

	s.NoError(<-errs)
	s.NoError(<-errs)
}

func (s *IssuerLedgerSuite) TestViewRefreshDoesNotFailInFlightLoad() {
	lister := newGatedLister(true)
	view := NewView(lister)
	loaded := make(chan error, 1)

	go func() {
		_, err := view.Load(s.ctx, issuerA, issuerA, nil)
		loaded <- err
	}()
	<-lister.entered

	s.Require().NoError(view.Refresh(s.ctx, issuerA))
	close(lister.gate)

	s.NoError(<-loaded)
	current, _, ok := view.Rows(issuerA, issuerA)
	s.Require().True(ok)
	s.Equal([]id.CredentialID{"fresh"}, rowIDs(current))
}

type countingLister struct {
	calls atomic.Int32
}

func (c *countingLister) ListIssued(context.Context, id.Address, *id.Address) ([]models.Row, error) {
	c.calls.Add(1)
	return nil, nil
}
