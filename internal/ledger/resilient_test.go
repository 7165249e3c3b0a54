package ledger

//go:generate mockgen -source=ledger.go -destination=mocks/mocks.go -package=mocks Reader,OwnedIDLister,Writer,WriteHandle,Session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "credledger/pkg/domain"
	"credledger/pkg/platform/circuit"
)

// stubReader implements Reader with overridable per-method behavior.
// Unset methods fail with ErrorInternal so tests notice unexpected calls.
type stubReader struct {
	countFn   func(ctx context.Context, owner id.Address) (uint64, error)
	ownerOfFn func(ctx context.Context, credentialID id.CredentialID) (id.Address, error)
	calls     atomic.Int32
}

func (s *stubReader) Count(ctx context.Context, owner id.Address) (uint64, error) {
	s.calls.Add(1)
	if s.countFn == nil {
		return 0, NewError(ErrorInternal, "balanceOf", "unexpected call", nil)
	}
	return s.countFn(ctx, owner)
}

func (s *stubReader) IDAt(context.Context, id.Address, uint64) (id.CredentialID, error) {
	return "", NewError(ErrorInternal, "tokenOfOwnerByIndex", "unexpected call", nil)
}

func (s *stubReader) DocumentPointerOf(context.Context, id.CredentialID) (string, error) {
	return "", NewError(ErrorInternal, "tokenURI", "unexpected call", nil)
}

func (s *stubReader) IssuerOf(context.Context, id.CredentialID) (id.Address, error) {
	return "", NewError(ErrorInternal, "credentialIssuer", "unexpected call", nil)
}

func (s *stubReader) TitleOf(context.Context, id.CredentialID) (string, error) {
	return "", NewError(ErrorInternal, "certificateTitle", "unexpected call", nil)
}

func (s *stubReader) OwnerOf(ctx context.Context, credentialID id.CredentialID) (id.Address, error) {
	s.calls.Add(1)
	if s.ownerOfFn == nil {
		return "", NewError(ErrorInternal, "ownerOf", "unexpected call", nil)
	}
	return s.ownerOfFn(ctx, credentialID)
}

func (s *stubReader) DisplayNameOf(context.Context, id.Address) (string, error) {
	return "", nil
}

func (s *stubReader) IsIssuer(context.Context, id.Address) (bool, error) {
	return false, nil
}

func (s *stubReader) IssuanceEvents(context.Context) ([]IssuanceEvent, error) {
	return nil, nil
}

type listingReader struct {
	stubReader
	ids []id.CredentialID
}

func (l *listingReader) OwnedIDs(context.Context, id.Address) ([]id.CredentialID, error) {
	return l.ids, nil
}

type ResilientSuite struct {
	suite.Suite
	ctx   context.Context
	owner id.Address
}

func TestResilientSuite(t *testing.T) {
	suite.Run(t, new(ResilientSuite))
}

func (s *ResilientSuite) SetupTest() {
	s.ctx = context.Background()
	s.owner = id.Address("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
}

func fastBackoff(retries int) ResilientOption {
	return WithBackoff(BackoffConfig{
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		MaxRetries:   retries,
	})
}

func (s *ResilientSuite) TestRetriesTransientUntilSuccess() {
	stub := &stubReader{}
	stub.countFn = func(context.Context, id.Address) (uint64, error) {
		if stub.calls.Load() < 3 {
			return 0, NewError(ErrorUnavailable, "balanceOf", "connection refused", nil)
		}
		return 4, nil
	}
	r := NewResilient(stub, fastBackoff(3))

	n, err := r.Count(s.ctx, s.owner)

	s.Require().NoError(err)
	s.Equal(uint64(4), n)
	s.Equal(int32(3), stub.calls.Load())
}

func (s *ResilientSuite) TestNotFoundIsNeverRetried() {
	stub := &stubReader{}
	stub.ownerOfFn = func(context.Context, id.CredentialID) (id.Address, error) {
		return "", NewError(ErrorNotFound, "ownerOf", "invalid token id", nil)
	}
	r := NewResilient(stub, fastBackoff(5))

	_, err := r.OwnerOf(s.ctx, "7")

	s.Require().Error(err)
	s.Equal(OutcomeNotFound, Classify(err))
	s.Equal(int32(1), stub.calls.Load())
}

func (s *ResilientSuite) TestGivesUpAfterMaxRetries() {
	stub := &stubReader{}
	stub.countFn = func(context.Context, id.Address) (uint64, error) {
		return 0, NewError(ErrorTimeout, "balanceOf", "deadline", nil)
	}
	r := NewResilient(stub, fastBackoff(2))

	_, err := r.Count(s.ctx, s.owner)

	s.Require().Error(err)
	s.Equal(ErrorTimeout, CategoryOf(err))
	s.Equal(int32(3), stub.calls.Load())
}

func (s *ResilientSuite) TestOpenBreakerStopsRetries() {
	stub := &stubReader{}
	stub.countFn = func(context.Context, id.Address) (uint64, error) {
		return 0, NewError(ErrorUnavailable, "balanceOf", "down", nil)
	}
	breaker := circuit.New("ledger", circuit.WithFailureThreshold(1), circuit.WithCooldown(time.Hour))
	r := NewResilient(stub, fastBackoff(5), WithBreaker(breaker))

	_, err := r.Count(s.ctx, s.owner)

	s.Require().Error(err)
	s.True(breaker.IsOpen())
	s.Equal(int32(1), stub.calls.Load())
}

func (s *ResilientSuite) TestNotFoundCountsAsHealthy() {
	stub := &stubReader{}
	stub.ownerOfFn = func(context.Context, id.CredentialID) (id.Address, error) {
		return "", NewError(ErrorNotFound, "ownerOf", "burned", nil)
	}
	breaker := circuit.New("ledger", circuit.WithFailureThreshold(1))
	r := NewResilient(stub, WithBreaker(breaker))

	for range 3 {
		_, _ = r.OwnerOf(s.ctx, "7")
	}

	s.Equal(circuit.StateClosed, breaker.State())
}

func (s *ResilientSuite) TestCancelledContextAbortsBackoff() {
	stub := &stubReader{}
	ctx, cancel := context.WithCancel(s.ctx)
	stub.countFn = func(context.Context, id.Address) (uint64, error) {
		cancel()
		return 0, NewError(ErrorUnavailable, "balanceOf", "down", nil)
	}
	r := NewResilient(stub, WithBackoff(BackoffConfig{InitialDelay: time.Hour, MaxRetries: 3}))

	_, err := r.Count(ctx, s.owner)

	s.ErrorIs(err, context.Canceled)
	s.Equal(int32(1), stub.calls.Load())
}

func (s *ResilientSuite) TestOwnedIDs() {
	s.Run("not supported by plain readers", func() {
		r := NewResilient(&stubReader{})
		_, err := r.OwnedIDs(s.ctx, s.owner)
		s.True(errors.Is(err, ErrNotSupported))
	})

	s.Run("forwards to listing readers", func() {
		r := NewResilient(&listingReader{ids: []id.CredentialID{"1", "2"}})
		ids, err := r.OwnedIDs(s.ctx, s.owner)
		s.Require().NoError(err)
		s.Equal([]id.CredentialID{"1", "2"}, ids)
	})
}

func (s *ResilientSuite) TestRateLimitedReadsStillSucceed() {
	stub := &stubReader{}
	stub.countFn = func(context.Context, id.Address) (uint64, error) { return 1, nil }
	r := NewResilient(stub, WithRateLimit(1000, 5))

	for range 5 {
		n, err := r.Count(s.ctx, s.owner)
		s.Require().NoError(err)
		s.Equal(uint64(1), n)
	}
}
