// Package verification answers "is this credential currently valid, and does
// it belong to this owner and come from this issuer?"
package verification

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"credledger/internal/credential/metrics"
	"credledger/internal/credential/models"
	"credledger/internal/ledger"
	"credledger/internal/platform/tracer"
	id "credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
)

const operation = "verify"

// Engine verifies credentials against the ledger.
type Engine struct {
	reader  ledger.Reader
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  tracer.Tracer
}

// Option configures the Engine.
type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(e *Engine) {
		e.tracer = t
	}
}

func New(reader ledger.Reader, opts ...Option) *Engine {
	e := &Engine{
		reader: reader,
		logger: slog.New(slog.DiscardHandler),
		tracer: tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Verify reads owner, issuer and title for credentialID and compares them
// with the optional expectations. A nil expectation always matches.
//
// Any failed read yields VerdictInvalidOrRevoked: a revoked id and an
// unreachable ledger are reported alike, with Cause telling them apart for
// diagnostics. The only error returned is for an empty id.
func (e *Engine) Verify(ctx context.Context, credentialID id.CredentialID, expectedOwner, expectedIssuer *id.Address) (*models.VerifyResult, error) {
	if credentialID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "credential ID cannot be empty")
	}

	ctx, span := e.tracer.Start(ctx, tracer.SpanVerify, tracer.String(tracer.AttrCredentialID, credentialID.String()))
	start := time.Now()

	result := e.verify(ctx, credentialID, expectedOwner, expectedIssuer)

	span.SetAttributes(tracer.String(tracer.AttrVerdict, string(result.Verdict)))
	span.End(nil)
	e.metrics.ObserveRead(operation, time.Since(start).Seconds())
	e.metrics.RecordVerdict(string(result.Verdict))

	return result, nil
}

func (e *Engine) verify(ctx context.Context, credentialID id.CredentialID, expectedOwner, expectedIssuer *id.Address) *models.VerifyResult {
	var owner, issuer id.Address
	var title string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		owner, err = e.reader.OwnerOf(gctx, credentialID)
		return err
	})
	g.Go(func() (err error) {
		issuer, err = e.reader.IssuerOf(gctx, credentialID)
		return err
	})
	g.Go(func() (err error) {
		title, err = e.reader.TitleOf(gctx, credentialID)
		return err
	})
	if err := g.Wait(); err != nil {
		cause := ledger.Classify(err)
		e.logger.InfoContext(ctx, "credential failed verification",
			"credential_id", credentialID,
			"outcome", cause,
			"error", err,
		)
		return &models.VerifyResult{
			Verdict:      models.VerdictInvalidOrRevoked,
			CredentialID: credentialID,
			Cause:        cause,
		}
	}

	result := &models.VerifyResult{
		CredentialID: credentialID,
		Owner:        owner,
		Issuer:       issuer,
		Title:        title,
		OwnerMatch:   owner.Matches(expectedOwner),
		IssuerMatch:  issuer.Matches(expectedIssuer),
		Cause:        ledger.OutcomeFound,
	}
	if result.OwnerMatch && result.IssuerMatch {
		result.Verdict = models.VerdictValid
	} else {
		result.Verdict = models.VerdictMismatch
	}

	// Display name is presentation only.
	if name, err := e.reader.DisplayNameOf(ctx, issuer); err == nil {
		result.IssuerDisplayName = name
	} else {
		e.logger.DebugContext(ctx, "issuer display name unavailable",
			"issuer", issuer,
			"error", err,
		)
	}
	return result
}
