// Package revocation coordinates revoking a credential under the caller's
// ledger session. Revocation is permanent: a revoked id never becomes
// readable again and nothing here restores one.
package revocation

import (
	"context"
	"log/slog"
	"time"

	"credledger/internal/credential/metrics"
	"credledger/internal/credential/models"
	"credledger/internal/ledger"
	"credledger/internal/platform/tracer"
	id "credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
	"credledger/pkg/platform/audit"
	"credledger/pkg/requestcontext"
)

const operation = "revoke"

// DefaultConfirmationTimeout bounds the wait for a submitted revoke.
const DefaultConfirmationTimeout = 60 * time.Second

// IssuerResolver names the issuer of a live credential.
type IssuerResolver interface {
	IssuerOf(ctx context.Context, credentialID id.CredentialID) (id.Address, error)
}

// Refresher reloads an issuer's issued-credential view after a revoke.
type Refresher interface {
	Refresh(ctx context.Context, issuer id.Address) error
}

// AuditPublisher emits audit events for credential lifecycle actions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Option configures the Coordinator.
type Option func(*Coordinator)

// Coordinator revokes credentials.
type Coordinator struct {
	issuers        IssuerResolver
	refresher      Refresher
	confirmTimeout time.Duration
	auditor        AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         tracer.Tracer
}

// New creates a Coordinator. refresher may be nil when no view needs
// refreshing; issuers may be nil, in which case the caller's view is refreshed.
func New(issuers IssuerResolver, refresher Refresher, opts ...Option) *Coordinator {
	c := &Coordinator{
		issuers:        issuers,
		refresher:      refresher,
		confirmTimeout: DefaultConfirmationTimeout,
		logger:         slog.New(slog.DiscardHandler),
		tracer:         tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithConfirmationTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.confirmTimeout = d
		}
	}
}

func WithAuditor(auditor AuditPublisher) Option {
	return func(c *Coordinator) {
		c.auditor = auditor
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(c *Coordinator) {
		c.tracer = t
	}
}

// Revoke burns credentialID under session and waits for confirmation.
//
// Whether the caller may revoke is the ledger's decision (the original issuer
// or an admin); a refusal surfaces as write_rejected with the ledger's reason.
// Once confirmed, the issued views of the credential's issuer are refreshed,
// so an admin revoke reaches the issuer's listing too. A failed refresh is
// logged and does not fail the revoke.
func (c *Coordinator) Revoke(ctx context.Context, session ledger.Session, credentialID id.CredentialID) (*models.RevokeResult, error) {
	if session == nil {
		return nil, dErrors.New(dErrors.CodeNotConnected, "no ledger session")
	}
	credentialID, err := id.ParseCredentialID(credentialID.String())
	if err != nil {
		return nil, err
	}
	caller := session.Address()

	ctx, span := c.tracer.Start(ctx, tracer.SpanRevoke,
		tracer.String(tracer.AttrCredentialID, credentialID.String()),
		tracer.String(tracer.AttrIssuer, caller.Short()),
	)
	start := time.Now()
	issuer := c.issuerOf(ctx, credentialID, caller)

	handle, err := session.Revoke(ctx, credentialID)
	if err != nil {
		reason := ledger.RevertReason(err)
		if reason == "" {
			reason = "revoke failed"
		}
		return nil, c.fail(ctx, span, caller, credentialID, "", dErrors.Stage(err, dErrors.CodeWriteRejected, reason))
	}
	txHash := handle.TxHash()
	span.AddEvent(tracer.EventSubmitted, tracer.String(tracer.AttrTxHash, txHash))

	waitCtx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	receipt, err := handle.Wait(waitCtx)
	cancel()
	if err != nil {
		return nil, c.fail(ctx, span, caller, credentialID, txHash,
			dErrors.Stage(err, dErrors.CodeConfirmationTimedOut, "revocation not confirmed in time"))
	}
	if receipt.Reverted {
		reason := receipt.Reason
		if reason == "" {
			reason = "revoke failed"
		}
		return nil, c.fail(ctx, span, caller, credentialID, txHash, dErrors.New(dErrors.CodeWriteRejected, reason))
	}
	span.AddEvent(tracer.EventConfirmed)

	result := &models.RevokeResult{
		CredentialID: credentialID,
		RevokedBy:    caller,
		Issuer:       issuer,
		TxHash:       receipt.TxHash,
	}
	c.metrics.RecordWrite(operation, metrics.OutcomeConfirmed)
	c.metrics.ObserveWrite(operation, time.Since(start).Seconds())
	c.logger.InfoContext(ctx, "credential revoked",
		"credential_id", credentialID,
		"revoked_by", caller,
		"issuer", issuer,
		"tx_hash", result.TxHash,
		"request_id", requestcontext.RequestID(ctx),
	)
	c.emitAudit(ctx, audit.Event{
		Actor:    caller,
		Subject:  credentialID.String(),
		Action:   string(audit.EventCredentialRevoked),
		Decision: "revoked",
		TxHash:   result.TxHash,
	})
	span.End(nil)

	c.refresh(ctx, issuer)
	return result, nil
}

// issuerOf resolves the credential's issuer before it is burned; afterwards
// the ledger no longer knows it. An unresolved issuer falls back to caller,
// and the ledger still decides whether the revoke is allowed.
func (c *Coordinator) issuerOf(ctx context.Context, credentialID id.CredentialID, caller id.Address) id.Address {
	if c.issuers == nil {
		return caller
	}
	issuer, err := c.issuers.IssuerOf(ctx, credentialID)
	if err != nil {
		c.logger.DebugContext(ctx, "credential issuer not resolved before revoke",
			"credential_id", credentialID,
			"outcome", ledger.Classify(err),
			"error", err,
		)
		return caller
	}
	return issuer
}

func (c *Coordinator) refresh(ctx context.Context, issuer id.Address) {
	if c.refresher == nil {
		return
	}
	if err := c.refresher.Refresh(ctx, issuer); err != nil {
		c.metrics.IncrementRefreshFailures()
		c.logger.WarnContext(ctx, "issued view refresh failed after revoke",
			"issuer", issuer,
			"error", err,
		)
	}
}

func (c *Coordinator) fail(ctx context.Context, span tracer.Span, caller id.Address, credentialID id.CredentialID, txHash string, err error) error {
	code := dErrors.CodeOf(err)
	span.SetAttributes(tracer.String(tracer.AttrStage, string(code)))
	span.End(err)
	c.metrics.RecordWrite(operation, string(code))

	action := audit.EventRevokeFailed
	if code == dErrors.CodeConfirmationTimedOut {
		action = audit.EventConfirmationTimedOut
	}
	c.logger.WarnContext(ctx, "credential revocation failed",
		"credential_id", credentialID,
		"caller", caller,
		"stage", code,
		"tx_hash", txHash,
		"error", err,
	)
	c.emitAudit(ctx, audit.Event{
		Actor:    caller,
		Subject:  credentialID.String(),
		Action:   string(action),
		Decision: "failed",
		Reason:   err.Error(),
		TxHash:   txHash,
	})
	return err
}

func (c *Coordinator) emitAudit(ctx context.Context, event audit.Event) {
	if c.auditor == nil {
		return
	}
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	if err := c.auditor.Emit(ctx, event); err != nil {
		c.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}
