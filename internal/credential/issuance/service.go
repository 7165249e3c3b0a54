// Package issuance coordinates issuing a credential: the document is pinned to
// content storage, the mint is submitted under the caller's ledger session, and
// the coordinator waits for confirmation before reporting the assigned id.
//
// There is no compensation. A pinned document whose mint later fails stays
// pinned; content addressing makes a retry reuse it.
package issuance

import (
	"context"
	"log/slog"
	"time"

	"credledger/internal/credential/metrics"
	"credledger/internal/credential/models"
	"credledger/internal/ledger"
	"credledger/internal/platform/tracer"
	"credledger/internal/storage"
	id "credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
	"credledger/pkg/platform/audit"
)

const operation = "issue"

// DefaultConfirmationTimeout bounds the wait for a submitted mint.
const DefaultConfirmationTimeout = 60 * time.Second

// IssuerDirectory answers whether an address holds the issuer capability.
type IssuerDirectory interface {
	IsIssuer(ctx context.Context, addr id.Address) (bool, error)
}

// ContentStore pins credential documents.
type ContentStore interface {
	Pin(ctx context.Context, doc storage.Document) (storage.Pointer, error)
}

// AuditPublisher emits audit events for credential lifecycle actions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Option configures the Coordinator.
type Option func(*Coordinator)

// Coordinator issues credentials.
type Coordinator struct {
	directory      IssuerDirectory
	store          ContentStore
	policy         storage.DocumentPolicy
	confirmTimeout time.Duration
	auditor        AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         tracer.Tracer
}

// New creates a Coordinator. directory is usually the ledger reader.
func New(directory IssuerDirectory, store ContentStore, opts ...Option) *Coordinator {
	c := &Coordinator{
		directory:      directory,
		store:          store,
		policy:         storage.DefaultDocumentPolicy(),
		confirmTimeout: DefaultConfirmationTimeout,
		logger:         slog.New(slog.DiscardHandler),
		tracer:         tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithDocumentPolicy overrides the size and type limits for uploaded documents.
func WithDocumentPolicy(p storage.DocumentPolicy) Option {
	return func(c *Coordinator) {
		c.policy = p
	}
}

// WithConfirmationTimeout bounds how long Issue waits for the ledger to confirm.
func WithConfirmationTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.confirmTimeout = d
		}
	}
}

// WithAuditor configures an audit publisher.
func WithAuditor(auditor AuditPublisher) Option {
	return func(c *Coordinator) {
		c.auditor = auditor
	}
}

// WithLogger configures a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithMetrics configures Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithTracer configures a tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(c *Coordinator) {
		c.tracer = t
	}
}

// Issue validates req, pins its document and mints a credential for the
// student under session. It returns only after the ledger confirmed the mint.
//
// Failures carry the stage that failed as their code: not_connected,
// not_authorized, invalid_input, upload_failed, write_rejected or
// confirmation_timed_out. A timed-out write may still land later.
func (c *Coordinator) Issue(ctx context.Context, session ledger.Session, req models.IssueRequest) (*models.IssueResult, error) {
	if session == nil {
		return nil, dErrors.New(dErrors.CodeNotConnected, "no ledger session")
	}
	caller := session.Address()

	ctx, span := c.tracer.Start(ctx, tracer.SpanIssue, tracer.String(tracer.AttrIssuer, caller.Short()))
	start := time.Now()
	a := &attempt{caller: caller, span: span}

	if err := c.requireIssuer(ctx, caller); err != nil {
		return nil, c.fail(ctx, a, err)
	}

	student, err := id.ParseAddress(req.Student)
	if err != nil {
		return nil, c.fail(ctx, a, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid student address"))
	}
	a.student = student
	title, err := models.ParseTitle(req.Title)
	if err != nil {
		return nil, c.fail(ctx, a, err)
	}
	doc, err := c.policy.Check(req.Document)
	if err != nil {
		return nil, c.fail(ctx, a, err)
	}

	pointer, err := c.store.Pin(ctx, doc)
	if err != nil {
		return nil, c.fail(ctx, a, dErrors.Stage(err, dErrors.CodeUploadFailed, "document upload failed"))
	}
	span.AddEvent(tracer.EventPinned)

	handle, err := session.Issue(ctx, ledger.MintRequest{
		Student:         student,
		DocumentPointer: pointer.String(),
		Title:           title,
	})
	if err != nil {
		return nil, c.fail(ctx, a, rejected(err, ledger.RevertReason(err), "issue failed"))
	}
	a.txHash = handle.TxHash()
	span.AddEvent(tracer.EventSubmitted, tracer.String(tracer.AttrTxHash, a.txHash))

	receipt, err := c.await(ctx, handle)
	if err != nil {
		return nil, c.fail(ctx, a, err)
	}
	if receipt.Reverted {
		return nil, c.fail(ctx, a, rejected(nil, receipt.Reason, "issue failed"))
	}
	event, ok := issuanceEvent(receipt, student)
	if !ok {
		return nil, c.fail(ctx, a, dErrors.New(dErrors.CodeWriteRejected, "issuance event missing from receipt"))
	}
	span.AddEvent(tracer.EventConfirmed, tracer.String(tracer.AttrCredentialID, event.ID.String()))

	result := &models.IssueResult{
		CredentialID:    event.ID,
		Issuer:          caller,
		Student:         student,
		Title:           title,
		DocumentPointer: pointer,
		TxHash:          receipt.TxHash,
	}
	c.succeed(ctx, result, time.Since(start))
	span.End(nil)
	return result, nil
}

// requireIssuer checks the issuer capability. A failed capability read is
// never treated as a grant; a transient one is reported as ledger_unavailable
// so the caller can retry instead of being told they are not an issuer.
func (c *Coordinator) requireIssuer(ctx context.Context, caller id.Address) error {
	ok, err := c.directory.IsIssuer(ctx, caller)
	if err != nil {
		if ledger.Classify(err) == ledger.OutcomeTransient {
			return dErrors.Stage(err, dErrors.CodeLedgerUnavailable, "issuer capability could not be read")
		}
		return dErrors.Stage(err, dErrors.CodeNotAuthorized, "could not confirm issuer capability")
	}
	if !ok {
		return dErrors.New(dErrors.CodeNotAuthorized, "caller is not an issuer")
	}
	return nil
}

// await waits for confirmation bounded by the confirmation timeout. Any wait
// failure leaves the write's fate unknown and is reported as a timeout.
func (c *Coordinator) await(ctx context.Context, handle ledger.WriteHandle) (*ledger.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	receipt, err := handle.Wait(waitCtx)
	if err != nil {
		return nil, dErrors.Stage(err, dErrors.CodeConfirmationTimedOut, "issuance not confirmed in time")
	}
	return receipt, nil
}

// issuanceEvent picks the event minted to student, falling back to the only event.
func issuanceEvent(receipt *ledger.Receipt, student id.Address) (ledger.IssuanceEvent, bool) {
	for _, e := range receipt.Events {
		if e.Student.Equal(student) && !e.ID.IsNil() {
			return e, true
		}
	}
	if len(receipt.Events) == 1 && !receipt.Events[0].ID.IsNil() {
		return receipt.Events[0], true
	}
	return ledger.IssuanceEvent{}, false
}

// rejected builds a write_rejected error carrying the ledger's reason verbatim.
func rejected(cause error, reason, fallback string) error {
	if reason == "" {
		reason = fallback
	}
	if cause == nil {
		return dErrors.New(dErrors.CodeWriteRejected, reason)
	}
	return dErrors.Stage(cause, dErrors.CodeWriteRejected, reason)
}
