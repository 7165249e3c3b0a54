package issuance

import (
	"context"
	"time"

	"credledger/internal/credential/metrics"
	"credledger/internal/credential/models"
	"credledger/internal/platform/tracer"
	id "credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
	"credledger/pkg/platform/audit"
	"credledger/pkg/requestcontext"
)

// attempt carries what is known about an issuance so far, for failure reporting.
type attempt struct {
	caller  id.Address
	student id.Address
	txHash  string
	span    tracer.Span
}

func (c *Coordinator) fail(ctx context.Context, a *attempt, err error) error {
	code := dErrors.CodeOf(err)
	a.span.SetAttributes(tracer.String(tracer.AttrStage, string(code)))
	a.span.End(err)
	c.metrics.RecordWrite(operation, string(code))

	attrs := []any{
		"issuer", a.caller,
		"student", a.student,
		"stage", code,
		"error", err,
	}
	if a.txHash != "" {
		attrs = append(attrs, "tx_hash", a.txHash)
	}
	if rid := requestcontext.RequestID(ctx); rid != "" {
		attrs = append(attrs, "request_id", rid)
	}

	action := audit.EventIssueFailed
	switch code {
	case dErrors.CodeInvalidInput:
		// Bad input is the caller's problem, not an operational event.
		c.logger.InfoContext(ctx, "credential issuance rejected", attrs...)
		return err
	case dErrors.CodeNotAuthorized:
		action = audit.EventIssueDenied
		c.logger.WarnContext(ctx, "credential issuance denied", attrs...)
	case dErrors.CodeConfirmationTimedOut:
		action = audit.EventConfirmationTimedOut
		c.logger.WarnContext(ctx, "credential issuance not confirmed", attrs...)
	default:
		c.logger.ErrorContext(ctx, "credential issuance failed", attrs...)
	}

	c.emitAudit(ctx, audit.Event{
		Actor:    a.caller,
		Student:  a.student,
		Action:   string(action),
		Decision: "failed",
		Reason:   err.Error(),
		TxHash:   a.txHash,
	})
	return err
}

func (c *Coordinator) succeed(ctx context.Context, result *models.IssueResult, elapsed time.Duration) {
	c.metrics.RecordWrite(operation, metrics.OutcomeConfirmed)
	c.metrics.ObserveWrite(operation, elapsed.Seconds())
	c.logger.InfoContext(ctx, "credential issued",
		"credential_id", result.CredentialID,
		"issuer", result.Issuer,
		"student", result.Student,
		"tx_hash", result.TxHash,
		"request_id", requestcontext.RequestID(ctx),
	)
	c.emitAudit(ctx, audit.Event{
		Actor:    result.Issuer,
		Subject:  result.CredentialID.String(),
		Student:  result.Student,
		Action:   string(audit.EventCredentialIssued),
		Decision: "issued",
		TxHash:   result.TxHash,
	})
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
