// Package issuerledger lists the still-live credentials an issuer has issued,
// reconstructed from the append-only issuance event log.
package issuerledger

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"credledger/internal/credential/metrics"
	"credledger/internal/credential/models"
	"credledger/internal/ledger"
	"credledger/internal/platform/tracer"
	id "credledger/pkg/domain"
)

const operation = "list_issued"

// defaultConcurrency bounds parallel per-event metadata reads.
const defaultConcurrency = 8

// Ledger lists issued credentials.
type Ledger struct {
	reader      ledger.Reader
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      tracer.Tracer
}

// Option configures the Ledger.
type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) {
		l.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(l *Ledger) {
		l.tracer = t
	}
}

// WithConcurrency bounds parallel metadata reads across events.
func WithConcurrency(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

func New(reader ledger.Reader, opts ...Option) *Ledger {
	l := &Ledger{
		reader:      reader,
		concurrency: defaultConcurrency,
		logger:      slog.New(slog.DiscardHandler),
		tracer:      tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ListIssued returns rows for issuer's credentials that are still live,
// newest issuance first. studentFilter, when set, keeps only rows whose
// current owner matches it. A credential whose metadata cannot be read is
// treated as revoked and left out; an unreadable event log yields no rows.
func (l *Ledger) ListIssued(ctx context.Context, issuer id.Address, studentFilter *id.Address) ([]models.Row, error) {
	issuer, err := id.ParseAddress(issuer.String())
	if err != nil {
		return nil, err
	}

	ctx, span := l.tracer.Start(ctx, tracer.SpanListIssued, tracer.String(tracer.AttrIssuer, issuer.Short()))
	start := time.Now()

	events, err := l.reader.IssuanceEvents(ctx)
	if err != nil {
		l.logger.WarnContext(ctx, "issuance event log unreadable",
			"issuer", issuer,
			"outcome", ledger.Classify(err),
			"error", err,
		)
		span.End(nil)
		return []models.Row{}, nil
	}

	var mine []ledger.IssuanceEvent
	for _, e := range events {
		if e.Issuer.Equal(issuer) {
			mine = append(mine, e)
		}
	}
	slices.Reverse(mine)

	rows := l.resolveAll(ctx, mine)
	filtered := rows[:0]
	for _, row := range rows {
		if row.Student.Matches(studentFilter) {
			filtered = append(filtered, row)
		}
	}

	span.SetAttributes(
		tracer.Int(tracer.AttrCount, len(filtered)),
		tracer.Int(tracer.AttrSkipped, len(mine)-len(rows)),
	)
	span.End(nil)
	l.metrics.ObserveRead(operation, time.Since(start).Seconds())
	l.metrics.RecordReturned(operation, len(filtered))

	return filtered, nil
}

func (l *Ledger) resolveAll(ctx context.Context, events []ledger.IssuanceEvent) []models.Row {
	resolved := make([]*models.Row, len(events))

	var g errgroup.Group
	g.SetLimit(l.concurrency)
	for i, e := range events {
		g.Go(func() error {
			if row, ok := l.resolve(ctx, e.ID); ok {
				resolved[i] = &row
			}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // resolve never returns errors

	rows := make([]models.Row, 0, len(events))
	for _, r := range resolved {
		if r != nil {
			rows = append(rows, *r)
		}
	}
	return rows
}

// resolve reads current owner and title. The student is the current owner,
// not the event's recipient.
func (l *Ledger) resolve(ctx context.Context, credentialID id.CredentialID) (models.Row, bool) {
	row := models.Row{ID: credentialID}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		owner, err := l.reader.OwnerOf(gctx, credentialID)
		row.Student = owner
		return err
	})
	g.Go(func() error {
		title, err := l.reader.TitleOf(gctx, credentialID)
		row.Title = title
		return err
	})
	if err := g.Wait(); err != nil {
		outcome := ledger.Classify(err)
		reason := metrics.SkipTransient
		if outcome == ledger.OutcomeNotFound {
			reason = metrics.SkipNotFound
		}
		l.metrics.RecordSkipped(operation, reason)
		l.logger.DebugContext(ctx, "treating credential as revoked",
			"credential_id", credentialID,
			"outcome", outcome,
			"error", err,
		)
		return models.Row{}, false
	}
	return row, true
}
