// Package aggregator reconstructs the set of currently valid credentials
// attributed to an owner address.
//
// Enumeration runs in two phases. The snapshot phase captures the owner's id
// set, either in one call when the ledger supports it or by walking positional
// indices. The resolve phase then reads each id's metadata independently, so a
// revocation that reshuffles positions mid-enumeration can only cause the
// affected id to be skipped; it never attributes one id's metadata to another.
package aggregator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"credledger/internal/credential/metrics"
	"credledger/internal/credential/models"
	"credledger/internal/ledger"
	"credledger/internal/platform/tracer"
	id "credledger/pkg/domain"
)

const operation = "enumerate"

// Aggregator enumerates an owner's credentials from the ledger.
type Aggregator struct {
	reader      ledger.Reader
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      tracer.Tracer
}

// Option configures the Aggregator.
type Option func(*Aggregator)

// WithLogger configures a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// WithMetrics configures Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

// WithTracer configures a tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(a *Aggregator) {
		a.tracer = t
	}
}

// WithConcurrency bounds how many ids are resolved in parallel. Result order
// does not depend on it. Default 1 (sequential).
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// New creates an Aggregator reading from reader.
func New(reader ledger.Reader, opts ...Option) *Aggregator {
	a := &Aggregator{
		reader:      reader,
		concurrency: 1,
		logger:      slog.New(slog.DiscardHandler),
		tracer:      tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Enumerate returns the owner's currently valid credentials in observed
// positional order. Read failures are never surfaced: a failed count or
// snapshot yields an empty list and a failed id is skipped. The only error is
// an invalid owner address.
func (a *Aggregator) Enumerate(ctx context.Context, owner id.Address) ([]models.Credential, error) {
	owner, err := id.ParseAddress(owner.String())
	if err != nil {
		return nil, err
	}

	ctx, span := a.tracer.Start(ctx, tracer.SpanEnumerate, tracer.String(tracer.AttrOwner, owner.Short()))
	start := time.Now()

	ids, source := a.snapshot(ctx, owner)
	credentials := a.resolveAll(ctx, owner, ids)

	span.SetAttributes(
		tracer.String(tracer.AttrSnapshot, source),
		tracer.Int(tracer.AttrCount, len(credentials)),
		tracer.Int(tracer.AttrSkipped, len(ids)-len(credentials)),
	)
	span.End(nil)
	a.metrics.ObserveRead(operation, time.Since(start).Seconds())
	a.metrics.RecordReturned(operation, len(credentials))

	return credentials, nil
}

// snapshot captures the owner's id set. It reports which source was used.
func (a *Aggregator) snapshot(ctx context.Context, owner id.Address) ([]id.CredentialID, string) {
	if lister, ok := a.reader.(ledger.OwnedIDLister); ok {
		ids, err := lister.OwnedIDs(ctx, owner)
		switch {
		case err == nil:
			return a.dedupe(ids), "owned_ids"
		case !errors.Is(err, ledger.ErrNotSupported):
			a.logger.WarnContext(ctx, "owned id snapshot failed",
				"owner", owner,
				"outcome", ledger.Classify(err),
				"error", err,
			)
			return nil, "owned_ids"
		}
	}

	count, err := a.reader.Count(ctx, owner)
	if err != nil {
		a.logger.WarnContext(ctx, "credential count failed",
			"owner", owner,
			"outcome", ledger.Classify(err),
			"error", err,
		)
		return nil, "positional"
	}

	ids := make([]id.CredentialID, 0, count)
	for i := range count {
		if ctx.Err() != nil {
			break
		}
		credentialID, err := a.reader.IDAt(ctx, owner, i)
		if err != nil {
			a.metrics.RecordSkipped(operation, metrics.SkipIndex)
			a.logger.DebugContext(ctx, "skipping unreadable index",
				"owner", owner,
				"index", i,
				"error", err,
			)
			continue
		}
		ids = append(ids, credentialID)
	}
	return a.dedupe(ids), "positional"
}

// dedupe keeps the first occurrence of each id. A concurrent shrink of the
// owner's set can surface the same id at two positions.
func (a *Aggregator) dedupe(ids []id.CredentialID) []id.CredentialID {
	seen := make(map[id.CredentialID]struct{}, len(ids))
	out := make([]id.CredentialID, 0, len(ids))
	for _, credentialID := range ids {
		if _, ok := seen[credentialID]; ok {
			a.metrics.RecordSkipped(operation, metrics.SkipDuplicate)
			continue
		}
		seen[credentialID] = struct{}{}
		out = append(out, credentialID)
	}
	return out
}

func (a *Aggregator) resolveAll(ctx context.Context, owner id.Address, ids []id.CredentialID) []models.Credential {
	resolved := make([]*models.Credential, len(ids))

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, credentialID := range ids {
		g.Go(func() error {
			if c, ok := a.resolve(ctx, owner, credentialID); ok {
				resolved[i] = &c
			}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // resolve never returns errors

	out := make([]models.Credential, 0, len(ids))
	for _, c := range resolved {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out
}

// resolve reads one id's metadata. Any failed read skips the id.
func (a *Aggregator) resolve(ctx context.Context, owner id.Address, credentialID id.CredentialID) (models.Credential, bool) {
	c := models.Credential{ID: credentialID, Owner: owner}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pointer, err := a.reader.DocumentPointerOf(gctx, credentialID)
		c.DocumentPointer = pointer
		return err
	})
	g.Go(func() error {
		issuer, err := a.reader.IssuerOf(gctx, credentialID)
		c.Issuer = issuer
		return err
	})
	g.Go(func() error {
		title, err := a.reader.TitleOf(gctx, credentialID)
		c.Title = title
		return err
	})
	if err := g.Wait(); err != nil {
		a.skip(ctx, credentialID, err)
		return models.Credential{}, false
	}

	name, err := a.reader.DisplayNameOf(ctx, c.Issuer)
	if err != nil {
		a.skip(ctx, credentialID, err)
		return models.Credential{}, false
	}
	c.IssuerDisplayName = name
	return c, true
}

func (a *Aggregator) skip(ctx context.Context, credentialID id.CredentialID, err error) {
	outcome := ledger.Classify(err)
	reason := metrics.SkipTransient
	if outcome == ledger.OutcomeNotFound {
		reason = metrics.SkipNotFound
	}
	a.metrics.RecordSkipped(operation, reason)
	a.logger.DebugContext(ctx, "skipping credential",
		"credential_id", credentialID,
		"outcome", outcome,
		"error", err,
	)
}
