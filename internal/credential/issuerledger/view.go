package issuerledger

import (
	"context"
	"errors"
	"sync"

	"credledger/internal/credential/metrics"
	"credledger/internal/credential/models"
	"credledger/internal/credential/query"
	id "credledger/pkg/domain"
)

// Lister is the read the view is built on.
type Lister interface {
	ListIssued(ctx context.Context, issuer id.Address, studentFilter *id.Address) ([]models.Row, error)
}

type snapshot struct {
	filter *id.Address
	rows   []models.Row
}

// viewKey scopes a listing to the session looking at it.
type viewKey struct {
	viewer id.Address
	issuer id.Address
}

func keyOf(viewer, issuer id.Address) viewKey {
	return viewKey{viewer: viewer.Normalized(), issuer: issuer.Normalized()}
}

// View holds, per viewer and issuer, the latest issued-credential listing and
// the student filter that produced it. A viewer's newer load cancels its own
// older one; viewers never interfere with each other.
type View struct {
	lister  Lister
	metrics *metrics.Metrics

	slots query.Group[viewKey, snapshot]

	mu      sync.Mutex
	filters map[viewKey]*id.Address
}

type ViewOption func(*View)

func WithViewMetrics(m *metrics.Metrics) ViewOption {
	return func(v *View) {
		v.metrics = m
	}
}

func NewView(lister Lister, opts ...ViewOption) *View {
	v := &View{
		lister:  lister,
		filters: make(map[viewKey]*id.Address),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Load lists issuer's credentials for viewer with filter and remembers the
// filter for Refresh. A load overtaken by the same viewer's newer load for
// the same issuer returns query.ErrSuperseded.
func (v *View) Load(ctx context.Context, viewer, issuer id.Address, filter *id.Address) ([]models.Row, error) {
	issuer, err := id.ParseAddress(issuer.String())
	if err != nil {
		return nil, err
	}
	key := keyOf(viewer, issuer)

	v.mu.Lock()
	v.filters[key] = filter
	v.mu.Unlock()

	snap, err := v.slots.Slot(key).Run(ctx, func(ctx context.Context) (snapshot, error) {
		rows, err := v.lister.ListIssued(ctx, issuer, filter)
		return snapshot{filter: filter, rows: rows}, err
	})
	if errors.Is(err, query.ErrSuperseded) {
		v.metrics.RecordSuperseded(operation)
	}
	if err != nil {
		return nil, err
	}
	return snap.rows, nil
}

// Refresh re-lists issuer for every viewer that has loaded it, each with its
// remembered filter. In-flight loads are not cancelled. Issuers nobody has
// loaded are skipped.
func (v *View) Refresh(ctx context.Context, issuer id.Address) error {
	issuer = issuer.Normalized()
	v.mu.Lock()
	var keys []viewKey
	for key := range v.filters {
		if key.issuer == issuer {
			keys = append(keys, key)
		}
	}
	v.mu.Unlock()

	var errs []error
	for _, key := range keys {
		slot, ok := v.slots.Peek(key)
		if !ok {
			continue
		}
		err := slot.Refresh(ctx, func(ctx context.Context) (snapshot, error) {
			// Read the filter after the refresh is sequenced so a load that
			// started earlier cannot leave it with a stale filter.
			filter := v.filter(key)
			rows, err := v.lister.ListIssued(ctx, issuer, filter)
			return snapshot{filter: filter, rows: rows}, err
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (v *View) filter(key viewKey) *id.Address {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filters[key]
}

// Rows returns viewer's current snapshot of issuer and the filter behind it.
func (v *View) Rows(viewer, issuer id.Address) ([]models.Row, *id.Address, bool) {
	slot, ok := v.slots.Peek(keyOf(viewer, issuer))
	if !ok {
		return nil, nil, false
	}
	snap, loaded := slot.Value()
	if !loaded {
		return nil, nil, false
	}
	return snap.rows, snap.filter, true
}
