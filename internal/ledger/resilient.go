package ledger

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	id "credledger/pkg/domain"
	"credledger/pkg/platform/circuit"
)

// BackoffConfig configures retry backoff for transient read failures.
type BackoffConfig struct {
	InitialDelay time.Duration // Initial delay before first retry (default: 100ms)
	MaxDelay     time.Duration // Maximum delay between retries (default: 2s)
	MaxRetries   int           // Maximum number of retries (default: 2)
	Multiplier   float64       // Multiplier for exponential backoff (default: 2.0)
}

// Resilient decorates a Reader with the read-side policy for transient failures:
// exponential backoff on retryable errors, a circuit breaker that stops retry
// amplification while the ledger is unhealthy, and an optional rate limit.
//
// NotFound is never retried. It is the ledger's answer, not a transport fault.
type Resilient struct {
	next    Reader
	backoff BackoffConfig
	breaker *circuit.Breaker
	limiter *rate.Limiter
	logger  *slog.Logger
}

// ResilientOption configures a Resilient reader.
type ResilientOption func(*Resilient)

// WithBackoff overrides the retry policy. Zero fields keep their defaults;
// a negative MaxRetries disables retries.
func WithBackoff(cfg BackoffConfig) ResilientOption {
	return func(r *Resilient) {
		if cfg.InitialDelay > 0 {
			r.backoff.InitialDelay = cfg.InitialDelay
		}
		if cfg.MaxDelay > 0 {
			r.backoff.MaxDelay = cfg.MaxDelay
		}
		if cfg.MaxRetries != 0 {
			r.backoff.MaxRetries = max(cfg.MaxRetries, 0)
		}
		if cfg.Multiplier > 0 {
			r.backoff.Multiplier = cfg.Multiplier
		}
	}
}

// WithBreaker installs a circuit breaker.
func WithBreaker(b *circuit.Breaker) ResilientOption {
	return func(r *Resilient) {
		r.breaker = b
	}
}

// WithRateLimit bounds read traffic to perSecond requests with the given burst.
func WithRateLimit(perSecond float64, burst int) ResilientOption {
	return func(r *Resilient) {
		if perSecond > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
		}
	}
}

// WithResilientLogger sets the logger for breaker transitions.
func WithResilientLogger(logger *slog.Logger) ResilientOption {
	return func(r *Resilient) {
		r.logger = logger
	}
}

// NewResilient wraps next.
func NewResilient(next Reader, opts ...ResilientOption) *Resilient {
	r := &Resilient{
		next: next,
		backoff: BackoffConfig{
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			MaxRetries:   2,
			Multiplier:   2.0,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resilient) Count(ctx context.Context, owner id.Address) (uint64, error) {
	return call(ctx, r, "balanceOf", func(ctx context.Context) (uint64, error) {
		return r.next.Count(ctx, owner)
	})
}

func (r *Resilient) IDAt(ctx context.Context, owner id.Address, index uint64) (id.CredentialID, error) {
	return call(ctx, r, "tokenOfOwnerByIndex", func(ctx context.Context) (id.CredentialID, error) {
		return r.next.IDAt(ctx, owner, index)
	})
}

func (r *Resilient) DocumentPointerOf(ctx context.Context, credentialID id.CredentialID) (string, error) {
	return call(ctx, r, "tokenURI", func(ctx context.Context) (string, error) {
		return r.next.DocumentPointerOf(ctx, credentialID)
	})
}

func (r *Resilient) IssuerOf(ctx context.Context, credentialID id.CredentialID) (id.Address, error) {
	return call(ctx, r, "credentialIssuer", func(ctx context.Context) (id.Address, error) {
		return r.next.IssuerOf(ctx, credentialID)
	})
}

func (r *Resilient) TitleOf(ctx context.Context, credentialID id.CredentialID) (string, error) {
	return call(ctx, r, "certificateTitle", func(ctx context.Context) (string, error) {
		return r.next.TitleOf(ctx, credentialID)
	})
}

func (r *Resilient) OwnerOf(ctx context.Context, credentialID id.CredentialID) (id.Address, error) {
	return call(ctx, r, "ownerOf", func(ctx context.Context) (id.Address, error) {
		return r.next.OwnerOf(ctx, credentialID)
	})
}

func (r *Resilient) DisplayNameOf(ctx context.Context, issuer id.Address) (string, error) {
	return call(ctx, r, "universityNames", func(ctx context.Context) (string, error) {
		return r.next.DisplayNameOf(ctx, issuer)
	})
}

func (r *Resilient) IsIssuer(ctx context.Context, addr id.Address) (bool, error) {
	return call(ctx, r, "isIssuer", func(ctx context.Context) (bool, error) {
		return r.next.IsIssuer(ctx, addr)
	})
}

func (r *Resilient) IssuanceEvents(ctx context.Context) ([]IssuanceEvent, error) {
	return call(ctx, r, "queryFilter", func(ctx context.Context) ([]IssuanceEvent, error) {
		return r.next.IssuanceEvents(ctx)
	})
}

// OwnedIDs forwards to the wrapped ledger when it can snapshot id sets.
func (r *Resilient) OwnedIDs(ctx context.Context, owner id.Address) ([]id.CredentialID, error) {
	lister, ok := r.next.(OwnedIDLister)
	if !ok {
		return nil, ErrNotSupported
	}
	return call(ctx, r, "ownedIds", func(ctx context.Context) ([]id.CredentialID, error) {
		return lister.OwnedIDs(ctx, owner)
	})
}

// call runs fn with the retry policy. Only retryable categories are retried,
// and only while the breaker is not open.
func call[T any](ctx context.Context, r *Resilient, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	delay := r.backoff.InitialDelay

	for attempt := 0; attempt <= r.backoff.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}

			delay = time.Duration(float64(delay) * r.backoff.Multiplier)
			if delay > r.backoff.MaxDelay {
				delay = r.backoff.MaxDelay
			}
		}

		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return zero, NewError(ErrorRateLimited, op, "rate limiter wait aborted", err)
			}
		}

		v, err := fn(ctx)
		r.record(ctx, op, err)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if !IsRetryable(err) || r.breakerOpen() {
			return zero, err
		}
	}

	return zero, lastErr
}

func (r *Resilient) breakerOpen() bool {
	return r.breaker != nil && r.breaker.IsOpen()
}

// record feeds the breaker. A NotFound answer proves the ledger is reachable.
func (r *Resilient) record(ctx context.Context, op string, err error) {
	if r.breaker == nil {
		return
	}
	var change circuit.StateChange
	if Classify(err) == OutcomeTransient {
		change = r.breaker.RecordFailure()
	} else {
		change = r.breaker.RecordSuccess()
	}
	if r.logger == nil {
		return
	}
	if change.Opened {
		r.logger.WarnContext(ctx, "ledger circuit opened",
			"breaker", r.breaker.Name(),
			"op", op,
			"error", err,
		)
	}
	if change.Closed {
		r.logger.InfoContext(ctx, "ledger circuit closed",
			"breaker", r.breaker.Name(),
			"op", op,
		)
	}
}

var (
	_ Reader        = (*Resilient)(nil)
	_ OwnedIDLister = (*Resilient)(nil)
)
