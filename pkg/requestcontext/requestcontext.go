// Package requestcontext carries per-request values (request id, caller
// session, request time) through context.Context.
package requestcontext

import (
	"context"
	"time"

	id "credledger/pkg/domain"
)

type contextKey string

const (
	keyRequestID   contextKey = "request_id"
	keyCaller      contextKey = "caller"
	keyRequestTime contextKey = "request_time"
)

// Caller is the authenticated session presented by the identity provider.
type Caller struct {
	Address id.Address
	Issuer  bool // token claims issuer capability; the ledger remains authoritative
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, keyRequestID, requestID)
}

// RequestID returns the correlation id, or "" outside a request.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(keyRequestID).(string)
	return v
}

func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, keyCaller, caller)
}

// CallerFrom returns the session caller and whether one is present.
func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(keyCaller).(Caller)
	if !ok || c.Address.IsNil() {
		return Caller{}, false
	}
	return c, true
}

func WithRequestTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, keyRequestTime, t)
}

// Now returns the request time when set, so a request sees one consistent clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(keyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}
