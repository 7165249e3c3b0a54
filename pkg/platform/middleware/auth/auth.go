// Package auth binds an HTTP request to a ledger session caller.
package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	id "credledger/pkg/domain"
	"credledger/pkg/requestcontext"
)

// SessionValidator defines the interface for validating session tokens.
type SessionValidator interface {
	ValidateToken(tokenString string) (*SessionClaims, error)
}

// SessionClaims represents the claims we expect from the session validator.
type SessionClaims struct {
	Address string
	Issuer  bool
	JTI     string
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireSession returns middleware that validates the bearer session token and
// stores the caller in context. Requests without a valid session get 401
// not_connected.
func RequireSession(validator SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "no session - missing token",
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "not_connected", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "no session - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "not_connected", "Invalid or expired token")
				return
			}

			addr, err := id.ParseAddress(claims.Address)
			if err != nil {
				logger.WarnContext(ctx, "no session - malformed token address",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "not_connected", "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithCaller(ctx, requestcontext.Caller{Address: addr, Issuer: claims.Issuer})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
