package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "credledger/pkg/domain-errors"
	"credledger/pkg/requestcontext"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Errors after WriteHeader cannot change the status code, so we ignore encoding errors.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError centralizes domain error translation to HTTP responses.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		WriteJSON(w, DomainCodeToHTTPStatus(domainErr.Code), ErrorResponse{
			Error:            string(domainErr.Code),
			ErrorDescription: domainErr.Message,
		})
		return
	}

	// Fallback for unexpected errors
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: string(dErrors.CodeInternal)})
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeNotConnected:
		return http.StatusUnauthorized
	case dErrors.CodeNotAuthorized:
		return http.StatusForbidden
	case dErrors.CodeWriteRejected, dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUploadFailed:
		return http.StatusBadGateway
	case dErrors.CodeConfirmationTimedOut, dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeLedgerUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RequireCaller extracts the session caller from context.
// Returns a not_connected error when the session middleware did not run or found no caller.
func RequireCaller(ctx context.Context, logger *slog.Logger) (requestcontext.Caller, error) {
	caller, ok := requestcontext.CallerFrom(ctx)
	if !ok {
		if logger != nil {
			logger.WarnContext(ctx, "session caller missing from context",
				"request_id", requestcontext.RequestID(ctx))
		}
		return requestcontext.Caller{}, dErrors.New(dErrors.CodeNotConnected, "no ledger session")
	}
	return caller, nil
}
