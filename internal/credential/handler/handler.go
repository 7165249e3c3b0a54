package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"credledger/internal/credential/aggregator"
	"credledger/internal/credential/issuance"
	"credledger/internal/credential/issuerledger"
	"credledger/internal/credential/models"
	"credledger/internal/credential/query"
	"credledger/internal/credential/revocation"
	"credledger/internal/credential/verification"
	"credledger/internal/ledger"
	"credledger/internal/storage"
	id "credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
	"credledger/pkg/platform/audit"
	"credledger/pkg/platform/audit/publisher"
	"credledger/pkg/platform/httputil"
	"credledger/pkg/requestcontext"
)

// DefaultMaxUploadBytes bounds a multipart issuance request, document included.
const DefaultMaxUploadBytes = 12 << 20

type Enumerator interface {
	Enumerate(ctx context.Context, owner id.Address) ([]models.Credential, error)
}

// IssuedLister reads an issuer's live issuance history. It keeps no state
// between calls, so independent readers never affect each other.
type IssuedLister interface {
	ListIssued(ctx context.Context, issuer id.Address, studentFilter *id.Address) ([]models.Row, error)
}

// IssuedView keeps each session's latest listing of an issuer, with
// last-request-wins semantics per session.
type IssuedView interface {
	Load(ctx context.Context, viewer, issuer id.Address, filter *id.Address) ([]models.Row, error)
	Rows(viewer, issuer id.Address) ([]models.Row, *id.Address, bool)
}

// AuditTrail reads the recorded credential lifecycle events.
type AuditTrail interface {
	List(ctx context.Context, actor id.Address) ([]audit.Event, error)
	History(ctx context.Context, credentialID id.CredentialID) ([]audit.Event, error)
}

type Verifier interface {
	Verify(ctx context.Context, credentialID id.CredentialID, expectedOwner, expectedIssuer *id.Address) (*models.VerifyResult, error)
}

type Issuer interface {
	Issue(ctx context.Context, session ledger.Session, req models.IssueRequest) (*models.IssueResult, error)
}

type Revoker interface {
	Revoke(ctx context.Context, session ledger.Session, credentialID id.CredentialID) (*models.RevokeResult, error)
}

// SessionFactory binds a ledger session to the authenticated caller.
type SessionFactory interface {
	Session(caller id.Address) (ledger.Session, error)
}

// Services groups the operations the handler exposes.
type Services struct {
	Enumerator   Enumerator
	IssuedLister IssuedLister
	IssuedView   IssuedView
	Verifier     Verifier
	Issuer       Issuer
	Revoker      Revoker
	Sessions     SessionFactory
	AuditTrail   AuditTrail // optional
}

type Option func(*Handler)

// WithGateway sets the base URL used to build browsable document links.
func WithGateway(gateway string) Option {
	return func(h *Handler) {
		h.gateway = gateway
	}
}

// WithMaxUploadBytes bounds the issuance request body.
func WithMaxUploadBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUpload = n
		}
	}
}

// Handler wires credential endpoints to the credential services.
type Handler struct {
	services  Services
	gateway   string
	maxUpload int64
	logger    *slog.Logger
}

// New constructs a credential handler with its dependencies.
func New(services Services, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		services:  services,
		maxUpload: DefaultMaxUploadBytes,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts credential endpoints on the router. Session routes are
// mounted behind requireSession, which must put the caller into the request
// context. Audit routes are mounted only when an AuditTrail is configured.
func (h *Handler) Register(r chi.Router, requireSession func(http.Handler) http.Handler) {
	r.Get("/owners/{owner}/credentials", h.HandleListOwned)
	r.Get("/issuers/{issuer}/credentials", h.HandleListIssued)
	r.Get("/verify/{id}", h.HandleVerify)

	r.Group(func(r chi.Router) {
		r.Use(requireSession)
		r.Get("/issued", h.HandleIssuedView)
		r.Post("/credentials", h.HandleIssue)
		r.Delete("/credentials/{id}", h.HandleRevoke)
		if h.services.AuditTrail != nil {
			r.Get("/credentials/{id}/history", h.HandleHistory)
			r.Get("/activity", h.HandleActivity)
		}
	})
}

// CredentialResponse is one credential in an owner's listing.
type CredentialResponse struct {
	ID              string `json:"id"`
	Owner           string `json:"owner"`
	Issuer          string `json:"issuer"`
	IssuerName      string `json:"issuer_name"`
	Title           string `json:"title"`
	DocumentPointer string `json:"document_pointer"`
	DocumentURL     string `json:"document_url"`
	VerifyPath      string `json:"verify_path"`
}

type ListOwnedResponse struct {
	Owner       string               `json:"owner"`
	Credentials []CredentialResponse `json:"credentials"`
}

// IssuedRowResponse is one live credential in an issuer's history.
type IssuedRowResponse struct {
	ID         string `json:"id"`
	Student    string `json:"student"`
	Title      string `json:"title"`
	VerifyPath string `json:"verify_path"`
}

type ListIssuedResponse struct {
	Issuer      string              `json:"issuer"`
	Student     string              `json:"student,omitempty"`
	Credentials []IssuedRowResponse `json:"credentials"`
}

// VerifyResponse is returned for every verdict, including INVALID_OR_REVOKED.
type VerifyResponse struct {
	Verdict      string `json:"verdict"`
	CredentialID string `json:"credential_id"`
	Owner        string `json:"owner,omitempty"`
	Issuer       string `json:"issuer,omitempty"`
	IssuerName   string `json:"issuer_name,omitempty"`
	Title        string `json:"title,omitempty"`
	OwnerMatch   bool   `json:"owner_match"`
	IssuerMatch  bool   `json:"issuer_match"`
	Cause        string `json:"cause,omitempty"`
}

type IssueResponse struct {
	CredentialID    string `json:"credential_id"`
	Issuer          string `json:"issuer"`
	Student         string `json:"student"`
	Title           string `json:"title"`
	DocumentPointer string `json:"document_pointer"`
	DocumentURL     string `json:"document_url"`
	TxHash          string `json:"tx_hash"`
	VerifyPath      string `json:"verify_path"`
}

// RevokeResponse carries the caller's refreshed listing of the credential's
// issuer in Remaining; it is null when the caller has not loaded that listing.
type RevokeResponse struct {
	CredentialID string              `json:"credential_id"`
	RevokedBy    string              `json:"revoked_by"`
	Issuer       string              `json:"issuer"`
	TxHash       string              `json:"tx_hash"`
	Remaining    []IssuedRowResponse `json:"remaining"`
}

// EventResponse is one recorded lifecycle event.
type EventResponse struct {
	Action    string    `json:"action"`
	Category  string    `json:"category"`
	Actor     string    `json:"actor"`
	Subject   string    `json:"subject,omitempty"`
	Student   string    `json:"student,omitempty"`
	Decision  string    `json:"decision"`
	Reason    string    `json:"reason,omitempty"`
	TxHash    string    `json:"tx_hash,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type HistoryResponse struct {
	CredentialID string          `json:"credential_id"`
	Events       []EventResponse `json:"events"`
}

type ActivityResponse struct {
	Actor  string          `json:"actor"`
	Events []EventResponse `json:"events"`
}

// HandleListOwned handles GET /owners/{owner}/credentials requests.
func (h *Handler) HandleListOwned(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner, err := id.ParseAddress(chi.URLParam(r, "owner"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	credentials, err := h.services.Enumerator.Enumerate(ctx, owner)
	if err != nil {
		h.logError(ctx, "failed to enumerate credentials", err, "owner", owner)
		httputil.WriteError(w, err)
		return
	}

	response := ListOwnedResponse{
		Owner:       owner.String(),
		Credentials: make([]CredentialResponse, 0, len(credentials)),
	}
	for _, c := range credentials {
		response.Credentials = append(response.Credentials, CredentialResponse{
			ID:              c.ID.String(),
			Owner:           c.Owner.String(),
			Issuer:          c.Issuer.String(),
			IssuerName:      c.DisplayIssuer(),
			Title:           c.Title,
			DocumentPointer: c.DocumentPointer,
			DocumentURL:     storage.GatewayURL(h.gateway, c.DocumentPointer),
			VerifyPath:      VerifyPath(c.ID, c.Owner),
		})
	}
	httputil.WriteJSON(w, http.StatusOK, response)
}

// HandleListIssued handles GET /issuers/{issuer}/credentials requests. It is
// a plain read: concurrent requests for one issuer all succeed.
func (h *Handler) HandleListIssued(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	issuer, err := id.ParseAddress(chi.URLParam(r, "issuer"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	student, err := studentFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rows, err := h.services.IssuedLister.ListIssued(ctx, issuer, student)
	if err != nil {
		h.logError(ctx, "failed to list issued credentials", err, "issuer", issuer)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listIssuedResponse(issuer, student, rows))
}

// HandleIssuedView handles GET /issued requests: the caller's own view of an
// issuer's history, the caller's by default. A request overtaken by the same
// caller's newer one for the same issuer is answered with conflict.
func (h *Handler) HandleIssuedView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, err := httputil.RequireCaller(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	issuer := caller.Address
	if raw := r.URL.Query().Get("issuer"); raw != "" {
		issuer, err = id.ParseAddress(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	student, err := studentFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rows, err := h.services.IssuedView.Load(ctx, caller.Address, issuer, student)
	if err != nil {
		if errors.Is(err, query.ErrSuperseded) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "superseded by a newer request"))
			return
		}
		h.logError(ctx, "failed to load issued view", err, "issuer", issuer, "viewer", caller.Address)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listIssuedResponse(issuer, student, rows))
}

func studentFilter(r *http.Request) (*id.Address, error) {
	student, err := id.ParseOptionalAddress(r.URL.Query().Get("student"))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid student filter")
	}
	return student, nil
}

func listIssuedResponse(issuer id.Address, student *id.Address, rows []models.Row) ListIssuedResponse {
	response := ListIssuedResponse{
		Issuer:      issuer.String(),
		Credentials: issuedRows(rows),
	}
	if student != nil {
		response.Student = student.String()
	}
	return response
}

func issuedRows(rows []models.Row) []IssuedRowResponse {
	out := make([]IssuedRowResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, IssuedRowResponse{
			ID:         row.ID.String(),
			Student:    row.Student.String(),
			Title:      row.Title,
			VerifyPath: VerifyPath(row.ID, row.Student),
		})
	}
	return out
}

// HandleVerify handles GET /verify/{id} requests. Expected owner and issuer
// are optional query parameters.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	credentialID, err := id.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	q := r.URL.Query()
	expectedOwner, err := id.ParseOptionalAddress(q.Get("owner"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid owner"))
		return
	}
	expectedIssuer, err := id.ParseOptionalAddress(q.Get("issuer"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid issuer"))
		return
	}

	result, err := h.services.Verifier.Verify(ctx, credentialID, expectedOwner, expectedIssuer)
	if err != nil {
		h.logError(ctx, "failed to verify credential", err, "credential_id", credentialID)
		httputil.WriteError(w, err)
		return
	}

	response := VerifyResponse{
		Verdict:      string(result.Verdict),
		CredentialID: result.CredentialID.String(),
		OwnerMatch:   result.OwnerMatch,
		IssuerMatch:  result.IssuerMatch,
	}
	if result.Verdict == models.VerdictInvalidOrRevoked {
		response.Cause = string(result.Cause)
	} else {
		response.Owner = result.Owner.String()
		response.Issuer = result.Issuer.String()
		response.IssuerName = models.DisplayName(result.IssuerDisplayName)
		response.Title = result.Title
	}
	httputil.WriteJSON(w, http.StatusOK, response)
}

// HandleIssue handles POST /credentials requests: a multipart form with
// student, title and a document file part.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := h.session(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "request body too large"))
			return
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid multipart form"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	doc, err := readDocument(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.services.Issuer.Issue(ctx, session, models.IssueRequest{
		Student:  r.FormValue("student"),
		Title:    r.FormValue("title"),
		Document: doc,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, IssueResponse{
		CredentialID:    result.CredentialID.String(),
		Issuer:          result.Issuer.String(),
		Student:         result.Student.String(),
		Title:           result.Title,
		DocumentPointer: result.DocumentPointer.String(),
		DocumentURL:     storage.GatewayURL(h.gateway, result.DocumentPointer.String()),
		TxHash:          result.TxHash,
		VerifyPath:      VerifyPath(result.CredentialID, result.Student),
	})
}

// HandleRevoke handles DELETE /credentials/{id} requests.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := h.session(w, r)
	if !ok {
		return
	}

	result, err := h.services.Revoker.Revoke(ctx, session, id.CredentialID(chi.URLParam(r, "id")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	response := RevokeResponse{
		CredentialID: result.CredentialID.String(),
		RevokedBy:    result.RevokedBy.String(),
		Issuer:       result.Issuer.String(),
		TxHash:       result.TxHash,
	}
	if h.services.IssuedView != nil {
		if rows, _, ok := h.services.IssuedView.Rows(session.Address(), result.Issuer); ok {
			response.Remaining = issuedRows(rows)
		}
	}
	httputil.WriteJSON(w, http.StatusOK, response)
}

// HandleHistory handles GET /credentials/{id}/history requests.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	credentialID, err := id.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	events, err := h.services.AuditTrail.History(ctx, credentialID)
	if err != nil {
		h.logError(ctx, "failed to read credential history", err, "credential_id", credentialID)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "history unavailable"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, HistoryResponse{
		CredentialID: credentialID.String(),
		Events:       eventResponses(events),
	})
}

// HandleActivity handles GET /activity requests: the caller's own actions.
func (h *Handler) HandleActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, err := httputil.RequireCaller(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	events, err := h.services.AuditTrail.List(ctx, caller.Address)
	if err != nil {
		h.logError(ctx, "failed to read activity", err, "actor", caller.Address)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "activity unavailable"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ActivityResponse{
		Actor:  caller.Address.String(),
		Events: eventResponses(events),
	})
}

func eventResponses(events []audit.Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, EventResponse{
			Action:    e.Action,
			Category:  string(e.Category),
			Actor:     e.Actor.String(),
			Subject:   e.Subject,
			Student:   e.Student.String(),
			Decision:  e.Decision,
			Reason:    e.Reason,
			TxHash:    e.TxHash,
			Timestamp: e.Timestamp,
		})
	}
	return out
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (ledger.Session, bool) {
	ctx := r.Context()
	caller, err := httputil.RequireCaller(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	session, err := h.services.Sessions.Session(caller.Address)
	if err != nil {
		h.logError(ctx, "failed to open ledger session", err, "caller", caller.Address)
		httputil.WriteError(w, dErrors.Stage(err, dErrors.CodeNotConnected, "ledger session unavailable"))
		return nil, false
	}
	return session, true
}

// readDocument reads the "document" file part. A missing part yields an empty
// document, which the issuance policy rejects.
func readDocument(r *http.Request) (storage.Document, error) {
	file, header, err := r.FormFile("document")
	if errors.Is(err, http.ErrMissingFile) {
		return storage.Document{}, nil
	}
	if err != nil {
		return storage.Document{}, dErrors.New(dErrors.CodeInvalidInput, "invalid document part")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return storage.Document{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "failed to read document")
	}
	return storage.Document{Name: header.Filename, Data: data}, nil
}

// VerifyPath is the public verification link for a credential held by owner.
func VerifyPath(credentialID id.CredentialID, owner id.Address) string {
	return "/verify/" + url.PathEscape(credentialID.String()) + "?" + url.Values{"owner": {owner.String()}}.Encode()
}

func (h *Handler) logError(ctx context.Context, msg string, err error, attrs ...any) {
	attrs = append(attrs, "request_id", requestcontext.RequestID(ctx), "error", err)
	h.logger.ErrorContext(ctx, msg, attrs...)
}

var (
	_ Enumerator     = (*aggregator.Aggregator)(nil)
	_ IssuedLister   = (*issuerledger.Ledger)(nil)
	_ IssuedView     = (*issuerledger.View)(nil)
	_ AuditTrail     = (*publisher.Publisher)(nil)
	_ Verifier       = (*verification.Engine)(nil)
	_ Issuer         = (*issuance.Coordinator)(nil)
	_ Revoker        = (*revocation.Coordinator)(nil)
	_ SessionFactory = ledger.Client(nil)
)
