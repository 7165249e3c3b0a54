// Package commands implements the credctl subcommands against the credledger HTTP API.
package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"credledger/internal/credential/handler"
	"credledger/pkg/platform/httputil"
)

// DefaultTimeout leaves room for the server's write confirmation wait.
const DefaultTimeout = 2 * time.Minute

// APIError is an error response from the server.
type APIError struct {
	Status      int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("%s (HTTP %d)", e.Code, e.Status)
	}
	return fmt.Sprintf("%s: %s (HTTP %d)", e.Code, e.Description, e.Status)
}

// Client calls the credledger HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

func (c *Client) ListOwned(ctx context.Context, owner string) (*handler.ListOwnedResponse, error) {
	var out handler.ListOwnedResponse
	if err := c.do(ctx, http.MethodGet, "/owners/"+url.PathEscape(owner)+"/credentials", nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListIssued(ctx context.Context, issuer, student string) (*handler.ListIssuedResponse, error) {
	path := "/issuers/" + url.PathEscape(issuer) + "/credentials"
	if student != "" {
		path += "?" + url.Values{"student": {student}}.Encode()
	}
	var out handler.ListIssuedResponse
	if err := c.do(ctx, http.MethodGet, path, nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Verify(ctx context.Context, credentialID, owner, issuer string) (*handler.VerifyResponse, error) {
	q := url.Values{}
	if owner != "" {
		q.Set("owner", owner)
	}
	if issuer != "" {
		q.Set("issuer", issuer)
	}
	path := "/verify/" + url.PathEscape(credentialID)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out handler.VerifyResponse
	if err := c.do(ctx, http.MethodGet, path, nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Issue uploads document and mints a credential for student.
func (c *Client) Issue(ctx context.Context, student, title, filename string, document io.Reader) (*handler.IssueResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("student", student); err != nil {
		return nil, err
	}
	if err := mw.WriteField("title", title); err != nil {
		return nil, err
	}
	part, err := mw.CreateFormFile("document", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, document); err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var out handler.IssueResponse
	if err := c.do(ctx, http.MethodPost, "/credentials", &body, mw.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Revoke(ctx context.Context, credentialID string) (*handler.RevokeResponse, error) {
	var out handler.RevokeResponse
	if err := c.do(ctx, http.MethodDelete, "/credentials/"+url.PathEscape(credentialID), nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History returns the recorded lifecycle events of one credential. Needs a session token.
func (c *Client) History(ctx context.Context, credentialID string) (*handler.HistoryResponse, error) {
	var out handler.HistoryResponse
	if err := c.do(ctx, http.MethodGet, "/credentials/"+url.PathEscape(credentialID)+"/history", nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr httputil.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &APIError{Status: resp.StatusCode, Code: apiErr.Error, Description: apiErr.ErrorDescription}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
