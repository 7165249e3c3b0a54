package models

import (
	"strings"

	"credledger/internal/ledger"
	"credledger/internal/storage"
	id "credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
)

// UnnamedIssuer is shown when an issuer has no registered display name.
const UnnamedIssuer = "(unnamed)"

// Credential is a point-in-time snapshot of a ledger record as seen by one owner.
// Values are never mutated after construction.
type Credential struct {
	ID                id.CredentialID
	Owner             id.Address
	Issuer            id.Address
	Title             string
	DocumentPointer   string
	IssuerDisplayName string
}

// DisplayIssuer returns the issuer display name, or UnnamedIssuer when empty.
func (c Credential) DisplayIssuer() string {
	return DisplayName(c.IssuerDisplayName)
}

// DisplayName applies the unnamed-issuer fallback.
func DisplayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return UnnamedIssuer
	}
	return name
}

// Row is one credential in an issuer's issuance history that is still live.
type Row struct {
	ID      id.CredentialID
	Student id.Address
	Title   string
}

// Verdict is the outcome of verifying a credential.
type Verdict string

const (
	VerdictValid            Verdict = "VALID"
	VerdictMismatch         Verdict = "MISMATCH"
	VerdictInvalidOrRevoked Verdict = "INVALID_OR_REVOKED"
)

// VerifyResult reports a verification. Owner, Issuer and Title are set only
// when all reads succeeded.
type VerifyResult struct {
	Verdict           Verdict
	CredentialID      id.CredentialID
	Owner             id.Address
	Issuer            id.Address
	Title             string
	IssuerDisplayName string
	OwnerMatch        bool
	IssuerMatch       bool

	// Cause is the ledger outcome of the failed read behind an
	// INVALID_OR_REVOKED verdict. Diagnostics only; the verdict does not change.
	Cause ledger.Outcome
}

// IssueRequest captures the data required to issue a credential.
type IssueRequest struct {
	Student  string
	Title    string
	Document storage.Document
}

// IssueResult describes a confirmed issuance.
type IssueResult struct {
	CredentialID    id.CredentialID
	Issuer          id.Address
	Student         id.Address
	Title           string
	DocumentPointer storage.Pointer
	TxHash          string
}

// RevokeResult describes a confirmed revocation.
type RevokeResult struct {
	CredentialID id.CredentialID
	RevokedBy    id.Address
	// Issuer minted the credential. It differs from RevokedBy when an admin revokes.
	Issuer       id.Address
	TxHash       string
}

// ParseTitle validates a credential title.
func ParseTitle(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "title is required")
	}
	if len(s) > MaxTitleLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "title is too long")
	}
	return s, nil
}

// MaxTitleLength bounds titles recorded on the ledger.
const MaxTitleLength = 256
