// Package ledger defines the narrow contract the credential core consumes from
// the external, append-only credential ledger.
//
// The ledger is the single source of truth. The core holds no durable state of
// its own: every read is a point query or a scan of the immutable issuance
// event log, and every read may fail independently. Revocation is observable
// only as the permanent failure of reads for an id (ErrorNotFound).
//
// Implementations:
//   - memory.Ledger: in-process ledger for development and tests.
//   - Resilient: decorator adding retry, circuit breaking and rate limiting to any Reader.
package ledger

import (
	"context"
	"errors"

	id "credledger/pkg/domain"
)

// IssuanceEvent is one entry of the append-only issuance log.
type IssuanceEvent struct {
	Issuer   id.Address
	ID       id.CredentialID
	Student  id.Address
	Sequence uint64 // position in the log, strictly increasing
}

// Reader exposes the point reads and the event log scan.
// All methods may fail; NotFound-category errors mean the record is gone.
type Reader interface {
	// Count returns how many credentials are currently attributed to owner.
	Count(ctx context.Context, owner id.Address) (uint64, error)

	// IDAt resolves a positional index into owner's current credential set.
	// Positions are unstable: a concurrent revocation can move ids between
	// indices or push index out of range (ErrorNotFound).
	IDAt(ctx context.Context, owner id.Address, index uint64) (id.CredentialID, error)

	DocumentPointerOf(ctx context.Context, credentialID id.CredentialID) (string, error)
	IssuerOf(ctx context.Context, credentialID id.CredentialID) (id.Address, error)
	TitleOf(ctx context.Context, credentialID id.CredentialID) (string, error)
	OwnerOf(ctx context.Context, credentialID id.CredentialID) (id.Address, error)

	// DisplayNameOf returns the registered display name of an issuer, possibly "".
	DisplayNameOf(ctx context.Context, issuer id.Address) (string, error)

	// IsIssuer reports whether addr holds the issuer capability.
	IsIssuer(ctx context.Context, addr id.Address) (bool, error)

	// IssuanceEvents returns the full issuance log in append order.
	IssuanceEvents(ctx context.Context) ([]IssuanceEvent, error)
}

// OwnedIDLister is implemented by ledgers that can snapshot an owner's id set
// in one call, avoiding positional enumeration altogether.
type OwnedIDLister interface {
	OwnedIDs(ctx context.Context, owner id.Address) ([]id.CredentialID, error)
}

// ErrNotSupported is returned by decorators when the wrapped ledger lacks an
// optional capability.
var ErrNotSupported = errors.New("ledger: operation not supported")

// MintRequest names the recipient and the content backing a new credential.
type MintRequest struct {
	Student         id.Address
	DocumentPointer string
	Title           string
}

// Writer submits writes on behalf of one signing identity.
// A nil error only means the write was accepted for processing; callers must
// Wait on the handle for confirmation.
type Writer interface {
	Issue(ctx context.Context, req MintRequest) (WriteHandle, error)
	Revoke(ctx context.Context, credentialID id.CredentialID) (WriteHandle, error)
}

// WriteHandle tracks a submitted write until the ledger confirms it.
type WriteHandle interface {
	TxHash() string

	// Wait blocks until the write is confirmed, rejected, or ctx is done.
	// A rejected write returns a receipt with Reverted set and a nil error.
	Wait(ctx context.Context) (*Receipt, error)
}

// Receipt is the confirmation outcome of a write.
type Receipt struct {
	TxHash   string
	Reverted bool
	Reason   string          // ledger-provided revert reason, may be empty
	Events   []IssuanceEvent // issuance events emitted by the write
}

// Session is an authenticated ledger session: a caller identity plus the
// capability to sign writes as that identity.
type Session interface {
	Address() id.Address
	Writer
}

// Client is a full ledger connection.
type Client interface {
	Reader
	// Session binds a Writer to caller. Signing is the connection's concern.
	Session(caller id.Address) (Session, error)
}
