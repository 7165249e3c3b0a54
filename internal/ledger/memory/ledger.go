// Package memory provides an in-process credential ledger for development and tests.
//
// It mirrors an enumerable non-fungible record registry: each owner holds an
// ordered set of ids, revocation burns the record and compacts the owner's set
// by moving the last id into the freed slot, and every read of a burned id
// fails with ledger.ErrorNotFound. Issuance events are append-only and survive
// revocation.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"credledger/internal/ledger"
	id "credledger/pkg/domain"
)

// ReadFault lets tests inject failures into reads. op is the ledger operation
// name, key the credential id or address being read. A non-nil return is
// surfaced to the caller instead of the real answer.
type ReadFault func(op, key string) error

type record struct {
	owner   id.Address
	issuer  id.Address
	pointer string
	title   string
}

// Ledger is safe for concurrent use.
type Ledger struct {
	mu      sync.RWMutex
	nextID  uint64
	txSeq   uint64
	records map[id.CredentialID]*record
	owned   map[id.Address][]id.CredentialID // normalized owner -> positional set
	events  []ledger.IssuanceEvent
	issuers map[id.Address]string // normalized issuer -> display name
	admins  map[id.Address]struct{}

	confirmDelay time.Duration
	fault        ReadFault
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithConfirmationDelay makes every write handle wait d before confirming.
func WithConfirmationDelay(d time.Duration) Option {
	return func(l *Ledger) {
		l.confirmDelay = d
	}
}

// WithReadFault installs a read fault hook.
func WithReadFault(f ReadFault) Option {
	return func(l *Ledger) {
		l.fault = f
	}
}

// WithAdmin grants admin rights (revoke anything) to addr.
func WithAdmin(addr id.Address) Option {
	return func(l *Ledger) {
		l.admins[addr.Normalized()] = struct{}{}
	}
}

// New creates an empty ledger. Credential ids start at 1.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		records: make(map[id.CredentialID]*record),
		owned:   make(map[id.Address][]id.CredentialID),
		issuers: make(map[id.Address]string),
		admins:  make(map[id.Address]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetReadFault replaces the read fault hook; nil clears it.
func (l *Ledger) SetReadFault(f ReadFault) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fault = f
}

// RegisterIssuer grants the issuer capability and records a display name.
func (l *Ledger) RegisterIssuer(addr id.Address, displayName string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.issuers[addr.Normalized()] = displayName
}

// RemoveIssuer withdraws the issuer capability. Credentials already issued are untouched.
func (l *Ledger) RemoveIssuer(addr id.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.issuers, addr.Normalized())
}

func (l *Ledger) injected(op, key string) error {
	if l.fault == nil {
		return nil
	}
	return l.fault(op, key)
}

func notFound(op string, credentialID id.CredentialID) error {
	return ledger.NewError(ledger.ErrorNotFound, op, "credential "+credentialID.String()+" does not exist", nil)
}

func (l *Ledger) Count(_ context.Context, owner id.Address) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if err := l.injected("balanceOf", owner.Normalized().String()); err != nil {
		return 0, err
	}
	return uint64(len(l.owned[owner.Normalized()])), nil
}

func (l *Ledger) IDAt(_ context.Context, owner id.Address, index uint64) (id.CredentialID, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if err := l.injected("tokenOfOwnerByIndex", strconv.FormatUint(index, 10)); err != nil {
		return "", err
	}
	set := l.owned[owner.Normalized()]
	if index >= uint64(len(set)) {
		return "", ledger.NewError(ledger.ErrorNotFound, "tokenOfOwnerByIndex",
			fmt.Sprintf("owner index %d out of bounds", index), nil)
	}
	return set[index], nil
}

// lookup reads a live record under the read lock.
func (l *Ledger) lookup(op string, credentialID id.CredentialID) (*record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if err := l.injected(op, credentialID.String()); err != nil {
		return nil, err
	}
	rec, ok := l.records[credentialID]
	if !ok {
		return nil, notFound(op, credentialID)
	}
	return rec, nil
}

func (l *Ledger) DocumentPointerOf(_ context.Context, credentialID id.CredentialID) (string, error) {
	rec, err := l.lookup("tokenURI", credentialID)
	if err != nil {
		return "", err
	}
	return rec.pointer, nil
}

func (l *Ledger) IssuerOf(_ context.Context, credentialID id.CredentialID) (id.Address, error) {
	rec, err := l.lookup("credentialIssuer", credentialID)
	if err != nil {
		return "", err
	}
	return rec.issuer, nil
}

func (l *Ledger) TitleOf(_ context.Context, credentialID id.CredentialID) (string, error) {
	rec, err := l.lookup("certificateTitle", credentialID)
	if err != nil {
		return "", err
	}
	return rec.title, nil
}

func (l *Ledger) OwnerOf(_ context.Context, credentialID id.CredentialID) (id.Address, error) {
	rec, err := l.lookup("ownerOf", credentialID)
	if err != nil {
		return "", err
	}
	return rec.owner, nil
}

func (l *Ledger) DisplayNameOf(_ context.Context, issuer id.Address) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if err := l.injected("universityNames", issuer.Normalized().String()); err != nil {
		return "", err
	}
	return l.issuers[issuer.Normalized()], nil
}

func (l *Ledger) IsIssuer(_ context.Context, addr id.Address) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if err := l.injected("isIssuer", addr.Normalized().String()); err != nil {
		return false, err
	}
	_, ok := l.issuers[addr.Normalized()]
	return ok, nil
}

func (l *Ledger) IssuanceEvents(_ context.Context) ([]ledger.IssuanceEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if err := l.injected("queryFilter", ""); err != nil {
		return nil, err
	}
	out := make([]ledger.IssuanceEvent, len(l.events))
	copy(out, l.events)
	return out, nil
}

// Session binds a write session to caller.
func (l *Ledger) Session(caller id.Address) (ledger.Session, error) {
	if caller.IsNil() {
		return nil, ledger.NewError(ledger.ErrorUnauthorized, "session", "no caller identity", nil)
	}
	return &session{ledger: l, caller: caller}, nil
}

// mint applies an issuance. Caller holds mu.
func (l *Ledger) mint(issuer id.Address, req ledger.MintRequest) ledger.IssuanceEvent {
	l.nextID++
	credentialID := id.CredentialID(strconv.FormatUint(l.nextID, 10))
	l.records[credentialID] = &record{
		owner:   req.Student,
		issuer:  issuer,
		pointer: req.DocumentPointer,
		title:   req.Title,
	}
	key := req.Student.Normalized()
	l.owned[key] = append(l.owned[key], credentialID)

	event := ledger.IssuanceEvent{
		Issuer:   issuer,
		ID:       credentialID,
		Student:  req.Student,
		Sequence: uint64(len(l.events)) + 1,
	}
	l.events = append(l.events, event)
	return event
}

// burn removes a record and compacts the owner's set by moving the last id
// into the freed slot. Caller holds mu.
func (l *Ledger) burn(credentialID id.CredentialID) {
	rec := l.records[credentialID]
	delete(l.records, credentialID)

	key := rec.owner.Normalized()
	set := l.owned[key]
	for i, v := range set {
		if v != credentialID {
			continue
		}
		last := len(set) - 1
		set[i] = set[last]
		set = set[:last]
		break
	}
	if len(set) == 0 {
		delete(l.owned, key)
		return
	}
	l.owned[key] = set
}

func (l *Ledger) nextTxHash() string {
	l.txSeq++
	return fmt.Sprintf("0x%064x", l.txSeq)
}

type session struct {
	ledger *Ledger
	caller id.Address
}

func (s *session) Address() id.Address {
	return s.caller
}

func (s *session) Issue(_ context.Context, req ledger.MintRequest) (ledger.WriteHandle, error) {
	l := s.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.issuers[s.caller.Normalized()]; !ok {
		return nil, ledger.NewError(ledger.ErrorUnauthorized, "issueCredential", "caller is not an issuer", nil)
	}
	if req.Student.IsNil() {
		return nil, ledger.NewError(ledger.ErrorReverted, "issueCredential", "mint to the zero address", nil)
	}

	event := l.mint(s.caller, req)
	txHash := l.nextTxHash()
	return &handle{
		delay: l.confirmDelay,
		receipt: ledger.Receipt{
			TxHash: txHash,
			Events: []ledger.IssuanceEvent{event},
		},
	}, nil
}

func (s *session) Revoke(_ context.Context, credentialID id.CredentialID) (ledger.WriteHandle, error) {
	l := s.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[credentialID]
	if !ok {
		return nil, ledger.NewError(ledger.ErrorReverted, "revoke", "credential does not exist", nil)
	}
	_, admin := l.admins[s.caller.Normalized()]
	if !admin && !rec.issuer.Equal(s.caller) {
		return nil, ledger.NewError(ledger.ErrorUnauthorized, "revoke", "caller is not the issuer or an admin", nil)
	}

	l.burn(credentialID)
	return &handle{
		delay:   l.confirmDelay,
		receipt: ledger.Receipt{TxHash: l.nextTxHash()},
	}, nil
}

type handle struct {
	delay   time.Duration
	receipt ledger.Receipt
}

func (h *handle) TxHash() string {
	return h.receipt.TxHash
}

func (h *handle) Wait(ctx context.Context) (*ledger.Receipt, error) {
	if h.delay > 0 {
		timer := time.NewTimer(h.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ledger.NewError(ledger.ErrorTimeout, "wait", "confirmation not observed", ctx.Err())
		case <-timer.C:
		}
	}
	receipt := h.receipt
	return &receipt, nil
}

var (
	_ ledger.Client = (*Ledger)(nil)
	_ ledger.Reader = (*Ledger)(nil)
)
