// Package storage pins credential documents to content-addressed storage.
//
// A pointer has the form "<scheme>://<key>" where key is the hex SHA-256 of the
// document bytes, so pinning the same document twice yields the same pointer.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// DefaultScheme is used when no pointer scheme is configured.
const DefaultScheme = "ipfs"

// Document is an uploaded credential document.
type Document struct {
	Name string
	Data []byte

	// ContentType is the sniffed type; callers set it through DocumentPolicy.Check.
	ContentType string
}

// Pointer is the immutable locator recorded on the ledger.
type Pointer string

func (p Pointer) String() string { return string(p) }

// ContentStore pins document bytes and returns a stable pointer.
type ContentStore interface {
	Pin(ctx context.Context, doc Document) (Pointer, error)
}

// ContentKey returns the content address of data.
func ContentKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// NewPointer builds a pointer for key under scheme.
func NewPointer(scheme, key string) Pointer {
	if scheme == "" {
		scheme = DefaultScheme
	}
	return Pointer(scheme + "://" + key)
}

// Key returns the content key of a pointer, or "" if p is not a scheme pointer.
func (p Pointer) Key() string {
	_, key, ok := strings.Cut(string(p), "://")
	if !ok {
		return ""
	}
	return key
}

// GatewayURL rewrites a pointer into a browsable link under gateway.
// Pointers that already are http(s) links, or an empty gateway, pass through unchanged.
func GatewayURL(gateway string, pointer string) string {
	if gateway == "" || strings.HasPrefix(pointer, "http://") || strings.HasPrefix(pointer, "https://") {
		return pointer
	}
	key := Pointer(pointer).Key()
	if key == "" {
		return pointer
	}
	return strings.TrimRight(gateway, "/") + "/" + key
}
