package storage

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned when a pointer has no stored content.
var ErrNotFound = errors.New("storage: content not found")

type object struct {
	data        []byte
	contentType string
}

// MemoryStore is an in-memory ContentStore for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	scheme  string
	objects map[string]object
}

// NewMemoryStore creates an empty store issuing pointers under scheme.
func NewMemoryStore(scheme string) *MemoryStore {
	return &MemoryStore{scheme: scheme, objects: make(map[string]object)}
}

// Pin stores a copy of the document bytes under their content key.
func (s *MemoryStore) Pin(_ context.Context, doc Document) (Pointer, error) {
	key := ContentKey(doc.Data)
	data := make([]byte, len(doc.Data))
	copy(data, doc.Data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = object{data: data, contentType: doc.ContentType}
	return NewPointer(s.scheme, key), nil
}

// Get returns the stored bytes and content type behind pointer.
func (s *MemoryStore) Get(_ context.Context, pointer Pointer) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[pointer.Key()]
	if !ok {
		return nil, "", ErrNotFound
	}
	return obj.data, obj.contentType, nil
}

// Len reports how many distinct documents are pinned.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
