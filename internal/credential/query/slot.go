// Package query holds caller-boundary query slots with last-request-wins semantics.
//
// Read operations are pure functions of their inputs and the ledger state at
// call time. One caller showing results (a page, a view) keeps one Slot per
// logical query; starting a new run cancels that caller's previous one, and a
// run that finishes after a newer one started never overwrites the newer
// result. Slots are never shared between callers.
package query

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is returned by a run whose result was discarded because a
// newer run started on the same slot.
var ErrSuperseded = errors.New("query: superseded by a newer request")

// Slot holds the latest completed result of a query.
type Slot[T any] struct {
	mu     sync.Mutex
	runs   uint64 // caller runs started
	seq    uint64 // runs and refreshes started
	stored uint64 // seq of the stored value
	cancel context.CancelFunc
	value  T
	loaded bool
}

// Run cancels any in-flight run on the slot, then runs fn. A run overtaken by
// a newer Run returns ErrSuperseded. A refresh that started after this run and
// already stored its result wins; Run then returns that fresher value.
func (s *Slot[T]) Run(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.runs++
	run := s.runs
	s.seq++
	seq := s.seq
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	v, err := fn(runCtx)
	cancel()

	var zero T
	s.mu.Lock()
	defer s.mu.Unlock()
	if run != s.runs {
		return zero, ErrSuperseded
	}
	s.cancel = nil
	if err != nil {
		return zero, err
	}
	if !s.store(seq, v) {
		return s.value, nil
	}
	return v, nil
}

// Refresh re-runs fn without cancelling an in-flight Run and without failing
// it. The result is stored unless something that started later has already
// stored one.
func (s *Slot[T]) Refresh(ctx context.Context, fn func(context.Context) (T, error)) error {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	v, err := fn(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store(seq, v)
	return nil
}

// store keeps v if it is at least as new as the stored value. Caller holds mu.
func (s *Slot[T]) store(seq uint64, v T) bool {
	if s.loaded && seq < s.stored {
		return false
	}
	s.value = v
	s.stored = seq
	s.loaded = true
	return true
}

// Value returns the last stored result and whether any run has completed.
func (s *Slot[T]) Value() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.loaded
}

// Group keys independent slots, e.g. one per issuer.
type Group[K comparable, T any] struct {
	mu    sync.Mutex
	slots map[K]*Slot[T]
}

// Slot returns the slot for key, creating it on first use.
func (g *Group[K, T]) Slot(key K) *Slot[T] {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.slots == nil {
		g.slots = make(map[K]*Slot[T])
	}
	s, ok := g.slots[key]
	if !ok {
		s = &Slot[T]{}
		g.slots[key] = s
	}
	return s
}

// Peek returns the slot for key without creating it.
func (g *Group[K, T]) Peek(key K) (*Slot[T], bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.slots[key]
	return s, ok
}
