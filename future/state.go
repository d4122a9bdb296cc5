// Package future implements the state cell and its promise/future views:
// a reference-counted, at-most-once-settled one-shot slot carrying either
// a value, an error, or nothing.
package future

import "github.com/ringrt/ringrt/internal/rterr"

type tag uint8

const (
	tagEmpty tag = iota
	tagValue
	tagError
)

// State is the cell shared between a Promise and the Future(s) retrieved
// from it. Ref-count increments are unsynchronized, matching this
// runtime's single-threaded execution model — every mutation happens on
// whichever goroutine currently holds the baton (the reactor goroutine or
// the one coroutine goroutine it just resumed), never concurrently.
type State[T any] struct {
	tag      tag
	value    T
	err      error
	refCount uint32
	waiters  []chan struct{}
	onSettle []func()
}

func newEmptyState[T any]() *State[T] {
	return &State[T]{tag: tagEmpty}
}

// IsReady reports whether the cell has transitioned out of Empty.
func (s *State[T]) IsReady() bool {
	return s.tag != tagEmpty
}

// HasFailed reports whether the cell settled with an error.
func (s *State[T]) HasFailed() bool {
	return s.tag == tagError
}

// Get reads the cell. Reading Empty fails with rterr.ErrNotReady. Reading
// a value drains the payload to its zero value so a second read observes
// the drained default instead of re-observing the same value; reading an
// error re-returns the same error every time, since errors are immutable
// values in Go and there is nothing to drain.
func (s *State[T]) Get() (T, error) {
	switch s.tag {
	case tagEmpty:
		var zero T
		return zero, rterr.ErrNotReady
	case tagValue:
		v := s.value
		var zero T
		s.value = zero
		return v, nil
	case tagError:
		var zero T
		return zero, s.err
	default:
		rterr.Fatal("state.get", "unknown tag")
		panic("unreachable")
	}
}

// Set transitions the cell Empty -> Value. Fails with
// rterr.ErrAlreadySatisfied if the cell already settled.
func (s *State[T]) Set(value T) error {
	if s.tag != tagEmpty {
		return rterr.ErrAlreadySatisfied
	}
	s.value = value
	s.tag = tagValue
	s.notify()
	return nil
}

// SetError transitions the cell Empty -> Error. Fails with
// rterr.ErrAlreadySatisfied if the cell already settled.
func (s *State[T]) SetError(err error) error {
	if err == nil {
		return rterr.NewInvalidArgument("state.set_error", "error is nil")
	}
	if s.tag != tagEmpty {
		return rterr.ErrAlreadySatisfied
	}
	s.err = err
	s.tag = tagError
	s.notify()
	return nil
}

func (s *State[T]) addRef() {
	s.refCount++
}

// release drops one reference, panicking on underflow (§7 kind 4:
// ref-count underflow).
func (s *State[T]) release() uint32 {
	if s.refCount == 0 {
		rterr.Fatal("state.release", "ref count underflow")
	}
	s.refCount--
	return s.refCount
}

// RefCount reports the number of live Promise/Future handles.
func (s *State[T]) RefCount() uint32 {
	return s.refCount
}

func (s *State[T]) notify() {
	for _, w := range s.waiters {
		close(w)
	}
	s.waiters = nil
	cbs := s.onSettle
	s.onSettle = nil
	for _, cb := range cbs {
		cb()
	}
}

// addWaiter registers a channel to be closed the next time the cell
// settles, used by Future.ToChannel to bridge settlement to a goroutine
// outside the reactor thread. Returns true if the cell was already ready
// (in which case the channel is not registered and never closed).
func (s *State[T]) addWaiter(w chan struct{}) bool {
	if s.IsReady() {
		return true
	}
	s.waiters = append(s.waiters, w)
	return false
}

// addOnSettle registers cb to run synchronously from inside the Set/
// SetError call that settles the cell — the "direct wake" path the
// coroutine adapter awaits through, rather than polling IsReady every
// reactor iteration. Returns true if the cell was already ready (in
// which case cb is not registered and never runs).
func (s *State[T]) addOnSettle(cb func()) bool {
	if s.IsReady() {
		return true
	}
	s.onSettle = append(s.onSettle, cb)
	return false
}
