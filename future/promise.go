package future

import "github.com/ringrt/ringrt/internal/rterr"

// Promise is the write side of a state cell. The zero value is a usable
// empty promise; its cell is allocated lazily on first use, matching the
// source's "created empty, state allocated by whichever handle needs it
// first" lifecycle.
//
// Promise is move-only by convention: Go has no compiler-enforced move
// semantics, so callers must not retain a Promise after assigning it
// elsewhere or passing it by value into another owner.
type Promise[T any] struct {
	state     *State[T]
	discarded bool
}

func (p *Promise[T]) ensureState() *State[T] {
	if p.state == nil {
		p.state = newEmptyState[T]()
		p.state.addRef()
	}
	return p.state
}

// GetFuture returns the Future view over this promise's cell, allocating
// the cell if this is the first call. Fails with rterr.ErrAlreadyRetrieved
// if a Future retrieved earlier is still live.
func (p *Promise[T]) GetFuture() (Future[T], error) {
	s := p.ensureState()
	if s.RefCount() > 1 {
		return Future[T]{}, rterr.ErrAlreadyRetrieved
	}
	s.addRef()
	return Future[T]{state: s}, nil
}

// Set settles the cell with value. Fails with rterr.ErrAlreadySatisfied if
// already settled.
func (p *Promise[T]) Set(value T) error {
	return p.ensureState().Set(value)
}

// SetError settles the cell with err. Fails with rterr.ErrAlreadySatisfied
// if already settled.
func (p *Promise[T]) SetError(err error) error {
	return p.ensureState().SetError(err)
}

// Discard releases the promise's hold on its cell, settling it with
// rterr.ErrBrokenPromise first if a Future is still observing an unsettled
// cell. Go has no destructor to run this automatically on scope exit, so a
// Promise that might be abandoned without Set/SetError must have Discard
// called explicitly — typically via `defer p.Discard()` right after
// construction, the same forced-explicit-release discipline this runtime
// already applies to guard.Guard and to open file/socket descriptors.
// Calling Discard more than once is a no-op.
func (p *Promise[T]) Discard() {
	if p.discarded {
		return
	}
	p.discarded = true
	if p.state == nil {
		return
	}
	if p.state.RefCount() > 1 && !p.state.IsReady() {
		_ = p.state.SetError(rterr.ErrBrokenPromise)
	}
	p.state.release()
}

// MakeReadyFuture returns a Future whose cell is already settled with
// value.
func MakeReadyFuture[T any](value T) Future[T] {
	s := newEmptyState[T]()
	_ = s.Set(value)
	s.addRef()
	return Future[T]{state: s}
}

// MakeExceptionFuture returns a Future whose cell is already settled with
// err.
func MakeExceptionFuture[T any](err error) Future[T] {
	s := newEmptyState[T]()
	_ = s.SetError(err)
	s.addRef()
	return Future[T]{state: s}
}
