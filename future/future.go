package future

// Future is the read side of a state cell, retrieved from exactly one
// Promise. Future is move-only by convention, matching Promise.
type Future[T any] struct {
	state *State[T]
}

// IsReady reports whether the cell has settled.
func (f Future[T]) IsReady() bool {
	return f.state.IsReady()
}

// HasFailed reports whether the cell settled with an error.
func (f Future[T]) HasFailed() bool {
	return f.state.HasFailed()
}

// Get reads the cell, destructively draining a value payload. See
// State.Get for exact repeat-read semantics.
func (f Future[T]) Get() (T, error) {
	return f.state.Get()
}

// OnSettle registers cb to run the moment this Future's cell settles,
// invoked synchronously from inside whichever Set/SetError call does the
// settling. Returns true if the cell was already ready, in which case cb
// is not registered and the caller must treat the future as immediately
// awaitable instead. This is the direct-wake primitive the coroutine
// adapter awaits through, rather than polling IsReady every iteration.
func (f Future[T]) OnSettle(cb func()) bool {
	return f.state.addOnSettle(cb)
}

// Result is the value pushed onto a Future's bridged channel: exactly one
// of Value or Err is meaningful, mirroring Get's (T, error) return.
type Result[T any] struct {
	Value T
	Err   error
}

// ToChannel bridges this Future's eventual settlement onto a buffered
// (capacity 1) channel, so a goroutine outside the single reactor thread
// can observe it without participating in the coroutine/await machinery.
// If the Future is already ready, the channel is pre-filled and returned
// immediately; otherwise a short-lived goroutine parks until settlement
// notifies it, then forwards the result and exits.
func (f Future[T]) ToChannel() <-chan Result[T] {
	ch := make(chan Result[T], 1)
	if f.state.IsReady() {
		v, err := f.state.Get()
		ch <- Result[T]{Value: v, Err: err}
		return ch
	}
	wait := make(chan struct{})
	alreadyReady := f.state.addWaiter(wait)
	if alreadyReady {
		v, err := f.state.Get()
		ch <- Result[T]{Value: v, Err: err}
		return ch
	}
	go func() {
		<-wait
		v, err := f.state.Get()
		ch <- Result[T]{Value: v, Err: err}
	}()
	return ch
}
