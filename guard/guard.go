// Package guard implements the deferred-cleanup scope guard: a move-only
// value that runs a callable exactly once, on release, unless cancelled.
package guard

import "github.com/ringrt/ringrt/internal/rterr"

// Guard holds a single cleanup callable and a released flag. The zero
// value is a no-op guard. Guard is a value type but must be treated as
// move-only: once handed off (e.g. returned from a function), the
// original owner must not call Release again.
type Guard struct {
	fn        func()
	cancelled bool
	consumed  bool
}

// New wraps fn as a guard. fn must not panic.
func New(fn func()) Guard {
	return Guard{fn: fn}
}

// Release runs the guard's callable exactly once, unless Cancel was
// called first. Calling Release a second time is a programming error and
// panics — a Go value has no destructor to enforce single-use
// implicitly, so Release plays that role and must be called at most once
// per guard, typically via a single `defer g.Release()`.
func (g *Guard) Release() {
	if g.consumed {
		rterr.Fatal("guard.Release", "double release")
	}
	g.consumed = true
	if !g.cancelled && g.fn != nil {
		g.fn()
	}
}

// Cancel suppresses the callable: the eventual Release call becomes a
// no-op instead of invoking fn.
func (g *Guard) Cancel() {
	g.cancelled = true
}

// AnyGuard type-erases any releasable guard behind an interface, so
// heterogeneous guards can be stored together or returned from a common
// factory signature.
type AnyGuard interface {
	Release()
	Cancel()
}

// compile-time check that *Guard satisfies AnyGuard.
var _ AnyGuard = (*Guard)(nil)

// Box adapts a *Guard (or any AnyGuard) into the AnyGuard interface by
// value, matching the source's boxed-impl pattern for Defer<void>.
func Box(g AnyGuard) AnyGuard {
	return g
}
