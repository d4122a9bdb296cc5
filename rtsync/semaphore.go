// Package rtsync provides single-threaded synchronization and timing
// primitives built on future, reactor, ioengine and guard: a FIFO
// counting semaphore, an absolute-deadline sleep, and a signalfd-backed
// signal dispatcher.
package rtsync

import "github.com/ringrt/ringrt/future"

// Semaphore is a single-threaded FIFO counting semaphore. Wait returns a
// Future of a permit guard; releasing the guard returns the permit,
// either to the count or directly to the next waiter in line, mirroring
// the source's signal_later/Defer chaining instead of a condition
// variable.
type Semaphore struct {
	count   int
	waiters []*future.Promise[AnyGuard]
}

// AnyGuard is the minimal guard surface a permit is handed back as: a
// single explicit Release call. Defined locally (rather than importing
// guard.Guard's concrete type) so Semaphore can hand out a permit object
// whose Release implementation is the semaphore's own signal_later
// closure.
type AnyGuard interface {
	Release()
}

type permit struct {
	s        *Semaphore
	released bool
}

func (p *permit) Release() {
	if p.released {
		return
	}
	p.released = true
	p.s.signalNext()
}

// NewSemaphore constructs a semaphore starting with count available
// permits.
func NewSemaphore(count int) *Semaphore {
	return &Semaphore{count: count}
}

// Count reports the number of permits currently available to a
// non-blocking Wait; it does not reflect queued waiters.
func (s *Semaphore) Count() int {
	return s.count
}

// Wait returns a Future that settles immediately with a permit if one is
// available, or once a prior holder releases one back to this waiter
// specifically, preserving strict FIFO order.
func (s *Semaphore) Wait() future.Future[AnyGuard] {
	if s.count > 0 {
		s.count--
		return future.MakeReadyFuture[AnyGuard](&permit{s: s})
	}
	var p future.Promise[AnyGuard]
	f, _ := p.GetFuture()
	s.waiters = append(s.waiters, &p)
	return f
}

// signalNext hands the released permit straight to the oldest waiter, or
// back to the count if the queue is empty — the same two-branch logic as
// the source's signal_later, translated out of its destructor-driven
// closure into an explicit Release call.
func (s *Semaphore) signalNext() {
	if len(s.waiters) == 0 {
		s.count++
		return
	}
	next := s.waiters[0]
	s.waiters = s.waiters[1:]
	_ = next.Set(&permit{s: s})
}
