// Package ioengine bridges the kernel completion-queue ring to promise
// slots: it submits prepared operations, reaps completions, and settles
// the matching promise from each completion's result, blocking only when
// the reactor has no other progress to make.
package ioengine

import (
	"time"

	"github.com/ringrt/ringrt/future"
	"github.com/ringrt/ringrt/guard"
	"github.com/ringrt/ringrt/internal/interfaces"
	"github.com/ringrt/ringrt/internal/rterr"
	"github.com/ringrt/ringrt/internal/uring"
	"github.com/ringrt/ringrt/reactor"
)

type noopObserver struct{}

func (noopObserver) ObserveSubmit(uint32)         {}
func (noopObserver) ObserveComplete(uint64, bool) {}
func (noopObserver) ObserveBlock(uint64)          {}
func (noopObserver) ObserveTaskQueueDepth(int)    {}
func (noopObserver) ObserveRoutineCount(int)      {}

type noopLogger struct{}

func (noopLogger) Printf(string, ...interface{}) {}
func (noopLogger) Debugf(string, ...interface{}) {}

var active *Engine

// Engine is the only component that touches the kernel completion-queue
// interface. Every submission is matched to a promise kept in a side
// table keyed by a sequential token written into the submission's
// user-data word — Go cannot placement-construct a Promise inside a
// foreign 8-byte region the way the source language does, so a table
// index stands in for it, exactly the substitution spec.md's own design
// notes permit.
type Engine struct {
	ring     uring.Ring
	reactor  *reactor.Reactor
	observer interfaces.Observer
	logger   interfaces.Logger

	pending  int
	inFlight int

	nextToken uint64
	promises  map[uint64]*future.Promise[int32]
	submitAt  map[uint64]time.Time

	pollGuard guard.Guard
}

// Option configures Engine construction.
type Option func(*Engine)

// WithObserver supplies a metrics sink; the default is a no-op.
func WithObserver(o interfaces.Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithLogger supplies a log sink; the default is a no-op.
func WithLogger(l interfaces.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New constructs the process's single Engine, bound to r, and registers
// its poll routine (submitPending then completeReady, once per reactor
// iteration). It is fatal to construct a second Engine.
func New(r *reactor.Reactor, ring uring.Ring, opts ...Option) *Engine {
	if active != nil {
		rterr.Fatal("ioengine.New", "an engine instance already exists")
	}
	e := &Engine{
		ring:     ring,
		reactor:  r,
		observer: noopObserver{},
		logger:   noopLogger{},
		promises: make(map[uint64]*future.Promise[int32]),
		submitAt: make(map[uint64]time.Time),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.pollGuard = r.AddRoutine(reactor.NewRoutine(func() {
		e.submitPending()
		e.completeReady()
	}))
	active = e
	return e
}

// Instance returns the process's active Engine, fatal if none exists.
func Instance() *Engine {
	if active == nil {
		rterr.Fatal("ioengine.Instance", "no active engine")
	}
	return active
}

// Shutdown deregisters the poll routine and tears down the ring. Fatal if
// submissions are still pending (not yet pushed to the kernel).
func (e *Engine) Shutdown() error {
	if e.pending != 0 {
		rterr.Fatal("ioengine.Shutdown", "pending submissions outstanding")
	}
	e.pollGuard.Release()
	if active == e {
		active = nil
	}
	return e.ring.Close()
}

// prepare reserves a submission slot, lets configure fill it in, and
// returns the Future for the eventual completion's int32 result.
func (e *Engine) prepare(configure func(uring.SQE)) future.Future[int32] {
	sqe, err := e.ring.GetSQE()
	if err != nil {
		rterr.Fatal("ioengine.prepare", "no sqe available in io_uring")
	}
	configure(sqe)

	token := e.nextToken
	e.nextToken++
	sqe.SetUserData(token)

	var p future.Promise[int32]
	f, _ := p.GetFuture()
	e.promises[token] = &p
	e.submitAt[token] = time.Now()
	e.pending++
	return f
}

// submitPending loops while pending > 0, submitting and moving accepted
// entries from pending to in-flight. A negative submit result is logged
// and the loop breaks; the next poll iteration retries.
func (e *Engine) submitPending() {
	for e.pending > 0 {
		n, err := e.ring.Submit()
		if err != nil {
			e.logger.Printf("io_uring submit failed: %v", err)
			return
		}
		e.pending -= int(n)
		e.inFlight += int(n)
		e.observer.ObserveSubmit(n)
	}
}

// completeReady implements the single block rule: it blocks, at most
// once, iff the reactor made no progress last iteration and at least one
// operation is in flight. It then drains every ready completion
// non-blockingly, settling the matching promise from each.
func (e *Engine) completeReady() {
	if !e.reactor.HasProgress() && e.inFlight > 0 {
		start := time.Now()
		if _, err := e.ring.SubmitAndWait(1); err != nil {
			e.logger.Printf("io_uring submit_and_wait failed: %v", err)
		}
		e.observer.ObserveBlock(uint64(time.Since(start).Nanoseconds()))
	}

	for {
		cqe, ok := e.ring.PeekCQE()
		if !ok {
			break
		}
		e.settle(cqe)
		e.ring.CQESeen()
		e.inFlight--
	}
}

func (e *Engine) settle(cqe uring.CQE) {
	p, found := e.promises[cqe.UserData]
	if !found {
		e.logger.Printf("completion for unknown token %d", cqe.UserData)
		return
	}
	delete(e.promises, cqe.UserData)

	var latency uint64
	if at, ok := e.submitAt[cqe.UserData]; ok {
		latency = uint64(time.Since(at).Nanoseconds())
		delete(e.submitAt, cqe.UserData)
	}

	_ = p.Set(cqe.Res)
	e.observer.ObserveComplete(latency, cqe.Res >= 0)
}
