// Package ringrt is the public entry point: it wires together the state
// cell, reactor, I/O engine and coroutine adapter behind a single
// constructor, the way the teacher's root ublk package wires a Device
// together from its controller and queue runners.
package ringrt

import (
	"fmt"

	"github.com/ringrt/ringrt/async"
	"github.com/ringrt/ringrt/future"
	"github.com/ringrt/ringrt/internal/interfaces"
	"github.com/ringrt/ringrt/internal/logging"
	"github.com/ringrt/ringrt/internal/metrics"
	"github.com/ringrt/ringrt/internal/uring"
	"github.com/ringrt/ringrt/ioengine"
	"github.com/ringrt/ringrt/reactor"
)

// Options configures Runtime construction. There is no flag/env parsing
// layer (out of scope per spec.md §1's Non-goals) — a host program builds
// Options directly or centralizes its own defaults the way it sees fit.
type Options struct {
	// Entries is the submission queue depth passed to the kernel ring;
	// the completion queue is sized 2x by convention. Zero uses
	// DefaultEntries.
	Entries uint32

	// Logger receives the runtime's internal diagnostics. Nil installs
	// the package-level default logger.
	Logger *logging.Logger

	// Observer receives submit/complete/block/queue-depth metrics. Nil
	// installs a fresh *metrics.Metrics instance, retrievable afterward
	// via Runtime.Metrics.
	Observer interfaces.Observer

	// Ring lets a test or embedder supply a pre-built uring.Ring (e.g. a
	// fake) instead of opening a real kernel ring. Nil opens one via
	// uring.NewRing with the given Entries.
	Ring uring.Ring
}

// DefaultEntries is the submission queue depth used when Options.Entries
// is zero.
const DefaultEntries = 256

// Runtime owns the one reactor and one I/O engine for this process and
// is the handle a host program spawns coroutines against.
type Runtime struct {
	reactor *reactor.Reactor
	engine  *ioengine.Engine
	metrics *metrics.Metrics
}

// New constructs the process's Runtime. It is fatal (per reactor.New and
// ioengine.New) to call New twice in one process without closing the
// first runtime.
func New(opts Options) (*Runtime, error) {
	if opts.Logger != nil {
		logging.SetDefault(opts.Logger)
	}

	observer := opts.Observer
	var m *metrics.Metrics
	if observer == nil {
		m = metrics.New()
		observer = m
	}

	ring := opts.Ring
	if ring == nil {
		entries := opts.Entries
		if entries == 0 {
			entries = DefaultEntries
		}
		r, err := uring.NewRing(uring.Config{Entries: entries})
		if err != nil {
			return nil, fmt.Errorf("ringrt.New: %w", err)
		}
		ring = r
	}

	react := reactor.New(observer)
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	engOpts := []ioengine.Option{ioengine.WithObserver(observer), ioengine.WithLogger(logger)}
	engine := ioengine.New(react, ring, engOpts...)

	return &Runtime{reactor: react, engine: engine, metrics: m}, nil
}

// Reactor returns the runtime's scheduler, for registering additional
// tasks or routines directly.
func (rt *Runtime) Reactor() *reactor.Reactor {
	return rt.reactor
}

// Engine returns the runtime's I/O engine, for issuing operations
// directly outside a coroutine.
func (rt *Runtime) Engine() *ioengine.Engine {
	return rt.engine
}

// Metrics returns the runtime's built-in metrics instance, or nil if
// Options.Observer was supplied explicitly (in which case the caller
// owns its own metrics surface).
func (rt *Runtime) Metrics() *metrics.Metrics {
	return rt.metrics
}

// Spawn starts fn as a coroutine on this runtime's reactor.
func (rt *Runtime) Spawn(fn func(ctx *async.Ctx) (any, error)) future.Future[any] {
	return async.Spawn(rt.reactor, fn)
}

// Detach starts fn as a fire-and-forget coroutine on this runtime's
// reactor; any error it returns is logged as orphaned.
func (rt *Runtime) Detach(fn func(ctx *async.Ctx) error) {
	async.Detach(rt.reactor, fn)
}

// Run drives one scheduler quantum: staged tasks, then routines,
// including the I/O engine's submit/complete poll routine.
func (rt *Runtime) Run() {
	rt.reactor.Run()
}

// RunUntil drives scheduler quanta until done reports true. It is the
// caller's responsibility to ensure done eventually becomes true — there
// is no timeout here, matching the single-threaded cooperative model's
// lack of preemption.
func (rt *Runtime) RunUntil(done func() bool) {
	for !done() {
		rt.reactor.Run()
	}
}

// Close tears down the I/O engine and reactor, in that order. It is
// fatal to call Close while operations are still pending submission or
// while any task/routine is still registered.
func (rt *Runtime) Close() error {
	err := rt.engine.Shutdown()
	rt.reactor.Close()
	return err
}
