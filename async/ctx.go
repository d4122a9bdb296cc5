// Package async adapts plain Go functions into reactor-scheduled
// coroutines: Spawn runs a function on its own goroutine starting
// immediately, parking it on a channel handoff whenever it awaits a
// not-ready Future or yields, and resuming it through a reactor task so
// every resumption stays serialized through the single task queue.
package async

import (
	"fmt"

	"github.com/ringrt/ringrt/future"
	"github.com/ringrt/ringrt/internal/logging"
	"github.com/ringrt/ringrt/reactor"
)

// Ctx is the environment a spawned function runs in. It must only be
// used from inside the function it was handed to.
type Ctx struct {
	reactor  *reactor.Reactor
	toCoro   chan struct{}
	toCaller chan struct{}
}

func newCtx(r *reactor.Reactor) *Ctx {
	return &Ctx{reactor: r, toCoro: make(chan struct{}), toCaller: make(chan struct{})}
}

// Yield unconditionally enqueues a resume task for the next reactor
// iteration, then suspends — a cooperative scheduling point with no
// associated wait condition. The resume task blocks the reactor goroutine
// between waking the coroutine and the coroutine's next suspend-or-finish,
// so exactly one of the two goroutines ever runs at a time — this is the
// whole of the "fiber on top of a real goroutine" trick.
func (c *Ctx) Yield() {
	action := func() {
		c.toCoro <- struct{}{}
		<-c.toCaller
	}
	c.reactor.AddTask(reactor.NewTask(action))
	c.toCaller <- struct{}{}
	<-c.toCoro
}

// parkOnSettle suspends the coroutine until register's callback (wake)
// runs. register is expected to hand wake to some future's OnSettle, so
// the resume task is enqueued directly by the settling Promise rather
// than discovered by polling a readiness predicate every iteration.
func (c *Ctx) parkOnSettle(register func(wake func())) {
	action := func() {
		c.toCoro <- struct{}{}
		<-c.toCaller
	}
	register(func() {
		c.reactor.AddTask(reactor.NewTask(action))
	})
	c.toCaller <- struct{}{}
	<-c.toCoro
}

type failNowSignal struct{ err error }

// FailNow settles the spawned function's result with err and stops
// running the function immediately, without returning from it normally.
// This is the "fail now" path: the idiomatic equivalent of co_await-ing
// an error value directly.
func (c *Ctx) FailNow(err error) {
	panic(failNowSignal{err: err})
}

// Spawn runs fn on a new goroutine starting immediately: fn's body
// begins executing before Spawn returns, and Spawn itself blocks only
// until fn either returns or reaches its first suspension point, exactly
// mirroring the source's "initial suspend = none" contract.
func Spawn[T any](r *reactor.Reactor, fn func(ctx *Ctx) (T, error)) future.Future[T] {
	ctx := newCtx(r)
	var promise future.Promise[T]
	fut, _ := promise.GetFuture()

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				settleRecovered(&promise, rec)
			}
			ctx.toCaller <- struct{}{}
		}()
		value, err := fn(ctx)
		if err != nil {
			_ = promise.SetError(err)
		} else {
			_ = promise.Set(value)
		}
	}()

	<-ctx.toCaller
	return fut
}

func settleRecovered[T any](promise *future.Promise[T], rec any) {
	if sig, ok := rec.(failNowSignal); ok {
		_ = promise.SetError(sig.err)
		return
	}
	err := fmt.Errorf("panic in spawned coroutine: %v", rec)
	logging.Default().Error("coroutine panicked", "error", err.Error())
	_ = promise.SetError(err)
}

// Detach runs fn with no Future returned to observe it at all: if fn
// returns an error (or calls FailNow), the error is logged under the
// orphan category since, by construction, nothing else could have read
// it. Use Detach for fire-and-forget background work.
func Detach(r *reactor.Reactor, fn func(ctx *Ctx) error) {
	ctx := newCtx(r)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				if sig, ok := rec.(failNowSignal); ok {
					logOrphan(sig.err)
				} else {
					logOrphan(fmt.Errorf("panic in detached coroutine: %v", rec))
				}
			}
			ctx.toCaller <- struct{}{}
		}()
		if err := fn(ctx); err != nil {
			logOrphan(err)
		}
	}()
	<-ctx.toCaller
}

func logOrphan(err error) {
	logging.Default().Error("orphaned coroutine error", "error", err.Error())
}
