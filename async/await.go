package async

import "github.com/ringrt/ringrt/future"

// Await resumes immediately with f's value (or error) if f is already
// ready. Otherwise it suspends until f settles: the settling Promise
// itself enqueues the resume task (via Future.OnSettle), so there is no
// per-iteration readiness poll.
func Await[T any](ctx *Ctx, f future.Future[T]) (T, error) {
	if !f.IsReady() {
		ctx.parkOnSettle(func(wake func()) { f.OnSettle(wake) })
	}
	return f.Get()
}
