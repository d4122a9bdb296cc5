package async

import "github.com/ringrt/ringrt/future"

// WhenAll awaits every future in fs, in order, and returns their results
// once all have settled. Each future is awaited sequentially rather than
// concurrently: there is nothing to run concurrently with on a single
// reactor thread, so sequential co_await is exactly the original
// combinator's behavior, not a simplification of it.
func WhenAll[T any](ctx *Ctx, fs []future.Future[T]) []future.Result[T] {
	results := make([]future.Result[T], len(fs))
	for i, f := range fs {
		value, err := Await(ctx, f)
		results[i] = future.Result[T]{Value: value, Err: err}
	}
	return results
}

// WhenAny suspends until at least one future in fs is ready, then returns
// its index and result. It polls readiness on every reactor iteration via
// Yield, since the futures may be settled by unrelated tasks in any
// order.
func WhenAny[T any](ctx *Ctx, fs []future.Future[T]) (int, future.Result[T]) {
	for {
		for i, f := range fs {
			if f.IsReady() {
				value, err := f.Get()
				return i, future.Result[T]{Value: value, Err: err}
			}
		}
		ctx.Yield()
	}
}
