package async

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ringrt/ringrt/future"
	"github.com/ringrt/ringrt/internal/logging"
	"github.com/ringrt/ringrt/reactor"
	"github.com/stretchr/testify/require"
)

func freshReactor(t *testing.T) *reactor.Reactor {
	t.Helper()
	r := reactor.New(nil)
	t.Cleanup(r.Close)
	return r
}

func TestSpawnRunsBodyImmediatelyUntilFirstSuspend(t *testing.T) {
	r := freshReactor(t)
	ran := false
	fut := Spawn(r, func(ctx *Ctx) (int, error) {
		ran = true
		return 7, nil
	})
	require.True(t, ran, "body must start executing before Spawn returns")
	require.True(t, fut.IsReady())
	v, err := fut.Get()
	require.NoError(t, err)
	require.Equal(t, 7, v)
}

func TestYieldRoundTripReturnsFortyTwo(t *testing.T) {
	r := freshReactor(t)
	fut := Spawn(r, func(ctx *Ctx) (int, error) {
		ctx.Yield()
		return 42, nil
	})
	require.False(t, fut.IsReady(), "must suspend at Yield before returning")

	r.Run()

	require.True(t, fut.IsReady())
	v, err := fut.Get()
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestAwaitParksUntilFutureSettles(t *testing.T) {
	r := freshReactor(t)
	var promise future.Promise[int]
	inner, _ := promise.GetFuture()

	outer := Spawn(r, func(ctx *Ctx) (int, error) {
		v, err := Await(ctx, inner)
		if err != nil {
			return 0, err
		}
		return v * 2, nil
	})
	require.False(t, outer.IsReady())

	r.Run() // no-op: nothing has settled inner yet, so no resume task exists
	require.False(t, outer.IsReady())

	require.NoError(t, promise.Set(21))
	r.Run()

	require.True(t, outer.IsReady())
	v, err := outer.Get()
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestFailNowSettlesErrorWithoutRunningFurtherBody(t *testing.T) {
	r := freshReactor(t)
	sentinel := errors.New("boom")
	ranAfter := false
	fut := Spawn(r, func(ctx *Ctx) (int, error) {
		ctx.FailNow(sentinel)
		ranAfter = true
		return 0, nil
	})
	require.False(t, ranAfter)
	require.True(t, fut.IsReady())
	_, err := fut.Get()
	require.ErrorIs(t, err, sentinel)
}

func TestDetachLogsOrphanedError(t *testing.T) {
	r := freshReactor(t)
	var buf bytes.Buffer
	prior := logging.Default()
	logging.SetDefault(logging.NewLogger(&logging.Config{Level: logging.LevelDebug, Output: &buf}))
	t.Cleanup(func() { logging.SetDefault(prior) })

	sentinel := errors.New("orphan boom")
	Detach(r, func(ctx *Ctx) error {
		return sentinel
	})

	require.Contains(t, buf.String(), "orphaned coroutine error")
	require.Contains(t, buf.String(), "orphan boom")
}

func TestWhenAllCollectsResultsInOrder(t *testing.T) {
	r := freshReactor(t)
	var p1, p2 future.Promise[int]
	f1, _ := p1.GetFuture()
	f2, _ := p2.GetFuture()
	require.NoError(t, p1.Set(1))
	require.NoError(t, p2.Set(2))

	out := Spawn(r, func(ctx *Ctx) ([]future.Result[int], error) {
		return WhenAll(ctx, []future.Future[int]{f1, f2}), nil
	})
	require.True(t, out.IsReady())
	results, err := out.Get()
	require.NoError(t, err)
	require.Equal(t, 1, results[0].Value)
	require.Equal(t, 2, results[1].Value)
}

func TestWhenAnyReturnsFirstReadyIndex(t *testing.T) {
	r := freshReactor(t)
	var p1, p2 future.Promise[int]
	f1, _ := p1.GetFuture()
	f2, _ := p2.GetFuture()

	outer := Spawn(r, func(ctx *Ctx) (int, error) {
		idx, res := WhenAny(ctx, []future.Future[int]{f1, f2})
		if res.Err != nil {
			return -1, res.Err
		}
		return idx*100 + res.Value, nil
	})
	require.False(t, outer.IsReady())

	require.NoError(t, p2.Set(9))
	r.Run()

	require.True(t, outer.IsReady())
	v, err := outer.Get()
	require.NoError(t, err)
	require.Equal(t, 109, v)
}
