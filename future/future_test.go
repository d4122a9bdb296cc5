package future

import (
	"errors"
	"testing"
	"time"

	"github.com/ringrt/ringrt/internal/rterr"
	"github.com/stretchr/testify/require"
)

func TestMakeReadyFutureRoundTrip(t *testing.T) {
	f := MakeReadyFuture(42)
	require.True(t, f.IsReady())
	require.False(t, f.HasFailed())
	v, err := f.Get()
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestMakeExceptionFuture(t *testing.T) {
	boom := errors.New("boom")
	f := MakeExceptionFuture[int](boom)
	require.True(t, f.IsReady())
	require.True(t, f.HasFailed())
	_, err := f.Get()
	require.Equal(t, boom, err)
}

func TestGetOnEmptyFutureFailsNotReady(t *testing.T) {
	var p Promise[int]
	f, err := p.GetFuture()
	require.NoError(t, err)
	_, err = f.Get()
	require.ErrorIs(t, err, rterr.ErrNotReady)
}

func TestSecondValueReadDrainsToDefault(t *testing.T) {
	var p Promise[string]
	f, err := p.GetFuture()
	require.NoError(t, err)
	require.NoError(t, p.Set("hello"))

	v1, err := f.Get()
	require.NoError(t, err)
	require.Equal(t, "hello", v1)

	v2, err := f.Get()
	require.NoError(t, err)
	require.Equal(t, "", v2)
}

func TestSecondErrorReadRethrowsSameError(t *testing.T) {
	var p Promise[int]
	f, err := p.GetFuture()
	require.NoError(t, err)
	boom := errors.New("boom")
	require.NoError(t, p.SetError(boom))

	_, err1 := f.Get()
	require.Equal(t, boom, err1)
	_, err2 := f.Get()
	require.Equal(t, boom, err2)
}

func TestSetTwiceFailsAlreadySatisfied(t *testing.T) {
	var p Promise[int]
	require.NoError(t, p.Set(1))
	err := p.Set(2)
	require.ErrorIs(t, err, rterr.ErrAlreadySatisfied)
}

func TestGetFutureTwiceFailsAlreadyRetrieved(t *testing.T) {
	var p Promise[int]
	_, err := p.GetFuture()
	require.NoError(t, err)
	_, err = p.GetFuture()
	require.ErrorIs(t, err, rterr.ErrAlreadyRetrieved)
}

func TestDiscardWithoutRetrievedFutureIsSilent(t *testing.T) {
	var p Promise[int]
	_ = p.ensureState()
	p.Discard()
}

func TestBrokenPromiseOnDiscard(t *testing.T) {
	var p Promise[int]
	f, err := p.GetFuture()
	require.NoError(t, err)
	require.False(t, f.IsReady())

	p.Discard()

	require.True(t, f.IsReady())
	require.True(t, f.HasFailed())
	_, err = f.Get()
	require.ErrorIs(t, err, rterr.ErrBrokenPromise)
}

func TestDiscardAfterSetDoesNotOverwrite(t *testing.T) {
	var p Promise[int]
	f, err := p.GetFuture()
	require.NoError(t, err)
	require.NoError(t, p.Set(7))
	p.Discard()

	v, err := f.Get()
	require.NoError(t, err)
	require.Equal(t, 7, v)
}

func TestToChannelAlreadyReady(t *testing.T) {
	f := MakeReadyFuture(9)
	res := <-f.ToChannel()
	require.NoError(t, res.Err)
	require.Equal(t, 9, res.Value)
}

func TestToChannelWaitsForSettlement(t *testing.T) {
	var p Promise[int]
	f, err := p.GetFuture()
	require.NoError(t, err)

	ch := f.ToChannel()

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = p.Set(5)
	}()

	select {
	case res := <-ch:
		require.NoError(t, res.Err)
		require.Equal(t, 5, res.Value)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel settlement")
	}
}
