package rtsync

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWaitGrantsImmediatelyWhenPermitsAvailable(t *testing.T) {
	s := NewSemaphore(1)
	f := s.Wait()
	require.True(t, f.IsReady())
	require.Equal(t, 0, s.Count())
}

func TestWaitQueuesFIFOWhenExhausted(t *testing.T) {
	s := NewSemaphore(1)
	first, err := s.Wait().Get()
	require.NoError(t, err)

	second := s.Wait()
	third := s.Wait()
	require.False(t, second.IsReady())
	require.False(t, third.IsReady())

	first.Release()
	require.True(t, second.IsReady())
	require.False(t, third.IsReady(), "release must hand the permit to the oldest waiter only")

	permit2, err := second.Get()
	require.NoError(t, err)
	permit2.Release()
	require.True(t, third.IsReady())
}

func TestReleaseReturnsToCountWhenNoWaiters(t *testing.T) {
	s := NewSemaphore(0)
	f := s.Wait()
	require.False(t, f.IsReady())

	s2 := NewSemaphore(1)
	p, err := s2.Wait().Get()
	require.NoError(t, err)
	p.Release()
	require.Equal(t, 1, s2.Count())
}

func TestDoubleReleaseIsNoop(t *testing.T) {
	s := NewSemaphore(1)
	p, err := s.Wait().Get()
	require.NoError(t, err)
	p.Release()
	require.Equal(t, 1, s.Count())
	p.Release()
	require.Equal(t, 1, s.Count(), "second release must not double-credit the count")
}
