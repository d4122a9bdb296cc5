package uring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetFeatures(t *testing.T) {
	f := GetFeatures()
	require.False(t, f.SQE128)
	require.False(t, f.CQE32)
	require.False(t, f.SQPOLL)
}

func TestNewRingInvalidEntries(t *testing.T) {
	_, err := NewRing(Config{Entries: 0})
	require.Error(t, err)
}

func TestOpenCloseRoundTrip(t *testing.T) {
	ring, err := NewRing(Config{Entries: 32})
	if err != nil {
		t.Skipf("io_uring unavailable in this environment: %v", err)
	}
	defer ring.Close()

	sqe, err := ring.GetSQE()
	require.NoError(t, err)
	sqe.PrepareOpenAt(-100, "/dev/null", 0, 0)
	sqe.SetUserData(1)

	n, err := ring.SubmitAndWait(1)
	require.NoError(t, err)
	require.Equal(t, uint32(1), n)

	cqe, ok := ring.PeekCQE()
	require.True(t, ok)
	require.Equal(t, uint64(1), cqe.UserData)
	ring.CQESeen()

	if cqe.Res >= 0 {
		closeSQE, err := ring.GetSQE()
		require.NoError(t, err)
		closeSQE.PrepareClose(cqe.Res)
		closeSQE.SetUserData(2)
		_, err = ring.SubmitAndWait(1)
		require.NoError(t, err)
		closeCQE, ok := ring.PeekCQE()
		require.True(t, ok)
		require.Equal(t, uint64(2), closeCQE.UserData)
		ring.CQESeen()
	}
}
