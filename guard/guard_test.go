package guard

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReleaseRunsCallableOnce(t *testing.T) {
	count := 0
	g := New(func() { count++ })
	g.Release()
	require.Equal(t, 1, count)
}

func TestCancelSuppressesCallable(t *testing.T) {
	count := 0
	g := New(func() { count++ })
	g.Cancel()
	g.Release()
	require.Equal(t, 0, count)
}

func TestDoubleReleasePanics(t *testing.T) {
	g := New(func() {})
	g.Release()
	require.Panics(t, func() { g.Release() })
}

func TestAnyGuardBoxesConcreteGuard(t *testing.T) {
	count := 0
	g := New(func() { count++ })
	var any AnyGuard = Box(&g)
	any.Release()
	require.Equal(t, 1, count)
}
