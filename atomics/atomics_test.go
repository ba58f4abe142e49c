package atomics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUint32IncDec(t *testing.T) {
	var a Uint32
	require.EqualValues(t, 1, a.Inc())
	require.EqualValues(t, 2, a.Inc())
	require.EqualValues(t, 1, a.Dec())
	require.EqualValues(t, 1, a.Load())
}

func TestUint32CompareAndSwap(t *testing.T) {
	var a Uint32
	a.Store(5)
	require.True(t, a.CompareAndSwap(5, 9))
	require.False(t, a.CompareAndSwap(5, 1))
	require.EqualValues(t, 9, a.Load())
}

func TestInt64Refcount(t *testing.T) {
	var r Int64
	r.Store(1)
	require.EqualValues(t, 2, r.Inc())
	require.EqualValues(t, 1, r.Dec())
	require.EqualValues(t, 0, r.Dec())
}
