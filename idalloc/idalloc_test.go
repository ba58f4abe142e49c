package idalloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIDZeroReserved(t *testing.T) {
	a := NewStatic(8)
	require.True(t, a.IsUsed(0))

	id, ok := a.Alloc()
	require.True(t, ok)
	require.NotZero(t, id)
}

func TestStaticExhaustion(t *testing.T) {
	a := NewStatic(2) // capacity is exactly max; id 0 is reserved
	// drain to exhaustion
	var got []uint32
	for {
		id, ok := a.Alloc()
		if !ok {
			break
		}
		got = append(got, id)
	}
	require.NotEmpty(t, got)
	_, ok := a.Alloc()
	require.False(t, ok)
}

func TestFreeThenReallocate(t *testing.T) {
	a := NewStatic(64)
	id, ok := a.Alloc()
	require.True(t, ok)
	a.Free(id)
	require.False(t, a.IsUsed(id))

	id2, ok2 := a.Alloc()
	require.True(t, ok2)
	require.NotZero(t, id2)
}

func TestGrowableExpandsCarryingBits(t *testing.T) {
	a := NewGrowable(64, 256)
	var ids []uint32
	for i := 0; i < 70; i++ {
		id, ok := a.Alloc()
		require.True(t, ok)
		ids = append(ids, id)
	}
	require.Greater(t, a.Capacity(), uint32(64))
	for _, id := range ids {
		require.True(t, a.IsUsed(id))
	}
}

func TestGrowableRespectsMaxCeiling(t *testing.T) {
	a := NewGrowable(64, 64)
	for {
		if _, ok := a.Alloc(); !ok {
			break
		}
	}
	_, ok := a.Alloc()
	require.False(t, ok)
	require.LessOrEqual(t, a.Capacity(), uint32(64))
}

func TestDoubleFreeIsNoop(t *testing.T) {
	a := NewStatic(64)
	id, _ := a.Alloc()
	a.Free(id)
	require.NotPanics(t, func() { a.Free(id) })
}
