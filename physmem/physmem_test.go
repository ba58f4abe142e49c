package physmem

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocFreeRoundTrip(t *testing.T) {
	a := New(0, 16*PageSize)
	total, free := a.Stats()
	require.EqualValues(t, 16, total)

	p, ok := a.AllocPage()
	require.True(t, ok)
	_, freeAfter := a.Stats()
	require.Equal(t, free-1, freeAfter)

	a.FreePages(p, 1)
	_, freeBack := a.Stats()
	require.Equal(t, free, freeBack)
}

func TestAllocPagesContiguous(t *testing.T) {
	a := New(0, 8*PageSize)
	base, ok := a.AllocPages(4)
	require.True(t, ok)

	_, ok2 := a.AllocPages(3)
	require.True(t, ok2)

	_, free := a.Stats()
	require.EqualValues(t, 0, free)

	a.FreePages(base, 4)
	_, freeAfter := a.Stats()
	require.EqualValues(t, 4, freeAfter)
}

func TestExhaustionReturnsFalseNotPanic(t *testing.T) {
	a := New(0, 3*PageSize) // frame 0 holds the bitmap; two are free
	_, ok1 := a.AllocPage()
	_, ok2 := a.AllocPage()
	require.True(t, ok1)
	require.True(t, ok2)

	_, ok3 := a.AllocPage()
	require.False(t, ok3)
}
