package kheap

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xnix-project/xnixcore/physmem"
)

func TestKmallocKfreeRoundTrip(t *testing.T) {
	pm := physmem.New(0, 32*physmem.PageSize)
	h := New(pm)

	_, freeBefore := pm.Stats()

	addr := h.Kmalloc(100)
	require.NotZero(t, addr)

	buf := h.Bytes(addr, 100)
	require.Len(t, buf, 100)
	buf[0] = 0xAB

	h.Kfree(addr)
	_, freeAfter := pm.Stats()
	require.Equal(t, freeBefore, freeAfter)
}

func TestKzallocZeroesAndMultiPage(t *testing.T) {
	pm := physmem.New(0, 32*physmem.PageSize)
	h := New(pm)

	n := uint32(3 * physmem.PageSize)
	addr := h.Kzalloc(n)
	require.NotZero(t, addr)

	buf := h.Bytes(addr, n)
	for _, b := range buf {
		require.Zero(t, b)
	}

	h.Kfree(addr)
}

func TestKmallocZeroReturnsZero(t *testing.T) {
	pm := physmem.New(0, 4*physmem.PageSize)
	h := New(pm)
	require.Zero(t, h.Kmalloc(0))
}
