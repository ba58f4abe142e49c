package vmm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapQueryUnmapTLBSanity(t *testing.T) {
	m := NewMMU()
	m.Init()
	as, err := m.CreateAS()
	require.NoError(t, err)

	require.NoError(t, m.Map(as, 0x1000, 0x2000, Read|Write|User))
	p, ok := m.Query(as, 0x1000)
	require.True(t, ok)
	require.EqualValues(t, 0x2000, p)

	require.NoError(t, m.Unmap(as, 0x1000))
	_, ok2 := m.Query(as, 0x1000)
	require.False(t, ok2, "query must miss immediately after unmap")
}

func TestKernelHalfSharedAcrossSpaces(t *testing.T) {
	m := NewMMU()
	m.MapKernel(KernelDirectMapBase, 0, Read|Write)

	as1, _ := m.CreateAS()
	as2, _ := m.CreateAS()

	p1, ok1 := m.Query(as1, KernelDirectMapBase)
	p2, ok2 := m.Query(as2, KernelDirectMapBase)
	require.True(t, ok1)
	require.True(t, ok2)
	require.Equal(t, p1, p2)
}

func TestNoMMURequiresIdentity(t *testing.T) {
	n := NewNoMMU()
	as, _ := n.CreateAS()

	require.Error(t, n.Map(as, 0x1000, 0x2000, Read))
	require.NoError(t, n.Map(as, 0x1000, 0x1000, Read))

	p, ok := n.Query(as, 0x1000)
	require.True(t, ok)
	require.EqualValues(t, 0x1000, p)
}

func TestClassifyFault(t *testing.T) {
	require.Equal(t, FaultPanic, ClassifyFault(false, 0, nil))
	require.Equal(t, FaultKillThread, ClassifyFault(true, 0, nil))
	require.Equal(t, FaultExtended, ClassifyFault(true, 0, func(uintptr) bool { return true }))
}
