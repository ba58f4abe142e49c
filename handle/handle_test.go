package handle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeObj struct {
	Refcounted
}

func TestAllocLookupFree(t *testing.T) {
	tbl := NewStaticTable(16)
	obj := &fakeObj{}
	h, err := tbl.Alloc(TypeEndpoint, obj, Read|Write, "ep0")
	require.NoError(t, err)
	require.NotEqual(t, Invalid, h)

	got, ok := tbl.Lookup(h, TypeEndpoint, Read)
	require.True(t, ok)
	require.Same(t, obj, got.(*fakeObj))

	_, ok = tbl.Lookup(h, TypeProcess, Read)
	require.False(t, ok, "wrong type must fail lookup")

	_, ok = tbl.Lookup(h, TypeEndpoint, Grant)
	require.False(t, ok, "missing right must fail lookup")

	require.NoError(t, tbl.Free(h))
}

func TestDoubleFreeIsEINVAL(t *testing.T) {
	tbl := NewStaticTable(16)
	obj := &fakeObj{}
	h, err := tbl.Alloc(TypeEndpoint, obj, Read, "")
	require.NoError(t, err)
	require.NoError(t, tbl.Free(h))

	err = tbl.Free(h)
	require.Error(t, err)
}

func TestFindByName(t *testing.T) {
	tbl := NewStaticTable(16)
	obj := &fakeObj{}
	h, err := tbl.Alloc(TypeNotification, obj, Read, "notif0")
	require.NoError(t, err)

	found, ok := tbl.Find("notif0")
	require.True(t, ok)
	require.Equal(t, h, found)

	require.NoError(t, tbl.Free(h))
	_, ok = tbl.Find("notif0")
	require.False(t, ok, "name must be removed from the index on free")
}

func TestDuplicateRightsSubset(t *testing.T) {
	tbl := NewStaticTable(16)
	obj := &fakeObj{}
	h, err := tbl.Alloc(TypeEndpoint, obj, Read|Write, "")
	require.NoError(t, err)

	dup, err := tbl.Duplicate(h, Read)
	require.NoError(t, err)
	require.NotEqual(t, h, dup)
	require.EqualValues(t, 1, obj.Count())

	_, err = tbl.Duplicate(h, Manage)
	require.Error(t, err, "escalation beyond original rights must fail")
}

func TestTransferPreservesRights(t *testing.T) {
	src := NewStaticTable(16)
	dst := NewStaticTable(16)
	obj := &fakeObj{}
	h, err := src.Alloc(TypeEndpoint, obj, Read|Write|Grant, "ep")
	require.NoError(t, err)

	dh, err := src.Transfer(h, dst, "", Invalid)
	require.NoError(t, err)
	require.EqualValues(t, 1, obj.Count())

	got, ok := dst.Lookup(dh, TypeEndpoint, Read|Write|Grant)
	require.True(t, ok)
	require.Same(t, obj, got.(*fakeObj))
}

func TestTransferReversesRefcountOnFailure(t *testing.T) {
	src := NewStaticTable(16)
	dst := NewStaticTable(16)
	obj := &fakeObj{}
	h, err := src.Alloc(TypeEndpoint, obj, Read, "")
	require.NoError(t, err)

	// Pre-occupy the hinted slot in dst to force AllocAt to fail.
	other := &fakeObj{}
	_, err = dst.AllocAt(TypeEndpoint, other, Read, "", Handle(1))
	require.NoError(t, err)

	_, err = src.Transfer(h, dst, "", Handle(1))
	require.Error(t, err)
	require.EqualValues(t, 0, obj.Count(), "failed transfer must reverse the ref bump")
}

func TestAllocAtHintSlot(t *testing.T) {
	tbl := NewStaticTable(16)
	obj := &fakeObj{}
	h, err := tbl.AllocAt(TypeThread, obj, Read, "", Handle(5))
	require.NoError(t, err)
	require.Equal(t, Handle(5), h)

	_, err = tbl.AllocAt(TypeThread, obj, Read, "", Handle(5))
	require.Error(t, err, "slot already occupied")
}

func TestTableFullReturnsEMFILE(t *testing.T) {
	tbl := NewStaticTable(64)
	obj := &fakeObj{}
	for {
		if _, err := tbl.Alloc(TypeEndpoint, obj, Read, ""); err != nil {
			break
		}
	}
	_, err := tbl.Alloc(TypeEndpoint, obj, Read, "")
	require.Error(t, err)
}
