package perm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterIdempotent(t *testing.T) {
	reg := NewRegistry()
	id1 := reg.Register("xnix.ipc.send")
	id2 := reg.Register("xnix.ipc.send")
	require.Equal(t, id1, id2)
	require.Equal(t, 1, reg.Count())
}

func TestTopWildcardGrantsEverything(t *testing.T) {
	reg := NewRegistry()
	reg.Register("xnix.ipc.send")
	reg.Register("xnix.vm.map")

	ps := NewProfileSet()
	p := ps.Create("all")
	p.Set("xnix.*", Grant)

	st := NewState(reg, p)
	require.True(t, st.CheckNode("xnix.ipc.send"))
	require.True(t, st.CheckNode("xnix.vm.map"))
}

func TestDeeperDenyOverridesShallowerGrant(t *testing.T) {
	reg := NewRegistry()
	reg.Register("xnix.ipc.send")
	reg.Register("xnix.ipc.recv")

	ps := NewProfileSet()
	p := ps.Create("mixed")
	p.Set("xnix.ipc.*", Grant)
	p.Set("xnix.ipc.send", Deny)

	st := NewState(reg, p)
	require.False(t, st.CheckNode("xnix.ipc.send"), "specific deny must beat wildcard grant")
	require.True(t, st.CheckNode("xnix.ipc.recv"), "sibling untouched by the specific deny")
}

func TestOverridesApplyLastWriterWins(t *testing.T) {
	reg := NewRegistry()
	reg.Register("xnix.io.port.0x3F8")

	ps := NewProfileSet()
	p := ps.Create("base")
	p.Set("xnix.io.port.0x3F8", Grant)

	st := NewState(reg, p)
	require.True(t, st.CheckNode("xnix.io.port.0x3F8"))

	st.Deny("xnix.io.port.0x3F8")
	require.False(t, st.CheckNode("xnix.io.port.0x3F8"), "state override must win over profile")
}

func TestIOPortWildcardExpandsThenRestricts(t *testing.T) {
	reg := NewRegistry()
	ps := NewProfileSet()
	p := ps.Create("io")
	p.Set("xnix.io.port.*", Grant)
	p.Set("xnix.io.port.0x3F8", Deny)

	st := NewState(reg, p)
	require.True(t, st.CheckIOPort(0x2F8))
	require.False(t, st.CheckIOPort(0x3F8), "specific port deny must restrict the wildcard grant")
}

func TestIOPortRangeExtendsWildcard(t *testing.T) {
	reg := NewRegistry()
	ps := NewProfileSet()
	p := ps.Create("io2")
	p.Set("xnix.io.port.100-200", Grant)

	st := NewState(reg, p)
	require.True(t, st.CheckIOPort(150))
	require.False(t, st.CheckIOPort(201))
}

func TestDefaultProfileDeniesIOPort(t *testing.T) {
	reg := NewRegistry()
	ps := NewProfileSet()
	_, _, _, defaultP := BuiltinProfiles(ps, reg)

	st := NewState(reg, defaultP)
	require.False(t, st.CheckIOPort(0x3F8), "default profile must not grant io ports")
}

func TestInheritanceChainAppliesRootFirst(t *testing.T) {
	reg := NewRegistry()
	ps := NewProfileSet()
	_, _, ioDriverP, _ := BuiltinProfiles(ps, reg)

	st := NewState(reg, ioDriverP)
	require.True(t, st.CheckIOPort(0x3F8), "io_driver inherits driver+default and adds io ports")
	require.True(t, st.CheckNode("xnix.irq.*"))
}

func TestInheritCycleRejected(t *testing.T) {
	ps := NewProfileSet()
	a := ps.Create("a")
	b := ps.Create("b")
	require.NoError(t, ps.Inherit(b, a))
	err := ps.Inherit(a, b)
	require.Error(t, err)
}

func TestSubsetCheckRejectsEscalation(t *testing.T) {
	reg := NewRegistry()
	ps := NewProfileSet()
	_, _, _, defaultP := BuiltinProfiles(ps, reg)
	ioDriverP, _ := ps.Find("io_driver")

	parent := NewState(reg, defaultP)
	child := NewState(reg, ioDriverP)

	require.False(t, Subset(parent, child), "child must not hold permissions parent lacks")
}

func TestSubsetCheckAllowsEqualOrNarrower(t *testing.T) {
	reg := NewRegistry()
	ps := NewProfileSet()
	initP, _, _, defaultP := BuiltinProfiles(ps, reg)

	parent := NewState(reg, initP)
	child := NewState(reg, defaultP)

	require.True(t, Subset(parent, child), "xnix.* parent trivially covers any child")
}

func TestCheckReresolvesOnRegistryGrowth(t *testing.T) {
	reg := NewRegistry()
	ps := NewProfileSet()
	p := ps.Create("wild")
	p.Set("xnix.ipc.*", Grant)

	reg.Register("xnix.ipc.recv")
	st := NewState(reg, p)
	require.True(t, st.CheckNode("xnix.ipc.recv"), "initial resolve")

	reg.Register("xnix.ipc.send")
	require.True(t, st.CheckNode("xnix.ipc.send"), "node registered after first resolve must still resolve")
}
