package process

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xnix-project/xnixcore/perm"
	"github.com/xnix-project/xnixcore/sched"
	"github.com/xnix-project/xnixcore/vmm"
)

func newTestManager(t *testing.T) (*Manager, *perm.ProfileSet, *perm.Registry, *perm.Profile, *perm.Profile) {
	reg := perm.NewRegistry()
	ps := perm.NewProfileSet()
	initP, _, _, defaultP := perm.BuiltinProfiles(ps, reg)
	m := NewManager(vmm.NewMMU(), reg, 256)
	return m, ps, reg, initP, defaultP
}

func TestCreateAllocatesDistinctPIDsAndInstanceIDs(t *testing.T) {
	m, _, _, initP, _ := newTestManager(t)

	p1, err := m.Create("a", initP)
	require.NoError(t, err)
	p2, err := m.Create("b", initP)
	require.NoError(t, err)

	require.NotEqual(t, p1.PID(), p2.PID())
	require.NotEqual(t, p1.InstanceID, p2.InstanceID)
}

func TestDestroyReturnsPIDAndTearsDownAddressSpace(t *testing.T) {
	m, _, _, initP, _ := newTestManager(t)
	p, err := m.Create("a", initP)
	require.NoError(t, err)
	pid := p.PID()

	m.Destroy(p)

	_, ok := m.ByPID(pid)
	require.False(t, ok)

	// The PID must be reusable now that it was returned.
	p2, err := m.Create("b", initP)
	require.NoError(t, err)
	require.Equal(t, pid, p2.PID())
}

func TestSpawnRejectsProfileEscalation(t *testing.T) {
	m, ps, reg, _, defaultP := newTestManager(t)
	parent, err := m.Create("parent", defaultP)
	require.NoError(t, err)

	// privileged is not a subset of default: it grants xnix.irq.* which
	// default never does.
	privileged := ps.Create("privileged")
	privileged.Set("xnix.irq.*", perm.Grant)
	reg.Register("xnix.irq.*")

	s := sched.NewScheduler(1)
	_, err = m.Spawn(s, parent, "child", privileged, nil, func() {})
	require.Error(t, err)
}

func TestSpawnInheritsHandlesAndStartsThread(t *testing.T) {
	m, _, _, initP, defaultP := newTestManager(t)
	parent, err := m.Create("parent", initP)
	require.NoError(t, err)

	obj := &fakeObject{}
	h, err := parent.Handles.Alloc(1, obj, 1, "pipe")
	require.NoError(t, err)

	s := sched.NewScheduler(1)
	ran := false
	child, err := m.Spawn(s, parent, "child", defaultP, []InheritedHandle{{Src: h, Name: "pipe"}}, func() {
		ran = true
	})
	require.NoError(t, err)

	childHandle, ok := child.Handles.Find("pipe")
	require.True(t, ok)
	_, ok = child.Handles.Lookup(childHandle, 1, 0)
	require.True(t, ok)

	s.RunOnce(0)
	require.True(t, ran)

	p, ok := Current(childThread(child))
	require.True(t, ok)
	require.Equal(t, child.PID(), p.PID())
}

func TestSbrkRespectsHeapLimit(t *testing.T) {
	m, _, _, initP, _ := newTestManager(t)
	p, err := m.Create("a", initP)
	require.NoError(t, err)
	p.InitHeap(0x1000, 0x2000)

	brk, err := p.Sbrk(0x500, nil)
	require.NoError(t, err)
	require.EqualValues(t, 0x1500, brk)

	_, err = p.Sbrk(0x2000, nil)
	require.Error(t, err)
}

func TestReapRemovesChildAndReturnsPID(t *testing.T) {
	m, _, _, initP, defaultP := newTestManager(t)
	parent, err := m.Create("parent", initP)
	require.NoError(t, err)

	s := sched.NewScheduler(1)
	child, err := m.Spawn(s, parent, "child", defaultP, nil, func() {})
	require.NoError(t, err)
	childPID := child.PID()

	// Child's own sole reference goes away (e.g. it exits) before the
	// parent reaps it: Destroy demotes it to Zombie rather than freeing.
	m.Destroy(child)
	_, ok := m.ByPID(childPID)
	require.True(t, ok)
	require.Equal(t, Zombie, child.State())

	require.NoError(t, m.Reap(parent, child))
	_, ok = m.ByPID(childPID)
	require.False(t, ok)
}

type fakeObject struct {
	n int64
}

func (f *fakeObject) Ref() int64  { f.n++; return f.n }
func (f *fakeObject) Unref() int64 { f.n--; return f.n }

func childThread(p *Process) *sched.Thread {
	return p.threads[0]
}
