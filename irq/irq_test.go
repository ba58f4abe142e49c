package irq

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xnix-project/xnixcore/arch"
	"github.com/xnix-project/xnixcore/ipc"
)

func TestPICStartsFullyMasked(t *testing.T) {
	p := NewPIC()
	require.True(t, p.Masked(3))
	p.Enable(3)
	require.False(t, p.Masked(3))
	p.Disable(3)
	require.True(t, p.Masked(3))
}

func TestAPICRedirectionTable(t *testing.T) {
	a := NewAPIC()
	require.True(t, a.Masked(5))
	a.Enable(5)
	require.False(t, a.Masked(5))
}

func TestDispatchCallsHandlerAndEOI(t *testing.T) {
	chip := NewPIC()
	eoiCalls := 0
	d := NewDispatcher(&eoiCountingChip{ChipOps: chip, count: &eoiCalls}, -1)

	called := false
	d.SetHandler(1, func(irq int, frame *arch.Frame) { called = true })
	d.Dispatch(1, &arch.Frame{})

	require.True(t, called)
	require.Equal(t, 1, eoiCalls)
}

func TestDispatchUnhandledIRQStillEOIs(t *testing.T) {
	chip := NewPIC()
	eoiCalls := 0
	d := NewDispatcher(&eoiCountingChip{ChipOps: chip, count: &eoiCalls}, -1)

	d.Dispatch(7, &arch.Frame{})
	require.Equal(t, 1, eoiCalls)
}

func TestTimerIRQHandlerSuppressesDispatcherEOI(t *testing.T) {
	chip := NewPIC()
	eoiCalls := 0
	counting := &eoiCountingChip{ChipOps: chip, count: &eoiCalls}
	d := NewDispatcher(counting, 0)

	fake := &fakeTicker{}
	timer := NewTimer(counting, 0, fake, 0)
	d.SetHandler(0, timer.Handler)

	d.Dispatch(0, &arch.Frame{})
	require.Equal(t, 1, fake.calls)
	require.Equal(t, 1, eoiCalls, "timer's own EOI must be the only one issued")
}

type fakeTicker struct{ calls int }

func (f *fakeTicker) Tick(cpuID int) bool { f.calls++; return false }

type eoiCountingChip struct {
	ChipOps
	count *int
}

func (e *eoiCountingChip) EOI(irq int) {
	*e.count++
	e.ChipOps.EOI(irq)
}

func TestUserIRQBindOccurRead(t *testing.T) {
	chip := NewPIC()
	u := NewUserIRQ(chip)
	n := ipc.NewNotification()

	require.NoError(t, u.Bind(4, n, 0x1, 8))
	require.False(t, chip.Masked(4), "bind must enable the line")

	require.NoError(t, u.Occur(4, 0xAB))
	buf := make([]byte, 4)
	got, err := u.Read(4, buf, false)
	require.NoError(t, err)
	require.Equal(t, 1, got)
	require.Equal(t, byte(0xAB), buf[0])
}

func TestUserIRQDoubleBindFails(t *testing.T) {
	u := NewUserIRQ(NewPIC())
	n := ipc.NewNotification()
	require.NoError(t, u.Bind(2, n, 1, 8))
	err := u.Bind(2, n, 1, 8)
	require.Error(t, err)
}

func TestUserIRQUnbindDisablesLine(t *testing.T) {
	chip := NewPIC()
	u := NewUserIRQ(chip)
	n := ipc.NewNotification()
	require.NoError(t, u.Bind(6, n, 1, 8))
	require.NoError(t, u.Unbind(6))
	require.True(t, chip.Masked(6))
}

func TestRingDropsOldestOnOverflow(t *testing.T) {
	r := newRing(2)
	r.push(1)
	r.push(2)
	r.push(3) // drops 1
	out := make([]byte, 4)
	n := r.drain(out)
	require.Equal(t, 2, n)
	require.Equal(t, []byte{2, 3}, out[:2])
}
